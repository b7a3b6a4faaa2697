package types

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrGuildSettingsNotFound = errors.New("guild settings not found")
	ErrInvalidSettings       = errors.New("invalid guild settings")
)

// GuildSetting stores the leveling configuration of a guild.
type GuildSetting struct {
	GuildID       uint64        `bun:",pk"                    json:"guildId"`
	Base          int           `bun:",notnull"               json:"base"`
	Modifier      int           `bun:",notnull"               json:"modifier"` // Percentage, 50 = 0.50
	Amount        int64         `bun:",notnull"               json:"amount"`   // XP per admitted activity event
	Cooldown      time.Duration `bun:",notnull"               json:"cooldown"`
	ModuleEnabled bool          `bun:",notnull,default:false" json:"moduleEnabled"`
	LogChannelID  uint64        `bun:",nullzero"              json:"logChannelId"`
	UpdatedAt     time.Time     `bun:",notnull,default:now()" json:"updatedAt"`
}

// Validate checks the curve and reward parameters.
func (s *GuildSetting) Validate() error {
	switch {
	case s.Base <= 0:
		return fmt.Errorf("%w: base must be positive (guildID=%d)", ErrInvalidSettings, s.GuildID)
	case s.Modifier < 0:
		return fmt.Errorf("%w: modifier must not be negative (guildID=%d)", ErrInvalidSettings, s.GuildID)
	case s.Amount < 0:
		return fmt.Errorf("%w: amount must not be negative (guildID=%d)", ErrInvalidSettings, s.GuildID)
	case s.Cooldown < 0:
		return fmt.Errorf("%w: cooldown must not be negative (guildID=%d)", ErrInvalidSettings, s.GuildID)
	}

	return nil
}
