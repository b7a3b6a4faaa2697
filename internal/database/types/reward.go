package types

import (
	"errors"
	"time"
)

var (
	ErrInvalidLevel   = errors.New("level must not be negative")
	ErrRewardNotFound = errors.New("reward not found")
)

// Reward grants a role once a member reaches a minimum level.
// A role appears at most once per guild.
type Reward struct {
	GuildID   uint64    `bun:",pk"                    json:"guildId"`
	RoleID    uint64    `bun:",pk"                    json:"roleId"`
	MinLevel  int       `bun:",notnull"               json:"minLevel"`
	CreatedAt time.Time `bun:",notnull,default:now()" json:"createdAt"`
	UpdatedAt time.Time `bun:",notnull,default:now()" json:"updatedAt"`
}
