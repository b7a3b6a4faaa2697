package types

import (
	"time"

	"github.com/robalyx/levels/internal/database/types/enum"
)

// IgnoreFlag exempts a member, channel or role of a guild from gaining XP.
// Flags are toggled by inserting and deleting rows, never versioned.
type IgnoreFlag struct {
	GuildID   uint64            `bun:",pk"                    json:"guildId"`
	TargetID  uint64            `bun:",pk"                    json:"targetId"`
	Target    enum.IgnoreTarget `bun:",notnull"               json:"target"`
	ActorID   uint64            `bun:",nullzero"              json:"actorId"`
	CreatedAt time.Time         `bun:",notnull,default:now()" json:"createdAt"`
}
