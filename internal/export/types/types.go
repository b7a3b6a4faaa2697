package types

import "time"

// Record is one ledger entry as written to an export file. Member holds
// either the decimal user id or its pseudonym.
type Record struct {
	ID                int64
	GuildID           uint64
	Member            string
	Delta             int64
	Kind              string
	ActorID           uint64
	CooldownExpiresAt time.Time // Zero unless the entry was earned
	CreatedAt         time.Time
}

// Header is the column order shared by every tabular format.
var Header = []string{ //nolint:gochecknoglobals // -
	"id", "guild_id", "member", "delta", "kind", "actor_id", "cooldown_expires_at", "created_at",
}
