package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/robalyx/levels/internal/database/types/enum"
)

var (
	ErrMemberNotFound         = errors.New("member not found")
	ErrMemberNotOnLeaderboard = errors.New("member is not on the leaderboard")
	ErrInvalidAmount          = errors.New("invalid XP amount")
)

// Member identifies a user within a guild. XP and ignore state are always
// scoped to this pair rather than to the user alone.
type Member struct {
	UserID  uint64 `json:"userId"`
	GuildID uint64 `json:"guildId"`
}

// String implements fmt.Stringer.
func (m Member) String() string {
	return fmt.Sprintf("%d/%d", m.GuildID, m.UserID)
}

// LockKey returns a stable 64-bit key for serializing work on the member.
func (m Member) LockKey() int64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], m.GuildID)
	binary.BigEndian.PutUint64(buf[8:], m.UserID)

	h := fnv.New64a()
	_, _ = h.Write(buf[:])

	return int64(h.Sum64()) //nolint:gosec // wraparound is fine for a lock key
}

// LedgerEntry is one immutable, signed XP delta for a member.
// A member's total XP is the sum of the deltas of all their entries.
type LedgerEntry struct {
	ID                int64          `bun:",pk,autoincrement"      json:"id"`
	UserID            uint64         `bun:",notnull"               json:"userId"`
	GuildID           uint64         `bun:",notnull"               json:"guildId"`
	Delta             int64          `bun:",notnull"               json:"delta"`
	Kind              enum.EntryKind `bun:",notnull"               json:"kind"`
	CooldownExpiresAt time.Time      `bun:",nullzero"              json:"cooldownExpiresAt"`
	ActorID           uint64         `bun:",nullzero"              json:"actorId"`
	CreatedAt         time.Time      `bun:",notnull,default:now()" json:"createdAt"`
}

// Member returns the member the entry belongs to.
func (e *LedgerEntry) Member() Member {
	return Member{UserID: e.UserID, GuildID: e.GuildID}
}

// OnCooldownAt reports whether the entry still blocks earning XP at the given time.
// Only earned entries carry a cooldown.
func (e *LedgerEntry) OnCooldownAt(now time.Time) bool {
	return e.Kind == enum.EntryKindEarned && !e.CooldownExpiresAt.IsZero() && e.CooldownExpiresAt.After(now)
}

// Standing is a member's aggregated position in a guild's ranking.
type Standing struct {
	UserID       uint64 `bun:"user_id"        json:"userId"`
	XP           int64  `bun:"xp"             json:"xp"`
	FirstEntryID int64  `bun:"first_entry_id" json:"firstEntryId"` // Insertion order tie-breaker
}

// LedgerFilter narrows ledger reads for history views and exports.
// Zero IDs match every guild or user.
type LedgerFilter struct {
	GuildID uint64
	UserID  uint64
	Kind    *enum.EntryKind
	AfterID int64 // Only entries with an ID strictly greater than this
	Newest  bool  // Most recent entries first
}
