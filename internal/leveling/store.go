package leveling

import (
	"context"

	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/database/types/enum"
)

// Store is the persistence contract of the engine.
type Store interface {
	// GuildSettings returns a guild's settings or types.ErrGuildSettingsNotFound.
	GuildSettings(ctx context.Context, guildID uint64) (*types.GuildSetting, error)
	// SaveGuildSettings creates or replaces a guild's settings.
	SaveGuildSettings(ctx context.Context, settings *types.GuildSetting) error
	// GuildIDs lists every guild with stored settings.
	GuildIDs(ctx context.Context) ([]uint64, error)

	// WithMember runs fn as one unit of mutual exclusion for the member.
	// Entries appended through the MemberTx become visible only if fn
	// returns nil. fn may run more than once and must not keep state
	// between runs.
	WithMember(ctx context.Context, member types.Member, fn func(ctx context.Context, tx MemberTx) error) error
	// MemberExists reports whether the member has any ledger entry.
	MemberExists(ctx context.Context, member types.Member) (bool, error)
	// TotalXp sums a member's deltas or returns types.ErrMemberNotFound.
	TotalXp(ctx context.Context, member types.Member) (int64, error)
	// Standings aggregates the ledger of a guild per member, in any order.
	Standings(ctx context.Context, guildID uint64) ([]*types.Standing, error)
	// Entries reads ledger entries matching filter, oldest first unless
	// filter.Newest is set. A limit <= 0 means no limit.
	Entries(ctx context.Context, filter types.LedgerFilter, limit int) ([]*types.LedgerEntry, error)

	// Rewards lists a guild's rewards in any order.
	Rewards(ctx context.Context, guildID uint64) ([]*types.Reward, error)
	// UpsertReward inserts a reward or overwrites its level in place.
	UpsertReward(ctx context.Context, reward *types.Reward) error
	// DeleteReward removes a reward or returns types.ErrRewardNotFound.
	DeleteReward(ctx context.Context, guildID, roleID uint64) error

	// IgnoredTargets returns the ignore flags set on any of ids.
	IgnoredTargets(ctx context.Context, guildID uint64, ids []uint64) (map[uint64]enum.IgnoreTarget, error)
	// SetIgnoreFlags stores flags, replacing existing ones for the same targets.
	SetIgnoreFlags(ctx context.Context, flags []*types.IgnoreFlag) error
	// ClearIgnoreFlags removes the flags of targetIDs.
	ClearIgnoreFlags(ctx context.Context, guildID uint64, targetIDs []uint64) error
}

// MemberTx is the view of one member's ledger inside Store.WithMember.
type MemberTx interface {
	// Seen reports whether the member has any entry, including staged ones.
	Seen(ctx context.Context) (bool, error)
	// TotalXp sums the member's deltas, including staged ones.
	TotalXp(ctx context.Context) (int64, error)
	// LastEarned returns the most recent Earned entry or nil.
	LastEarned(ctx context.Context) (*types.LedgerEntry, error)
	// Append stages an entry. Its ID is assigned on success.
	Append(ctx context.Context, entry *types.LedgerEntry) error
}

// StandingsCache holds per-guild standings snapshots between reads.
type StandingsCache interface {
	Get(ctx context.Context, guildID uint64) ([]*types.Standing, bool, error)
	Set(ctx context.Context, guildID uint64, standings []*types.Standing) error
	Invalidate(ctx context.Context, guildID uint64) error
}

// Directory answers whether a channel or role exists in a guild.
// Members are known from the ledger instead.
type Directory interface {
	HasChannel(ctx context.Context, guildID, channelID uint64) (bool, error)
	HasRole(ctx context.Context, guildID, roleID uint64) (bool, error)
}
