// Package memstore is an in-process leveling.Store for tests and single-node use.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/database/types/enum"
	"github.com/robalyx/levels/internal/leveling"
)

// stripeCount is the number of member lock stripes.
const stripeCount = 64

var _ leveling.Store = (*Store)(nil)

// Store keeps every table in memory. Member units are serialized through
// striped locks keyed by member, so unrelated members rarely contend.
type Store struct {
	mu       sync.RWMutex
	settings map[uint64]*types.GuildSetting
	ledger   map[types.Member][]*types.LedgerEntry
	rewards  map[uint64]map[uint64]*types.Reward
	ignores  map[uint64]map[uint64]*types.IgnoreFlag
	nextID   int64

	stripes [stripeCount]sync.Mutex
}

// New creates an empty store.
func New() *Store {
	return &Store{
		settings: make(map[uint64]*types.GuildSetting),
		ledger:   make(map[types.Member][]*types.LedgerEntry),
		rewards:  make(map[uint64]map[uint64]*types.Reward),
		ignores:  make(map[uint64]map[uint64]*types.IgnoreFlag),
	}
}

// GuildSettings implements leveling.Store.
func (s *Store) GuildSettings(_ context.Context, guildID uint64) (*types.GuildSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[guildID]
	if !ok {
		return nil, fmt.Errorf("%w (guildID=%d)", types.ErrGuildSettingsNotFound, guildID)
	}

	clone := *settings

	return &clone, nil
}

// SaveGuildSettings implements leveling.Store.
func (s *Store) SaveGuildSettings(_ context.Context, settings *types.GuildSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *settings
	s.settings[settings.GuildID] = &clone

	return nil
}

// GuildIDs implements leveling.Store.
func (s *Store) GuildIDs(_ context.Context) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.settings))
	for id := range s.settings {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids, nil
}

// WithMember implements leveling.Store. Staged entries are committed only
// when fn succeeds and ctx is still live.
func (s *Store) WithMember(
	ctx context.Context, member types.Member, fn func(ctx context.Context, tx leveling.MemberTx) error,
) error {
	stripe := &s.stripes[stripeFor(member)]
	stripe.Lock()
	defer stripe.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memberTx{store: s, member: member}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if len(tx.staged) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range tx.staged {
		s.nextID++
		entry.ID = s.nextID
		s.ledger[member] = append(s.ledger[member], entry)
	}

	return nil
}

// MemberExists implements leveling.Store.
func (s *Store) MemberExists(_ context.Context, member types.Member) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ledger[member]) > 0, nil
}

// TotalXp implements leveling.Store.
func (s *Store) TotalXp(_ context.Context, member types.Member) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.ledger[member]
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w (userID=%d, guildID=%d)", types.ErrMemberNotFound, member.UserID, member.GuildID)
	}

	return sumDeltas(entries), nil
}

// Standings implements leveling.Store.
func (s *Store) Standings(_ context.Context, guildID uint64) ([]*types.Standing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var standings []*types.Standing

	for member, entries := range s.ledger {
		if member.GuildID != guildID || len(entries) == 0 {
			continue
		}

		standings = append(standings, &types.Standing{
			UserID:       member.UserID,
			XP:           sumDeltas(entries),
			FirstEntryID: entries[0].ID,
		})
	}

	return standings, nil
}

// Entries implements leveling.Store.
func (s *Store) Entries(_ context.Context, filter types.LedgerFilter, limit int) ([]*types.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*types.LedgerEntry

	for member, memberEntries := range s.ledger {
		if filter.GuildID != 0 && member.GuildID != filter.GuildID {
			continue
		}

		if filter.UserID != 0 && member.UserID != filter.UserID {
			continue
		}

		for _, entry := range memberEntries {
			if entry.ID <= filter.AfterID {
				continue
			}

			if filter.Kind != nil && entry.Kind != *filter.Kind {
				continue
			}

			clone := *entry
			entries = append(entries, &clone)
		}
	}

	slices.SortFunc(entries, func(a, b *types.LedgerEntry) int {
		if filter.Newest {
			return cmp.Compare(b.ID, a.ID)
		}

		return cmp.Compare(a.ID, b.ID)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// Rewards implements leveling.Store.
func (s *Store) Rewards(_ context.Context, guildID uint64) ([]*types.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rewards := make([]*types.Reward, 0, len(s.rewards[guildID]))
	for _, reward := range s.rewards[guildID] {
		clone := *reward
		rewards = append(rewards, &clone)
	}

	return rewards, nil
}

// UpsertReward implements leveling.Store.
func (s *Store) UpsertReward(_ context.Context, reward *types.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	guildRewards, ok := s.rewards[reward.GuildID]
	if !ok {
		guildRewards = make(map[uint64]*types.Reward)
		s.rewards[reward.GuildID] = guildRewards
	}

	clone := *reward
	if existing, ok := guildRewards[reward.RoleID]; ok {
		clone.CreatedAt = existing.CreatedAt
	}

	guildRewards[reward.RoleID] = &clone

	return nil
}

// DeleteReward implements leveling.Store.
func (s *Store) DeleteReward(_ context.Context, guildID, roleID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rewards[guildID][roleID]; !ok {
		return fmt.Errorf("%w (guildID=%d, roleID=%d)", types.ErrRewardNotFound, guildID, roleID)
	}

	delete(s.rewards[guildID], roleID)

	return nil
}

// IgnoredTargets implements leveling.Store.
func (s *Store) IgnoredTargets(_ context.Context, guildID uint64, ids []uint64) (map[uint64]enum.IgnoreTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flagged := make(map[uint64]enum.IgnoreTarget)
	for _, id := range ids {
		if flag, ok := s.ignores[guildID][id]; ok {
			flagged[id] = flag.Target
		}
	}

	return flagged, nil
}

// SetIgnoreFlags implements leveling.Store.
func (s *Store) SetIgnoreFlags(_ context.Context, flags []*types.IgnoreFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, flag := range flags {
		guildFlags, ok := s.ignores[flag.GuildID]
		if !ok {
			guildFlags = make(map[uint64]*types.IgnoreFlag)
			s.ignores[flag.GuildID] = guildFlags
		}

		clone := *flag
		guildFlags[flag.TargetID] = &clone
	}

	return nil
}

// ClearIgnoreFlags implements leveling.Store.
func (s *Store) ClearIgnoreFlags(_ context.Context, guildID uint64, targetIDs []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range targetIDs {
		delete(s.ignores[guildID], id)
	}

	return nil
}

// memberTx stages appends for one member until the unit commits.
type memberTx struct {
	store  *Store
	member types.Member
	staged []*types.LedgerEntry
}

func (tx *memberTx) committed() []*types.LedgerEntry {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	return slices.Clone(tx.store.ledger[tx.member])
}

func (tx *memberTx) Seen(_ context.Context) (bool, error) {
	return len(tx.staged) > 0 || len(tx.committed()) > 0, nil
}

func (tx *memberTx) TotalXp(_ context.Context) (int64, error) {
	return sumDeltas(tx.committed()) + sumDeltas(tx.staged), nil
}

func (tx *memberTx) LastEarned(_ context.Context) (*types.LedgerEntry, error) {
	entries := append(tx.committed(), tx.staged...)

	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind == enum.EntryKindEarned {
			clone := *entries[i]
			return &clone, nil
		}
	}

	return nil, nil
}

func (tx *memberTx) Append(ctx context.Context, entry *types.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry.UserID = tx.member.UserID
	entry.GuildID = tx.member.GuildID
	tx.staged = append(tx.staged, entry)

	return nil
}

func sumDeltas(entries []*types.LedgerEntry) int64 {
	var total int64
	for _, entry := range entries {
		total += entry.Delta
	}

	return total
}

func stripeFor(member types.Member) uint64 {
	return uint64(member.LockKey()) % stripeCount
}
