package database

import (
	"context"
	"fmt"

	"github.com/robalyx/levels/internal/database/dbretry"
	"github.com/robalyx/levels/internal/database/models"
	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/database/types/enum"
	"github.com/robalyx/levels/internal/leveling"
	"github.com/uptrace/bun"
)

var _ leveling.Store = (*Store)(nil)

// Store implements leveling.Store on PostgreSQL. Member units run in a
// transaction holding the member's advisory lock.
type Store struct {
	db   *bun.DB
	repo *Repository
}

// NewStore creates a Store on top of the repository models.
func NewStore(db *bun.DB, repo *Repository) *Store {
	return &Store{db: db, repo: repo}
}

// GuildSettings implements leveling.Store.
func (s *Store) GuildSettings(ctx context.Context, guildID uint64) (*types.GuildSetting, error) {
	return s.repo.Setting().GetGuildSettings(ctx, guildID)
}

// SaveGuildSettings implements leveling.Store.
func (s *Store) SaveGuildSettings(ctx context.Context, settings *types.GuildSetting) error {
	return s.repo.Setting().SaveGuildSettings(ctx, settings)
}

// GuildIDs implements leveling.Store.
func (s *Store) GuildIDs(ctx context.Context) ([]uint64, error) {
	return s.repo.Setting().GetGuildIDs(ctx)
}

// WithMember implements leveling.Store. A retried transaction runs fn again
// from the start against fresh reads.
func (s *Store) WithMember(
	ctx context.Context, member types.Member, fn func(ctx context.Context, tx leveling.MemberTx) error,
) error {
	ledger := s.repo.Ledger()

	err := dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		if err := ledger.LockMemberWithTx(ctx, tx, member); err != nil {
			return err
		}

		return fn(ctx, &memberTx{tx: tx, ledger: ledger, member: member})
	})
	if err != nil {
		return fmt.Errorf("member unit failed: %w", err)
	}

	return nil
}

// MemberExists implements leveling.Store.
func (s *Store) MemberExists(ctx context.Context, member types.Member) (bool, error) {
	return s.repo.Ledger().MemberExists(ctx, member)
}

// TotalXp implements leveling.Store.
func (s *Store) TotalXp(ctx context.Context, member types.Member) (int64, error) {
	return s.repo.Ledger().TotalXp(ctx, member)
}

// Standings implements leveling.Store.
func (s *Store) Standings(ctx context.Context, guildID uint64) ([]*types.Standing, error) {
	return s.repo.Ledger().GetStandings(ctx, guildID)
}

// Entries implements leveling.Store.
func (s *Store) Entries(ctx context.Context, filter types.LedgerFilter, limit int) ([]*types.LedgerEntry, error) {
	return s.repo.Ledger().GetEntries(ctx, filter, limit)
}

// Rewards implements leveling.Store.
func (s *Store) Rewards(ctx context.Context, guildID uint64) ([]*types.Reward, error) {
	return s.repo.Reward().GetRewards(ctx, guildID)
}

// UpsertReward implements leveling.Store.
func (s *Store) UpsertReward(ctx context.Context, reward *types.Reward) error {
	return s.repo.Reward().UpsertReward(ctx, reward)
}

// DeleteReward implements leveling.Store.
func (s *Store) DeleteReward(ctx context.Context, guildID, roleID uint64) error {
	return s.repo.Reward().DeleteReward(ctx, guildID, roleID)
}

// IgnoredTargets implements leveling.Store.
func (s *Store) IgnoredTargets(ctx context.Context, guildID uint64, ids []uint64) (map[uint64]enum.IgnoreTarget, error) {
	return s.repo.Ignore().GetIgnoredTargets(ctx, guildID, ids)
}

// SetIgnoreFlags implements leveling.Store.
func (s *Store) SetIgnoreFlags(ctx context.Context, flags []*types.IgnoreFlag) error {
	return s.repo.Ignore().SetIgnoreFlags(ctx, flags)
}

// ClearIgnoreFlags implements leveling.Store.
func (s *Store) ClearIgnoreFlags(ctx context.Context, guildID uint64, targetIDs []uint64) error {
	return s.repo.Ignore().ClearIgnoreFlags(ctx, guildID, targetIDs)
}

// memberTx reads and appends through the unit's transaction, so appends
// are visible to later reads of the same unit.
type memberTx struct {
	tx     bun.Tx
	ledger *models.LedgerModel
	member types.Member
}

func (m *memberTx) Seen(ctx context.Context) (bool, error) {
	return m.ledger.HasEntriesWithTx(ctx, m.tx, m.member)
}

func (m *memberTx) TotalXp(ctx context.Context) (int64, error) {
	total, _, err := m.ledger.TotalXpWithTx(ctx, m.tx, m.member)
	return total, err
}

func (m *memberTx) LastEarned(ctx context.Context) (*types.LedgerEntry, error) {
	return m.ledger.LastEarnedWithTx(ctx, m.tx, m.member)
}

func (m *memberTx) Append(ctx context.Context, entry *types.LedgerEntry) error {
	entry.UserID = m.member.UserID
	entry.GuildID = m.member.GuildID

	return m.ledger.InsertEntryWithTx(ctx, m.tx, entry)
}
