package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/robalyx/levels/internal/database/dbretry"
	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// LedgerModel handles database operations for the XP ledger.
type LedgerModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewLedger creates a LedgerModel.
func NewLedger(db *bun.DB, logger *zap.Logger) *LedgerModel {
	return &LedgerModel{
		db:     db,
		logger: logger.Named("db_ledger"),
	}
}

// LockMemberWithTx takes the member's advisory lock for the rest of the
// transaction. Concurrent transactions on the same member queue behind it.
func (r *LedgerModel) LockMemberWithTx(ctx context.Context, tx bun.IDB, member types.Member) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(?)", member.LockKey()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to lock member: %w (userID=%d, guildID=%d)", err, member.UserID, member.GuildID)
	}

	return nil
}

// HasEntriesWithTx reports whether the member has any ledger entry.
func (r *LedgerModel) HasEntriesWithTx(ctx context.Context, tx bun.IDB, member types.Member) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*types.LedgerEntry)(nil)).
		Where("guild_id = ?", member.GuildID).
		Where("user_id = ?", member.UserID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check member entries: %w (userID=%d, guildID=%d)",
			err, member.UserID, member.GuildID)
	}

	return exists, nil
}

// TotalXpWithTx returns the sum of the member's deltas and whether the
// member has any entry at all.
func (r *LedgerModel) TotalXpWithTx(ctx context.Context, tx bun.IDB, member types.Member) (int64, bool, error) {
	var result struct {
		Total int64 `bun:"total"`
		Count int64 `bun:"count"`
	}

	err := tx.NewSelect().
		Model((*types.LedgerEntry)(nil)).
		ColumnExpr("COALESCE(SUM(delta), 0) AS total").
		ColumnExpr("COUNT(*) AS count").
		Where("guild_id = ?", member.GuildID).
		Where("user_id = ?", member.UserID).
		Scan(ctx, &result)
	if err != nil {
		return 0, false, fmt.Errorf("failed to sum member XP: %w (userID=%d, guildID=%d)",
			err, member.UserID, member.GuildID)
	}

	return result.Total, result.Count > 0, nil
}

// LastEarnedWithTx returns the member's most recent Earned entry, or nil.
func (r *LedgerModel) LastEarnedWithTx(ctx context.Context, tx bun.IDB, member types.Member) (*types.LedgerEntry, error) {
	var entry types.LedgerEntry

	err := tx.NewSelect().
		Model(&entry).
		Where("guild_id = ?", member.GuildID).
		Where("user_id = ?", member.UserID).
		Where("kind = ?", enum.EntryKindEarned).
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get last earned entry: %w (userID=%d, guildID=%d)",
			err, member.UserID, member.GuildID)
	}

	return &entry, nil
}

// InsertEntryWithTx appends an entry and fills in its ID.
func (r *LedgerModel) InsertEntryWithTx(ctx context.Context, tx bun.IDB, entry *types.LedgerEntry) error {
	_, err := tx.NewInsert().
		Model(entry).
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w (userID=%d, guildID=%d, kind=%s)",
			err, entry.UserID, entry.GuildID, entry.Kind)
	}

	return nil
}

// TotalXp returns the sum of the member's deltas.
func (r *LedgerModel) TotalXp(ctx context.Context, member types.Member) (int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		total, seen, err := r.TotalXpWithTx(ctx, r.db, member)
		if err != nil {
			return 0, err
		}

		if !seen {
			return 0, fmt.Errorf("%w (userID=%d, guildID=%d)", types.ErrMemberNotFound, member.UserID, member.GuildID)
		}

		return total, nil
	})
}

// MemberExists reports whether the member has any ledger entry.
func (r *LedgerModel) MemberExists(ctx context.Context, member types.Member) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		return r.HasEntriesWithTx(ctx, r.db, member)
	})
}

// GetStandings aggregates every member of a guild into a standing.
// The result is unordered.
func (r *LedgerModel) GetStandings(ctx context.Context, guildID uint64) ([]*types.Standing, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Standing, error) {
		var standings []*types.Standing

		err := r.db.NewSelect().
			Model((*types.LedgerEntry)(nil)).
			Column("user_id").
			ColumnExpr("SUM(delta) AS xp").
			ColumnExpr("MIN(id) AS first_entry_id").
			Where("guild_id = ?", guildID).
			Group("user_id").
			Scan(ctx, &standings)
		if err != nil {
			return nil, fmt.Errorf("failed to get standings: %w (guildID=%d)", err, guildID)
		}

		return standings, nil
	})
}

// GetEntries returns the entries matching filter, oldest first unless
// filter.Newest is set. A limit of zero returns everything.
func (r *LedgerModel) GetEntries(ctx context.Context, filter types.LedgerFilter, limit int) ([]*types.LedgerEntry, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.LedgerEntry, error) {
		var entries []*types.LedgerEntry

		query := r.db.NewSelect().Model(&entries)

		if filter.GuildID != 0 {
			query.Where("guild_id = ?", filter.GuildID)
		}

		if filter.UserID != 0 {
			query.Where("user_id = ?", filter.UserID)
		}

		if filter.Kind != nil {
			query.Where("kind = ?", *filter.Kind)
		}

		if filter.AfterID > 0 {
			query.Where("id > ?", filter.AfterID)
		}

		if filter.Newest {
			query.Order("id DESC")
		} else {
			query.Order("id ASC")
		}

		if limit > 0 {
			query.Limit(limit)
		}

		if err := query.Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to get ledger entries: %w (guildID=%d, userID=%d)",
				err, filter.GuildID, filter.UserID)
		}

		return entries, nil
	})
}
