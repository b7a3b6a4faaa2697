package models

import (
	"context"
	"fmt"

	"github.com/robalyx/levels/internal/database/dbretry"
	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// IgnoreModel handles database operations for ignore flags.
type IgnoreModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewIgnore creates an IgnoreModel.
func NewIgnore(db *bun.DB, logger *zap.Logger) *IgnoreModel {
	return &IgnoreModel{
		db:     db,
		logger: logger.Named("db_ignore"),
	}
}

// GetIgnoredTargets returns which of the given ids are flagged in a guild.
func (r *IgnoreModel) GetIgnoredTargets(
	ctx context.Context, guildID uint64, targetIDs []uint64,
) (map[uint64]enum.IgnoreTarget, error) {
	if len(targetIDs) == 0 {
		return map[uint64]enum.IgnoreTarget{}, nil
	}

	return dbretry.Operation(ctx, func(ctx context.Context) (map[uint64]enum.IgnoreTarget, error) {
		var flags []*types.IgnoreFlag

		err := r.db.NewSelect().
			Model(&flags).
			Column("target_id", "target").
			Where("guild_id = ?", guildID).
			Where("target_id IN (?)", bun.In(targetIDs)).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get ignore flags: %w (guildID=%d)", err, guildID)
		}

		flagged := make(map[uint64]enum.IgnoreTarget, len(flags))
		for _, flag := range flags {
			flagged[flag.TargetID] = flag.Target
		}

		return flagged, nil
	})
}

// SetIgnoreFlags flags targets, overwriting the kind and actor of
// targets that were already flagged.
func (r *IgnoreModel) SetIgnoreFlags(ctx context.Context, flags []*types.IgnoreFlag) error {
	if len(flags) == 0 {
		return nil
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().
			Model(&flags).
			On("CONFLICT (guild_id, target_id) DO UPDATE").
			Set("target = EXCLUDED.target").
			Set("actor_id = EXCLUDED.actor_id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set ignore flags: %w (count=%d)", err, len(flags))
		}

		return nil
	})
}

// ClearIgnoreFlags removes the flags of the given targets.
func (r *IgnoreModel) ClearIgnoreFlags(ctx context.Context, guildID uint64, targetIDs []uint64) error {
	if len(targetIDs) == 0 {
		return nil
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewDelete().
			Model((*types.IgnoreFlag)(nil)).
			Where("guild_id = ?", guildID).
			Where("target_id IN (?)", bun.In(targetIDs)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear ignore flags: %w (guildID=%d)", err, guildID)
		}

		return nil
	})
}
