package models

import (
	"context"
	"fmt"

	"github.com/robalyx/levels/internal/database/dbretry"
	"github.com/robalyx/levels/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// RewardModel handles database operations for level rewards.
type RewardModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewReward creates a RewardModel.
func NewReward(db *bun.DB, logger *zap.Logger) *RewardModel {
	return &RewardModel{
		db:     db,
		logger: logger.Named("db_reward"),
	}
}

// GetRewards returns every reward of a guild.
func (r *RewardModel) GetRewards(ctx context.Context, guildID uint64) ([]*types.Reward, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Reward, error) {
		var rewards []*types.Reward

		err := r.db.NewSelect().
			Model(&rewards).
			Where("guild_id = ?", guildID).
			Order("min_level ASC", "role_id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get rewards: %w (guildID=%d)", err, guildID)
		}

		return rewards, nil
	})
}

// UpsertReward creates a reward or moves an existing one to a new level.
// The original creation time is kept.
func (r *RewardModel) UpsertReward(ctx context.Context, reward *types.Reward) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(reward).
			On("CONFLICT (guild_id, role_id) DO UPDATE").
			Set("min_level = EXCLUDED.min_level").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save reward: %w (guildID=%d, roleID=%d)", err, reward.GuildID, reward.RoleID)
		}

		return nil
	})
}

// DeleteReward removes a role's reward.
func (r *RewardModel) DeleteReward(ctx context.Context, guildID, roleID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := r.db.NewDelete().
			Model((*types.Reward)(nil)).
			Where("guild_id = ?", guildID).
			Where("role_id = ?", roleID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete reward: %w (guildID=%d, roleID=%d)", err, guildID, roleID)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}

		if affected == 0 {
			return fmt.Errorf("%w (guildID=%d, roleID=%d)", types.ErrRewardNotFound, guildID, roleID)
		}

		return nil
	})
}
