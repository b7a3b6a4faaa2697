package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/robalyx/levels/internal/database/dbretry"
	"github.com/robalyx/levels/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// SettingModel handles database operations for guild settings.
type SettingModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSetting creates a SettingModel with database access.
func NewSetting(db *bun.DB, logger *zap.Logger) *SettingModel {
	return &SettingModel{
		db:     db,
		logger: logger.Named("db_setting"),
	}
}

// GetGuildSettings retrieves the settings of a guild.
func (r *SettingModel) GetGuildSettings(ctx context.Context, guildID uint64) (*types.GuildSetting, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.GuildSetting, error) {
		settings := &types.GuildSetting{GuildID: guildID}

		err := r.db.NewSelect().Model(settings).
			WherePK().
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w (guildID=%d)", types.ErrGuildSettingsNotFound, guildID)
			}

			return nil, fmt.Errorf("failed to get guild settings: %w (guildID=%d)", err, guildID)
		}

		return settings, nil
	})
}

// SaveGuildSettings updates or creates guild settings.
func (r *SettingModel) SaveGuildSettings(ctx context.Context, settings *types.GuildSetting) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(settings).
			On("CONFLICT (guild_id) DO UPDATE").
			Set("base = EXCLUDED.base").
			Set("modifier = EXCLUDED.modifier").
			Set("amount = EXCLUDED.amount").
			Set("cooldown = EXCLUDED.cooldown").
			Set("module_enabled = EXCLUDED.module_enabled").
			Set("log_channel_id = EXCLUDED.log_channel_id").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save guild settings: %w (guildID=%d)", err, settings.GuildID)
		}

		return nil
	})
}

// GetGuildIDs returns the ids of every configured guild in ascending order.
func (r *SettingModel) GetGuildIDs(ctx context.Context) ([]uint64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]uint64, error) {
		var guildIDs []uint64

		err := r.db.NewSelect().
			Model((*types.GuildSetting)(nil)).
			Column("guild_id").
			Order("guild_id").
			Scan(ctx, &guildIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get guild ids: %w", err)
		}

		return guildIDs, nil
	})
}
