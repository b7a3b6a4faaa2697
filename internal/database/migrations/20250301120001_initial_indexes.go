package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/levels/internal/database/types/enum"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			-- Member history and totals
			CREATE INDEX IF NOT EXISTS idx_ledger_entries_member
			ON ledger_entries (guild_id, user_id, id DESC);

			-- Cooldown lookups only ever read earned entries
			CREATE INDEX IF NOT EXISTS idx_ledger_entries_member_earned
			ON ledger_entries (guild_id, user_id, id DESC)
			WHERE kind = ?;

			-- Guild exports and standings
			CREATE INDEX IF NOT EXISTS idx_ledger_entries_guild
			ON ledger_entries (guild_id, id);

			CREATE INDEX IF NOT EXISTS idx_rewards_guild_level
			ON rewards (guild_id, min_level);
		`, enum.EntryKindEarned).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			DROP INDEX IF EXISTS idx_ledger_entries_member;
			DROP INDEX IF EXISTS idx_ledger_entries_member_earned;
			DROP INDEX IF EXISTS idx_ledger_entries_guild;
			DROP INDEX IF EXISTS idx_rewards_guild_level;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop indexes: %w", err)
		}

		return nil
	})
}
