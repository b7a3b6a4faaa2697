package commands

import (
	"context"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// StatsCommands returns ledger inspection commands.
func StatsCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "stats",
			Usage: "Summarize the ledger of every configured guild",
			Description: `Reports member counts and XP totals per guild, straight from the
ledger and bypassing every cache. Useful after a migration or restore.`,
			Action: handleStats(deps),
		},
	}
}

// handleStats handles the 'stats' command.
func handleStats(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		repo := deps.DB.Model()

		guildIDs, err := repo.Setting().GetGuildIDs(ctx)
		if err != nil {
			return err
		}

		var members int

		for _, guildID := range guildIDs {
			standings, err := repo.Ledger().GetStandings(ctx, guildID)
			if err != nil {
				return err
			}

			var total, top int64
			for _, standing := range standings {
				total += standing.XP
				top = max(top, standing.XP)
			}

			members += len(standings)

			deps.Logger.Info("Guild ledger",
				zap.Uint64("guildID", guildID),
				zap.Int("members", len(standings)),
				zap.Int64("totalXp", total),
				zap.Int64("topXp", top))
		}

		deps.Logger.Info("Ledger summary",
			zap.Int("guilds", len(guildIDs)),
			zap.Int("members", members))

		return nil
	}
}
