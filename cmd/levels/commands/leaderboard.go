package commands

import (
	"context"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// LeaderboardCommands returns the leaderboard command.
func LeaderboardCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "leaderboard",
			Usage: "Show a guild's ranking",
			Description: `Without --user the first page is shown. With --user the page
is centered on that member.`,
			Flags:  []cli.Flag{guildFlag(), userFlag(false)},
			Action: handleLeaderboard(deps),
		},
	}
}

// handleLeaderboard handles the 'leaderboard' command.
func handleLeaderboard(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		gid, err := guildID(c)
		if err != nil {
			return err
		}

		var userID *uint64

		if c.IsSet("user") {
			uid, err := parseID("user", c.String("user"))
			if err != nil {
				return err
			}

			userID = &uid
		}

		board, err := deps.Engine.GetLeaderboard(ctx, gid, userID)
		if err != nil {
			return err
		}

		for _, entry := range board.Entries {
			deps.Logger.Info("Rank",
				zap.Int("rank", entry.Rank),
				zap.Uint64("userID", entry.UserID),
				zap.Int64("xp", entry.XP))
		}

		deps.Logger.Info("Leaderboard",
			zap.Uint64("guildID", gid),
			zap.Int("shown", len(board.Entries)),
			zap.Int("totalMembers", board.TotalMembers))

		return nil
	}
}
