package commands

import (
	"context"

	"github.com/robalyx/levels/internal/leveling"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// IgnoreCommands returns the ignore and unignore commands.
func IgnoreCommands(deps *CLIDependencies) []*cli.Command {
	description := `Targets are ids or mentions of members, roles and channels.

Examples:
  levels ignore -g 123 "<@456>" "<@&789>" "<#1011>"
  levels unignore -g 123 456`

	return []*cli.Command{
		{
			Name:        "ignore",
			Usage:       "Stop TARGETs from earning XP",
			ArgsUsage:   "TARGET...",
			Description: description,
			Flags:       []cli.Flag{guildFlag(), actorFlag()},
			Action:      handleIgnore(deps, true),
		},
		{
			Name:        "unignore",
			Usage:       "Let TARGETs earn XP again",
			ArgsUsage:   "TARGET...",
			Description: description,
			Flags:       []cli.Flag{guildFlag(), actorFlag()},
			Action:      handleIgnore(deps, false),
		},
	}
}

// handleIgnore handles the 'ignore' and 'unignore' commands.
func handleIgnore(deps *CLIDependencies, ignored bool) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() == 0 {
			return ErrTokensRequired
		}

		gid, err := guildID(c)
		if err != nil {
			return err
		}

		actorID, err := optionalID(c, "actor")
		if err != nil {
			return err
		}

		summary, err := deps.Engine.SetIgnored(ctx, leveling.IgnoreRequest{
			GuildID: gid,
			Tokens:  c.Args().Slice(),
			Ignored: ignored,
			ActorID: actorID,
		})
		if err != nil {
			return err
		}

		for _, result := range summary.Unresolved() {
			deps.Logger.Warn("Skipped target",
				zap.String("token", result.Token),
				zap.String("reason", result.Reason))
		}

		deps.Logger.Info("Updated ignore flags",
			zap.Uint64("guildID", gid),
			zap.Bool("ignored", ignored),
			zap.Int("applied", summary.Applied))

		return nil
	}
}
