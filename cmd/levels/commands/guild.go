package commands

import (
	"context"
	"time"

	"github.com/robalyx/levels/internal/database/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// GuildCommands returns all guild settings commands.
func GuildCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "guild",
			Usage: "Manage guild leveling settings",
			Commands: []*cli.Command{
				{
					Name:   "init",
					Usage:  "Create settings from the configured defaults",
					Flags:  []cli.Flag{guildFlag()},
					Action: handleGuildInit(deps),
				},
				{
					Name:   "show",
					Usage:  "Show the guild's settings",
					Flags:  []cli.Flag{guildFlag()},
					Action: handleGuildShow(deps),
				},
				{
					Name:   "enable",
					Usage:  "Enable XP gain",
					Flags:  []cli.Flag{guildFlag()},
					Action: handleGuildToggle(deps, true),
				},
				{
					Name:   "disable",
					Usage:  "Disable XP gain",
					Flags:  []cli.Flag{guildFlag()},
					Action: handleGuildToggle(deps, false),
				},
				{
					Name:  "set",
					Usage: "Change curve, amount, cooldown or log channel",
					Description: `Only the given flags are changed.

Examples:
  levels guild set -g 123 --base 100 --modifier 50   # Steeper curve
  levels guild set -g 123 --cooldown 30              # 30 second cooldown
  levels guild set -g 123 --log-channel 0            # Stop level-up logging`,
					Flags: []cli.Flag{
						guildFlag(),
						&cli.IntFlag{Name: "base", Usage: "Threshold of the first level-up"},
						&cli.IntFlag{Name: "modifier", Usage: "Curve steepness as a percentage"},
						&cli.IntFlag{Name: "amount", Usage: "XP granted per admitted activity event"},
						&cli.IntFlag{Name: "cooldown", Usage: "Seconds between earning events"},
						&cli.StringFlag{Name: "log-channel", Usage: "Channel for level-up logs, 0 to clear"},
					},
					Action: handleGuildSet(deps),
				},
			},
		},
	}
}

// handleGuildInit handles the 'guild init' command.
func handleGuildInit(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		gid, err := guildID(c)
		if err != nil {
			return err
		}

		settings, err := deps.Engine.EnsureGuildSettings(ctx, gid)
		if err != nil {
			return err
		}

		logSettings(deps.Logger, "Guild settings ready", settings)

		return nil
	}
}

// handleGuildShow handles the 'guild show' command.
func handleGuildShow(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		gid, err := guildID(c)
		if err != nil {
			return err
		}

		settings, err := deps.Engine.GuildSettings(ctx, gid)
		if err != nil {
			return err
		}

		logSettings(deps.Logger, "Guild settings", settings)

		return nil
	}
}

// handleGuildToggle handles the 'guild enable' and 'guild disable' commands.
func handleGuildToggle(deps *CLIDependencies, enabled bool) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		gid, err := guildID(c)
		if err != nil {
			return err
		}

		settings, err := deps.Engine.GuildSettings(ctx, gid)
		if err != nil {
			return err
		}

		settings.ModuleEnabled = enabled

		if err := deps.Engine.ConfigureGuild(ctx, settings); err != nil {
			return err
		}

		deps.Logger.Info("Updated leveling module",
			zap.Uint64("guildID", gid),
			zap.Bool("enabled", enabled))

		return nil
	}
}

// handleGuildSet handles the 'guild set' command.
func handleGuildSet(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		gid, err := guildID(c)
		if err != nil {
			return err
		}

		settings, err := deps.Engine.GuildSettings(ctx, gid)
		if err != nil {
			return err
		}

		if c.IsSet("base") {
			settings.Base = int(c.Int("base"))
		}

		if c.IsSet("modifier") {
			settings.Modifier = int(c.Int("modifier"))
		}

		if c.IsSet("amount") {
			settings.Amount = c.Int("amount")
		}

		if c.IsSet("cooldown") {
			settings.Cooldown = time.Duration(c.Int("cooldown")) * time.Second
		}

		if c.IsSet("log-channel") {
			channelID, err := optionalID(c, "log-channel")
			if err != nil {
				return err
			}

			settings.LogChannelID = channelID
		}

		if err := deps.Engine.ConfigureGuild(ctx, settings); err != nil {
			return err
		}

		logSettings(deps.Logger, "Updated guild settings", settings)

		return nil
	}
}

func logSettings(logger *zap.Logger, msg string, settings *types.GuildSetting) {
	logger.Info(msg,
		zap.Uint64("guildID", settings.GuildID),
		zap.Int("base", settings.Base),
		zap.Int("modifier", settings.Modifier),
		zap.Int64("amount", settings.Amount),
		zap.Duration("cooldown", settings.Cooldown),
		zap.Bool("enabled", settings.ModuleEnabled),
		zap.Uint64("logChannelID", settings.LogChannelID))
}
