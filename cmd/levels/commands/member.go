package commands

import (
	"context"

	"github.com/robalyx/levels/internal/leveling"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// MemberCommands returns the commands that read or change a member's XP.
func MemberCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "award",
			Usage: "Grant XP to a member",
			Flags: []cli.Flag{
				guildFlag(),
				userFlag(true),
				actorFlag(),
				&cli.IntFlag{
					Name:     "amount",
					Aliases:  []string{"a"},
					Usage:    "XP to grant",
					Required: true,
				},
			},
			Action: handleAward(deps),
		},
		{
			Name:  "reclaim",
			Usage: "Take XP from a member",
			Description: `The amount is clamped to the member's current XP.

Examples:
  levels reclaim -g 123 -u 456 --amount 50   # Take 50 XP
  levels reclaim -g 123 -u 456 --all         # Reset the member to zero`,
			Flags: []cli.Flag{
				guildFlag(),
				userFlag(true),
				actorFlag(),
				&cli.IntFlag{
					Name:    "amount",
					Aliases: []string{"a"},
					Usage:   "XP to take",
				},
				&cli.BoolFlag{
					Name:  "all",
					Usage: "Take all of the member's XP",
				},
			},
			Action: handleReclaim(deps),
		},
		{
			Name:   "level",
			Usage:  "Show a member's level and next reward",
			Flags:  []cli.Flag{guildFlag(), userFlag(true)},
			Action: handleLevel(deps),
		},
		{
			Name:  "history",
			Usage: "Show a member's most recent ledger entries",
			Flags: []cli.Flag{
				guildFlag(),
				userFlag(true),
				&cli.IntFlag{
					Name:  "limit",
					Usage: "Maximum entries to show",
					Value: 20,
				},
			},
			Action: handleHistory(deps),
		},
	}
}

// handleAward handles the 'award' command.
func handleAward(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		m, err := member(c)
		if err != nil {
			return err
		}

		actorID, err := optionalID(c, "actor")
		if err != nil {
			return err
		}

		result, err := deps.Engine.AwardXp(ctx, leveling.AwardRequest{
			Member:  m,
			Amount:  c.Int("amount"),
			ActorID: actorID,
		})
		if err != nil {
			return err
		}

		deps.Logger.Info("Awarded XP",
			zap.Stringer("member", m),
			zap.Int64("amount", c.Int("amount")),
			zap.Int64("totalXp", result.TotalXp),
			zap.Int("previousLevel", result.PreviousLevel),
			zap.Int("currentLevel", result.CurrentLevel))

		return nil
	}
}

// handleReclaim handles the 'reclaim' command.
func handleReclaim(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if !c.IsSet("amount") && !c.Bool("all") {
			return ErrAmountRequired
		}

		m, err := member(c)
		if err != nil {
			return err
		}

		actorID, err := optionalID(c, "actor")
		if err != nil {
			return err
		}

		result, err := deps.Engine.ReclaimXp(ctx, leveling.ReclaimRequest{
			Member:  m,
			Amount:  c.Int("amount"),
			All:     c.Bool("all"),
			ActorID: actorID,
		})
		if err != nil {
			return err
		}

		deps.Logger.Info("Reclaimed XP",
			zap.Stringer("member", m),
			zap.Int64("xpTaken", result.XpTaken),
			zap.Int64("totalXp", result.TotalXp),
			zap.Int("previousLevel", result.PreviousLevel),
			zap.Int("currentLevel", result.CurrentLevel))

		return nil
	}
}

// handleLevel handles the 'level' command.
func handleLevel(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		m, err := member(c)
		if err != nil {
			return err
		}

		info, err := deps.Engine.GetLevel(ctx, m)
		if err != nil {
			return err
		}

		fields := []zap.Field{
			zap.Stringer("member", m),
			zap.Int64("xp", info.Xp),
			zap.Int("level", info.Level),
			zap.Int64("levelProgress", info.LevelProgress),
			zap.Int64("xpForNextLevel", info.XpForNextLevel),
		}

		if info.NextRewardRoleID != nil {
			fields = append(fields,
				zap.Uint64("nextRewardRoleID", *info.NextRewardRoleID),
				zap.Int("nextRewardLevel", *info.NextRewardLevel))
		}

		deps.Logger.Info("Member level", fields...)

		return nil
	}
}

// handleHistory handles the 'history' command.
func handleHistory(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		m, err := member(c)
		if err != nil {
			return err
		}

		entries, err := deps.Engine.History(ctx, m, int(max(c.Int("limit"), 1)))
		if err != nil {
			return err
		}

		for _, entry := range entries {
			deps.Logger.Info("Ledger entry",
				zap.Int64("id", entry.ID),
				zap.String("kind", entry.Kind.String()),
				zap.Int64("delta", entry.Delta),
				zap.Uint64("actorID", entry.ActorID),
				zap.Time("createdAt", entry.CreatedAt))
		}

		deps.Logger.Info("Ledger history", zap.Stringer("member", m), zap.Int("entries", len(entries)))

		return nil
	}
}
