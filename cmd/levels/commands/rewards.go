package commands

import (
	"context"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// RewardCommands returns all reward role commands.
func RewardCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "rewards",
			Usage: "Manage level reward roles",
			Commands: []*cli.Command{
				{
					Name:      "set",
					Usage:     "Grant ROLE at a minimum level, replacing any earlier level",
					ArgsUsage: "ROLE",
					Flags: []cli.Flag{
						guildFlag(),
						&cli.IntFlag{
							Name:     "level",
							Aliases:  []string{"l"},
							Usage:    "Minimum level",
							Required: true,
						},
					},
					Action: handleRewardSet(deps),
				},
				{
					Name:   "list",
					Usage:  "List rewards in level order",
					Flags:  []cli.Flag{guildFlag()},
					Action: handleRewardList(deps),
				},
				{
					Name:      "remove",
					Usage:     "Remove the reward for ROLE",
					ArgsUsage: "ROLE",
					Flags:     []cli.Flag{guildFlag()},
					Action:    handleRewardRemove(deps),
				},
			},
		},
	}
}

// handleRewardSet handles the 'rewards set' command.
func handleRewardSet(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		gid, roleID, err := rewardTarget(c)
		if err != nil {
			return err
		}

		level := int(c.Int("level"))
		if err := deps.Engine.SetReward(ctx, gid, roleID, level); err != nil {
			return err
		}

		deps.Logger.Info("Set reward",
			zap.Uint64("guildID", gid),
			zap.Uint64("roleID", roleID),
			zap.Int("minLevel", level))

		return nil
	}
}

// handleRewardList handles the 'rewards list' command.
func handleRewardList(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		gid, err := guildID(c)
		if err != nil {
			return err
		}

		rewards, err := deps.Engine.GetRewards(ctx, gid)
		if err != nil {
			return err
		}

		for _, reward := range rewards {
			deps.Logger.Info("Reward",
				zap.Uint64("roleID", reward.RoleID),
				zap.Int("minLevel", reward.MinLevel))
		}

		deps.Logger.Info("Rewards", zap.Uint64("guildID", gid), zap.Int("count", len(rewards)))

		return nil
	}
}

// handleRewardRemove handles the 'rewards remove' command.
func handleRewardRemove(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		gid, roleID, err := rewardTarget(c)
		if err != nil {
			return err
		}

		if err := deps.Engine.RemoveReward(ctx, gid, roleID); err != nil {
			return err
		}

		deps.Logger.Info("Removed reward", zap.Uint64("guildID", gid), zap.Uint64("roleID", roleID))

		return nil
	}
}

func rewardTarget(c *cli.Command) (uint64, uint64, error) {
	if c.Args().Len() != 1 {
		return 0, 0, ErrRoleRequired
	}

	gid, err := guildID(c)
	if err != nil {
		return 0, 0, err
	}

	roleID, err := parseID("role", c.Args().First())
	if err != nil {
		return 0, 0, err
	}

	return gid, roleID, nil
}
