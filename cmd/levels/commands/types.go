package commands

import (
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/export"
	"github.com/robalyx/levels/internal/leveling"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var (
	ErrRoleRequired   = errors.New("ROLE argument required")
	ErrTokensRequired = errors.New("at least one TARGET argument required")
	ErrAmountRequired = errors.New("--amount or --all required")
)

// CLIDependencies holds the common dependencies needed by CLI commands.
type CLIDependencies struct {
	Engine   *leveling.Engine
	Exporter *export.Exporter
	Logger   *zap.Logger
}

// guildFlag is shared by every command scoped to one guild.
func guildFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "guild",
		Aliases:  []string{"g"},
		Usage:    "Guild ID",
		Required: true,
	}
}

// userFlag selects a member within the guild.
func userFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "User ID",
		Required: required,
	}
}

// actorFlag records who performed an admin mutation.
func actorFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "actor",
		Usage: "ID of the admin performing the change",
	}
}

// parseID parses a snowflake given as a flag value or argument.
func parseID(name, raw string) (uint64, error) {
	id, err := snowflake.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}

	return uint64(id), nil
}

// optionalID parses the flag when it is set and returns 0 otherwise.
func optionalID(c *cli.Command, name string) (uint64, error) {
	if !c.IsSet(name) {
		return 0, nil
	}

	return parseID(name, c.String(name))
}

// guildID parses the --guild flag.
func guildID(c *cli.Command) (uint64, error) {
	return parseID("guild", c.String("guild"))
}

// member parses the --guild and --user flags.
func member(c *cli.Command) (types.Member, error) {
	gid, err := guildID(c)
	if err != nil {
		return types.Member{}, err
	}

	uid, err := parseID("user", c.String("user"))
	if err != nil {
		return types.Member{}, err
	}

	return types.Member{UserID: uid, GuildID: gid}, nil
}
