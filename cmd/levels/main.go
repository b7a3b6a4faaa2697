package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/robalyx/levels/cmd/levels/commands"
	"github.com/robalyx/levels/internal/export"
	"github.com/robalyx/levels/internal/setup"
	"github.com/robalyx/levels/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
)

const (
	// LevelsLogDir specifies where admin CLI log files are stored.
	LevelsLogDir = "logs/levels_logs"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, telemetry.ServiceLevels, LevelsLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	deps := &commands.CLIDependencies{
		Engine:   app.Engine,
		Exporter: export.New(app.DB.Store(), &app.Config.Leveling.Export, app.Logger),
		Logger:   app.Logger,
	}

	cmd := &cli.Command{
		Name:  "levels",
		Usage: "Leveling administration tool",
		Commands: slices.Concat(
			commands.GuildCommands(deps),
			commands.MemberCommands(deps),
			commands.LeaderboardCommands(deps),
			commands.RewardCommands(deps),
			commands.IgnoreCommands(deps),
			commands.ExportCommands(deps),
		),
	}

	return cmd.Run(ctx, os.Args)
}
