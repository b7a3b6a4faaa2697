package commands

import (
	"context"

	"github.com/robalyx/levels/internal/export"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// ExportCommands returns the ledger export command.
func ExportCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "export",
			Usage: "Export guild ledgers to files",
			Description: `Writes one file per guild plus a manifest.json to the configured
output directory. Member ids are pseudonymized when export.salt is set.

Examples:
  levels export --format sqlite              # Every guild
  levels export --format csv -g 123 -g 456   # Selected guilds`,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Usage:   "Output format (sqlite, csv or binary)",
					Value:   string(export.FormatSQLite),
				},
				&cli.StringSliceFlag{
					Name:    "guild",
					Aliases: []string{"g"},
					Usage:   "Guild to export, repeatable. Defaults to every guild",
				},
			},
			Action: handleExport(deps),
		},
	}
}

// handleExport handles the 'export' command.
func handleExport(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		format, err := export.ParseFormat(c.String("format"))
		if err != nil {
			return err
		}

		var guildIDs []uint64

		for _, raw := range c.StringSlice("guild") {
			id, err := parseID("guild", raw)
			if err != nil {
				return err
			}

			guildIDs = append(guildIDs, id)
		}

		manifest, err := deps.Exporter.Export(ctx, format, guildIDs)
		if err != nil {
			return err
		}

		for _, guild := range manifest.Guilds {
			deps.Logger.Info("Exported guild",
				zap.Uint64("guildID", guild.GuildID),
				zap.String("file", guild.File),
				zap.Int("entries", guild.Entries),
				zap.Int("members", guild.Members))
		}

		deps.Logger.Info("Export completed",
			zap.String("format", string(manifest.Format)),
			zap.Int("guilds", len(manifest.Guilds)),
			zap.Bool("pseudonymized", manifest.Pseudonymized))

		return nil
	}
}
