package export

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	dbTypes "github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/export/binary"
	"github.com/robalyx/levels/internal/export/csv"
	"github.com/robalyx/levels/internal/export/sqlite"
	"github.com/robalyx/levels/internal/export/types"
	"github.com/robalyx/levels/internal/leveling"
	"github.com/robalyx/levels/internal/setup/config"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format represents a supported export format.
type Format string

const (
	FormatSQLite Format = "sqlite"
	FormatBinary Format = "binary"
	FormatCSV    Format = "csv"
)

// EngineVersion is bumped on breaking changes to any export format.
const EngineVersion = "1.0.0"

// ManifestFile is written next to the exported files.
const ManifestFile = "manifest.json"

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatSQLite, FormatBinary, FormatCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// GuildSummary describes one exported guild.
type GuildSummary struct {
	GuildID uint64 `json:"guildId,string"`
	File    string `json:"file"`
	Entries int    `json:"entries"`
	Members int    `json:"members"`
	TotalXp int64  `json:"totalXp"`
}

// Manifest describes a completed export.
type Manifest struct {
	EngineVersion string          `json:"engineVersion"`
	Format        Format          `json:"format"`
	GeneratedAt   time.Time       `json:"generatedAt"`
	Pseudonymized bool            `json:"pseudonymized"`
	HashType      HashType        `json:"hashType,omitempty"`
	Iterations    uint32          `json:"iterations,omitempty"`
	Guilds        []*GuildSummary `json:"guilds"`
}

// writer is implemented by every format exporter.
type writer interface {
	Export(guildID uint64, records []*types.Record) (string, error)
}

// Exporter dumps guild ledgers to files.
type Exporter struct {
	store  leveling.Store
	config *config.Export
	logger *zap.Logger
	now    func() time.Time
}

// New creates a new exporter instance.
func New(store leveling.Store, cfg *config.Export, logger *zap.Logger) *Exporter {
	return &Exporter{
		store:  store,
		config: cfg,
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// Export writes the ledger of every listed guild in format, or of every
// configured guild when none are listed. Guilds are exported concurrently
// and the first failure cancels the rest.
func (e *Exporter) Export(ctx context.Context, format Format, guildIDs []uint64) (*Manifest, error) {
	w, err := e.writer(format)
	if err != nil {
		return nil, err
	}

	var pseudonymizer *Pseudonymizer

	manifest := &Manifest{
		EngineVersion: EngineVersion,
		Format:        format,
		GeneratedAt:   e.now().UTC(),
	}

	if e.config.Salt != "" {
		hashType, err := ParseHashType(e.config.HashType)
		if err != nil {
			return nil, err
		}

		pseudonymizer = NewPseudonymizer(
			e.config.Salt, hashType, e.config.Iterations, e.config.Memory, e.config.Concurrency,
		)
		manifest.Pseudonymized = true
		manifest.HashType = hashType
		manifest.Iterations = e.config.Iterations
	}

	if len(guildIDs) == 0 {
		guildIDs, err = e.store.GuildIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list guilds: %w", err)
		}
	}

	if err := os.MkdirAll(e.config.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	e.logger.Info("Starting export",
		zap.String("format", string(format)),
		zap.Int("guilds", len(guildIDs)),
		zap.Bool("pseudonymized", manifest.Pseudonymized),
		zap.String("outputDir", e.config.OutputDir))

	var (
		p  = pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(max(e.config.Concurrency, 1))
		mu sync.Mutex
	)

	for _, guildID := range slices.Compact(slices.Sorted(slices.Values(guildIDs))) {
		p.Go(func(ctx context.Context) error {
			summary, err := e.exportGuild(ctx, w, pseudonymizer, guildID)
			if err != nil {
				return fmt.Errorf("failed to export guild %d: %w", guildID, err)
			}

			mu.Lock()
			manifest.Guilds = append(manifest.Guilds, summary)
			mu.Unlock()

			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(manifest.Guilds, func(a, b *GuildSummary) int {
		return cmp.Compare(a.GuildID, b.GuildID)
	})

	if err := e.writeManifest(manifest); err != nil {
		return nil, err
	}

	e.logger.Info("Export completed",
		zap.String("format", string(format)),
		zap.Int("guilds", len(manifest.Guilds)))

	return manifest, nil
}

// exportGuild pages through a guild's ledger and writes it in one file.
func (e *Exporter) exportGuild(
	ctx context.Context, w writer, pseudonymizer *Pseudonymizer, guildID uint64,
) (*GuildSummary, error) {
	var (
		entries []*dbTypes.LedgerEntry
		afterID int64
	)

	batchSize := max(e.config.BatchSize, 1)

	for {
		batch, err := e.store.Entries(ctx, dbTypes.LedgerFilter{GuildID: guildID, AfterID: afterID}, batchSize)
		if err != nil {
			return nil, err
		}

		entries = append(entries, batch...)

		if len(batch) < batchSize {
			break
		}

		afterID = batch[len(batch)-1].ID
	}

	var pseudonyms map[uint64]string

	if pseudonymizer != nil {
		userIDs := make([]uint64, 0, len(entries))
		for _, entry := range entries {
			userIDs = append(userIDs, entry.UserID)
		}

		pseudonyms = pseudonymizer.HashAll(userIDs)
	}

	records, summary := toRecords(entries, pseudonyms)
	summary.GuildID = guildID

	path, err := w.Export(guildID, records)
	if err != nil {
		return nil, err
	}

	summary.File = filepath.Base(path)

	e.logger.Debug("Exported guild",
		zap.Uint64("guildID", guildID),
		zap.Int("entries", summary.Entries),
		zap.Int("members", summary.Members))

	return summary, nil
}

// toRecords converts entries and tallies them. pseudonyms replaces user
// ids when it is not nil.
func toRecords(entries []*dbTypes.LedgerEntry, pseudonyms map[uint64]string) ([]*types.Record, *GuildSummary) {
	records := make([]*types.Record, 0, len(entries))
	members := make(map[uint64]struct{})
	summary := &GuildSummary{Entries: len(entries)}

	for _, entry := range entries {
		member := strconv.FormatUint(entry.UserID, 10)
		if pseudonyms != nil {
			member = pseudonyms[entry.UserID]
		}

		records = append(records, &types.Record{
			ID:                entry.ID,
			GuildID:           entry.GuildID,
			Member:            member,
			Delta:             entry.Delta,
			Kind:              entry.Kind.String(),
			ActorID:           entry.ActorID,
			CooldownExpiresAt: entry.CooldownExpiresAt,
			CreatedAt:         entry.CreatedAt,
		})

		members[entry.UserID] = struct{}{}
		summary.TotalXp += entry.Delta
	}

	summary.Members = len(members)

	return records, summary
}

func (e *Exporter) writer(format Format) (writer, error) {
	switch format {
	case FormatSQLite:
		return sqlite.New(e.config.OutputDir, e.config.BatchSize), nil
	case FormatBinary:
		return binary.New(e.config.OutputDir), nil
	case FormatCSV:
		return csv.New(e.config.OutputDir), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func (e *Exporter) writeManifest(manifest *Manifest) error {
	data, err := sonic.MarshalIndent(manifest, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal export manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(e.config.OutputDir, ManifestFile), data, 0o600); err != nil {
		return fmt.Errorf("failed to write export manifest: %w", err)
	}

	return nil
}
