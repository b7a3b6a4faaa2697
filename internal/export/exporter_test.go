package export_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/export"
	exportBinary "github.com/robalyx/levels/internal/export/binary"
	"github.com/robalyx/levels/internal/leveling"
	"github.com/robalyx/levels/internal/leveling/memstore"
	"github.com/robalyx/levels/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupStore creates two configured guilds. Guild 1 has members 10 and 11
// with 5 entries in total, guild 2 has member 10 with 2 entries.
func setupStore(t *testing.T) *memstore.Store {
	t.Helper()

	ctx := t.Context()
	store := memstore.New()
	ledger := leveling.NewLedger(store, zap.NewNop())
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, guildID := range []uint64{1, 2} {
		require.NoError(t, store.SaveGuildSettings(ctx, &types.GuildSetting{GuildID: guildID, Base: 10, Modifier: 50}))
	}

	for _, member := range []types.Member{{UserID: 10, GuildID: 1}, {UserID: 11, GuildID: 1}, {UserID: 10, GuildID: 2}} {
		_, err := ledger.EnsureMember(ctx, member, now)
		require.NoError(t, err)
	}

	_, _, err := ledger.Award(ctx, types.Member{UserID: 10, GuildID: 1}, 40, 99, now)
	require.NoError(t, err)
	_, _, err = ledger.Award(ctx, types.Member{UserID: 11, GuildID: 1}, 25, 99, now)
	require.NoError(t, err)
	_, _, err = ledger.Reclaim(ctx, types.Member{UserID: 10, GuildID: 1}, 5, false, 99, now)
	require.NoError(t, err)
	_, _, err = ledger.Award(ctx, types.Member{UserID: 10, GuildID: 2}, 7, 99, now)
	require.NoError(t, err)

	return store
}

func readManifest(t *testing.T, dir string) *export.Manifest {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, export.ManifestFile))
	require.NoError(t, err)

	var manifest export.Manifest
	require.NoError(t, sonic.Unmarshal(data, &manifest))

	return &manifest
}

func TestExportAllGuilds(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	exporter := export.New(setupStore(t), &config.Export{OutputDir: dir, BatchSize: 2, Concurrency: 2}, zap.NewNop())

	manifest, err := exporter.Export(t.Context(), export.FormatCSV, nil)
	require.NoError(t, err)

	assert.Equal(t, export.EngineVersion, manifest.EngineVersion)
	assert.False(t, manifest.Pseudonymized)
	require.Len(t, manifest.Guilds, 2)
	assert.Equal(t, &export.GuildSummary{GuildID: 1, File: "guild_1.csv", Entries: 5, Members: 2, TotalXp: 60}, manifest.Guilds[0])
	assert.Equal(t, &export.GuildSummary{GuildID: 2, File: "guild_2.csv", Entries: 2, Members: 1, TotalXp: 7}, manifest.Guilds[1])

	written := readManifest(t, dir)
	assert.Equal(t, manifest.Guilds, written.Guilds)

	file, err := os.Open(filepath.Join(dir, "guild_1.csv"))
	require.NoError(t, err)

	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"6", "1", "10", "-5", "Reclaimed", "99", "", "2025-03-01T12:00:00Z"}, rows[5])
}

func TestExportSelectedGuildPseudonymized(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	exporter := export.New(setupStore(t), &config.Export{
		OutputDir:   dir,
		BatchSize:   100,
		Concurrency: 1,
		Salt:        "test_salt",
		HashType:    "sha256",
		Iterations:  1,
	}, zap.NewNop())

	manifest, err := exporter.Export(t.Context(), export.FormatBinary, []uint64{2, 2})
	require.NoError(t, err)
	assert.True(t, manifest.Pseudonymized)
	assert.Equal(t, export.HashTypeSHA256, manifest.HashType)
	require.Len(t, manifest.Guilds, 1)

	_, err = os.Stat(filepath.Join(dir, "guild_1.bin"))
	assert.True(t, os.IsNotExist(err))

	records, err := exportBinary.ReadFile(filepath.Join(dir, "guild_2.bin"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	pseudonym := export.HashID(10, "test_salt", export.HashTypeSHA256, 1, 0)
	for _, record := range records {
		assert.Equal(t, pseudonym, record.Member)
	}
}

func TestExportErrors(t *testing.T) {
	t.Parallel()

	store := setupStore(t)

	_, err := export.New(store, &config.Export{OutputDir: t.TempDir()}, zap.NewNop()).
		Export(t.Context(), export.Format("xml"), nil)
	require.ErrorIs(t, err, export.ErrUnsupportedFormat)

	_, err = export.New(store, &config.Export{OutputDir: t.TempDir(), Salt: "s", HashType: "md5"}, zap.NewNop()).
		Export(t.Context(), export.FormatCSV, nil)
	require.ErrorIs(t, err, export.ErrUnsupportedHashType)

	_, err = export.ParseFormat("sqlite")
	require.NoError(t, err)

	_, err = export.ParseFormat("xlsx")
	require.ErrorIs(t, err, export.ErrUnsupportedFormat)
}
