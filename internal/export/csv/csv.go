package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/robalyx/levels/internal/export/types"
)

// Exporter handles exporting ledger records to csv files.
type Exporter struct {
	outDir string
}

// New creates a new csv exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export writes a guild's records to guild_<id>.csv, replacing any
// previous file. Returns the written path.
func (e *Exporter) Export(guildID uint64, records []*types.Record) (string, error) {
	path := filepath.Join(e.outDir, fmt.Sprintf("guild_%d.csv", guildID))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove existing file %s: %w", path, err)
	}

	if err := writeFile(path, records); err != nil {
		return "", fmt.Errorf("failed to export guild %d: %w", guildID, err)
	}

	return path, nil
}

// writeFile writes records to a csv file.
func writeFile(path string, records []*types.Record) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close csv file: %w", closeErr)
		}
	}()

	writer := csv.NewWriter(file)

	if err := writer.Write(types.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, record := range records {
		if err := writer.Write([]string{
			strconv.FormatInt(record.ID, 10),
			strconv.FormatUint(record.GuildID, 10),
			record.Member,
			strconv.FormatInt(record.Delta, 10),
			record.Kind,
			formatID(record.ActorID),
			formatTime(record.CooldownExpiresAt),
			formatTime(record.CreatedAt),
		}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()

	return writer.Error()
}

// formatID leaves absent ids empty.
func formatID(id uint64) string {
	if id == 0 {
		return ""
	}

	return strconv.FormatUint(id, 10)
}

// formatTime writes RFC 3339 in UTC and leaves zero times empty.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}
