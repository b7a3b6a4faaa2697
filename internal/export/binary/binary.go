package binary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/robalyx/levels/internal/export/types"
)

var ErrFieldTooLong = errors.New("field too long for binary export")

// Exporter handles exporting ledger records to binary files.
//
// A file is a little-endian uint32 record count followed by the records.
// Each record is id int64, guild uint64, member string, delta int64,
// kind string, actor uint64, cooldown int64, created int64, where strings
// are a uint16 length and the bytes, and times are Unix nanoseconds with
// 0 meaning absent.
type Exporter struct {
	outDir string
}

// New creates a new binary exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export writes a guild's records to guild_<id>.bin, replacing any
// previous file. Returns the written path.
func (e *Exporter) Export(guildID uint64, records []*types.Record) (string, error) {
	path := filepath.Join(e.outDir, fmt.Sprintf("guild_%d.bin", guildID))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove existing file %s: %w", path, err)
	}

	if err := writeFile(path, records); err != nil {
		return "", fmt.Errorf("failed to export guild %d: %w", guildID, err)
	}

	return path, nil
}

// writeFile writes records to a binary file.
func writeFile(path string, records []*types.Record) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create binary file: %w", err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close binary file: %w", closeErr)
		}
	}()

	w := bufio.NewWriter(file)

	count := uint32(len(records)) //nolint:gosec // unlikely to overflow
	if err := binary.Write(w, binary.LittleEndian, count); err != nil {
		return fmt.Errorf("failed to write record count: %w", err)
	}

	for _, record := range records {
		if err := writeRecord(w, record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", record.ID, err)
		}
	}

	return w.Flush()
}

func writeRecord(w io.Writer, record *types.Record) error {
	if err := binary.Write(w, binary.LittleEndian, record.ID); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, record.GuildID); err != nil {
		return err
	}

	if err := writeString(w, record.Member); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, record.Delta); err != nil {
		return err
	}

	if err := writeString(w, record.Kind); err != nil {
		return err
	}

	return binary.Write(w, binary.LittleEndian, []int64{
		int64(record.ActorID), //nolint:gosec // round-trips through uint64 on read
		unixNano(record.CooldownExpiresAt),
		unixNano(record.CreatedAt),
	})
}

func writeString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("%w: %d bytes", ErrFieldTooLong, len(s))
	}

	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}

	_, err := io.WriteString(w, s)

	return err
}

// ReadFile reads every record of a binary export.
func ReadFile(path string) ([]*types.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open binary file: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read record count: %w", err)
	}

	records := make([]*types.Record, 0, count)
	for i := range count {
		record, err := readRecord(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read record %d of %d: %w", i+1, count, err)
		}

		records = append(records, record)
	}

	return records, nil
}

func readRecord(r io.Reader) (*types.Record, error) {
	var (
		record types.Record
		err    error
	)

	if err = binary.Read(r, binary.LittleEndian, &record.ID); err != nil {
		return nil, err
	}

	if err = binary.Read(r, binary.LittleEndian, &record.GuildID); err != nil {
		return nil, err
	}

	if record.Member, err = readString(r); err != nil {
		return nil, err
	}

	if err = binary.Read(r, binary.LittleEndian, &record.Delta); err != nil {
		return nil, err
	}

	if record.Kind, err = readString(r); err != nil {
		return nil, err
	}

	var tail [3]int64
	if err = binary.Read(r, binary.LittleEndian, &tail); err != nil {
		return nil, err
	}

	record.ActorID = uint64(tail[0]) //nolint:gosec // written from uint64
	record.CooldownExpiresAt = fromUnixNano(tail[1])
	record.CreatedAt = fromUnixNano(tail[2])

	return &record, nil
}

func readString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}

	return string(buf), nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}

	return time.Unix(0, n).UTC()
}
