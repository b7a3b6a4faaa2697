package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robalyx/levels/internal/export/types"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// DefaultBatchSize is the number of rows inserted per transaction.
const DefaultBatchSize = 1000

const schema = `
	CREATE TABLE ledger_entries (
		id INTEGER PRIMARY KEY,
		guild_id INTEGER NOT NULL,
		member TEXT NOT NULL,
		delta INTEGER NOT NULL,
		kind TEXT NOT NULL,
		actor_id INTEGER,
		cooldown_expires_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX idx_ledger_entries_member ON ledger_entries (member, id);
`

const insertEntry = `
	INSERT INTO ledger_entries
		(id, guild_id, member, delta, kind, actor_id, cooldown_expires_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// Exporter handles exporting ledger records to SQLite databases.
type Exporter struct {
	outDir    string
	batchSize int
}

// New creates a new SQLite exporter instance.
func New(outDir string, batchSize int) *Exporter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Exporter{outDir: outDir, batchSize: batchSize}
}

// Export writes a guild's records to guild_<id>.db, replacing any
// previous file. Returns the written path.
func (e *Exporter) Export(guildID uint64, records []*types.Record) (string, error) {
	path := filepath.Join(e.outDir, fmt.Sprintf("guild_%d.db", guildID))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove existing file %s: %w", path, err)
	}

	if err := e.createDB(path, records); err != nil {
		return "", fmt.Errorf("failed to export guild %d: %w", guildID, err)
	}

	return path, nil
}

// createDB creates a SQLite database holding the records.
func (e *Exporter) createDB(path string, records []*types.Record) error {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer conn.Close()

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// Insert records in batches
	for i := 0; i < len(records); i += e.batchSize {
		end := min(i+e.batchSize, len(records))

		if err := insertBatch(conn, records[i:end]); err != nil {
			return err
		}
	}

	return nil
}

// insertBatch inserts records in one transaction.
func insertBatch(conn *sqlite.Conn, records []*types.Record) (err error) {
	if err := sqlitex.Execute(conn, "BEGIN TRANSACTION", nil); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = sqlitex.Execute(conn, "ROLLBACK", nil)
		}
	}()

	stmt, err := conn.Prepare(insertEntry)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}

	for _, record := range records {
		bindRecord(stmt, record)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", record.ID, err)
		}

		if err := stmt.Reset(); err != nil {
			return fmt.Errorf("failed to reset insert: %w", err)
		}
	}

	if err := sqlitex.Execute(conn, "COMMIT", nil); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func bindRecord(stmt *sqlite.Stmt, record *types.Record) {
	stmt.BindInt64(1, record.ID)
	stmt.BindInt64(2, int64(record.GuildID)) //nolint:gosec // snowflakes fit in 63 bits
	stmt.BindText(3, record.Member)
	stmt.BindInt64(4, record.Delta)
	stmt.BindText(5, record.Kind)

	if record.ActorID == 0 {
		stmt.BindNull(6)
	} else {
		stmt.BindInt64(6, int64(record.ActorID)) //nolint:gosec // snowflakes fit in 63 bits
	}

	if record.CooldownExpiresAt.IsZero() {
		stmt.BindNull(7)
	} else {
		stmt.BindText(7, record.CooldownExpiresAt.UTC().Format(time.RFC3339Nano))
	}

	stmt.BindText(8, record.CreatedAt.UTC().Format(time.RFC3339Nano))
}
