package database_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/robalyx/levels/internal/database"
	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/database/types/enum"
	"github.com/robalyx/levels/internal/leveling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"
)

var member = types.Member{UserID: 10, GuildID: 1}

func setupStore(t *testing.T) (*database.Store, sqlmock.Sqlmock) {
	t.Helper()

	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	return database.NewStore(db, database.NewRepository(db, zap.NewNop())), mock
}

func lockQuery() string {
	return regexp.QuoteMeta(fmt.Sprintf("SELECT pg_advisory_xact_lock(%d)", member.LockKey()))
}

func totalQuery() string {
	return `SELECT COALESCE\(SUM\(delta\), 0\) AS total, COUNT\(\*\) AS count FROM .* WHERE \(guild_id = 1\) AND \(user_id = 10\)`
}

func TestWithMemberLocksBeforeReading(t *testing.T) {
	t.Parallel()
	store, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(totalQuery()).WillReturnRows(sqlmock.NewRows([]string{"total", "count"}).AddRow(int64(40), int64(2)))
	mock.ExpectQuery(`INSERT INTO "ledger_entries"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	entry := &types.LedgerEntry{Delta: 5, Kind: enum.EntryKindAwarded}

	err := store.WithMember(t.Context(), member, func(ctx context.Context, tx leveling.MemberTx) error {
		total, err := tx.TotalXp(ctx)
		if err != nil {
			return err
		}

		assert.Equal(t, int64(40), total)

		return tx.Append(ctx, entry)
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), entry.ID)
	assert.Equal(t, member.UserID, entry.UserID)
	assert.Equal(t, member.GuildID, entry.GuildID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithMemberRetriesFromScratch(t *testing.T) {
	t.Parallel()
	store, mock := setupStore(t)

	// The first attempt loses its connection while taking the lock
	mock.ExpectBegin()
	mock.ExpectExec(lockQuery()).WillReturnError(errors.New("read: connection reset by peer"))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(totalQuery()).WillReturnRows(sqlmock.NewRows([]string{"total", "count"}).AddRow(int64(15), int64(1)))
	mock.ExpectCommit()

	attempts := 0
	err := store.WithMember(t.Context(), member, func(ctx context.Context, tx leveling.MemberTx) error {
		attempts++

		_, err := tx.TotalXp(ctx)

		return err
	})
	require.NoError(t, err)

	// fn only ran once the lock was held
	assert.Equal(t, 1, attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithMemberKeepsSentinelErrors(t *testing.T) {
	t.Parallel()
	store, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	attempts := 0
	err := store.WithMember(t.Context(), member, func(context.Context, leveling.MemberTx) error {
		attempts++
		return fmt.Errorf("%w (userID=10, guildID=1)", types.ErrMemberNotFound)
	})
	require.ErrorIs(t, err, types.ErrMemberNotFound)

	assert.Equal(t, 1, attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithMemberRerunsFnAfterLostConnection(t *testing.T) {
	t.Parallel()
	store, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(totalQuery()).WillReturnError(errors.New("write: broken pipe"))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(totalQuery()).WillReturnRows(sqlmock.NewRows([]string{"total", "count"}).AddRow(int64(25), int64(3)))
	mock.ExpectCommit()

	var totals []int64
	err := store.WithMember(t.Context(), member, func(ctx context.Context, tx leveling.MemberTx) error {
		total, err := tx.TotalXp(ctx)
		if err != nil {
			return err
		}

		totals = append(totals, total)

		return nil
	})
	require.NoError(t, err)

	// The failed attempt left nothing behind for the rerun to see
	assert.Equal(t, []int64{25}, totals)
	require.NoError(t, mock.ExpectationsWereMet())
}
