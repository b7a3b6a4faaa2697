package dbretry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/robalyx/levels/internal/database/dbretry"
	"github.com/robalyx/levels/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "sentinel", err: fmt.Errorf("%w (userID=1)", types.ErrMemberNotFound), want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "refused", err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), want: true},
		{name: "reset", err: errors.New("read: connection reset by peer"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, dbretry.IsRetryableError(tt.err))
		})
	}
}

func TestNoResultKeepsPermanentErrors(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := dbretry.NoResult(t.Context(), func(context.Context) error {
		attempts++
		return fmt.Errorf("%w (guildID=1)", types.ErrGuildSettingsNotFound)
	})

	require.ErrorIs(t, err, types.ErrGuildSettingsNotFound)
	assert.Equal(t, "guild settings not found (guildID=1)", err.Error())
	assert.Equal(t, 1, attempts)
}

func TestOperationRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	attempts := 0
	result, err := dbretry.Operation(t.Context(), func(context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("connection refused")
		}

		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 2, attempts)
}

func TestNoResultStopsWhenCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	attempts := 0
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		attempts++
		return ctx.Err()
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 1)
}
