package logger_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robalyx/levels/internal/setup/telemetry/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capacity int
		add      []string
		want     []string
	}{
		{name: "empty", capacity: 3, want: nil},
		{name: "partial", capacity: 3, add: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "wraps", capacity: 3, add: []string{"a", "b", "c", "d", "e"}, want: []string{"c", "d", "e"}},
		{name: "zero capacity keeps one", capacity: 0, add: []string{"a", "b"}, want: []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rb := logger.NewRingBuffer(tt.capacity)
			for _, line := range tt.add {
				rb.Add(line)
			}

			assert.Equal(t, tt.want, rb.Lines())
			assert.Equal(t, len(tt.add), rb.TotalSeen())
		})
	}
}

func TestLogRotator(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "levels.log")

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)

	rotator := logger.NewLogRotator(file, 5, path)
	t.Cleanup(func() { _ = rotator.Sync() })

	for i := range 12 {
		_, err := fmt.Fprintf(rotator, "line %d\n", i)
		require.NoError(t, err)
	}

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")

	// Rotated after line 9 down to lines 5..9, then 10 and 11 were appended
	assert.Equal(t, []string{"line 5", "line 6", "line 7", "line 8", "line 9", "line 10", "line 11"}, lines)
}
