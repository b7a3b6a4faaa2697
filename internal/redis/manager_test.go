package redis_test

import (
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/robalyx/levels/internal/redis"
	"github.com/robalyx/levels/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManagerReusesClients(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	manager := redis.NewManager(&config.Redis{Host: mr.Host(), Port: port}, zap.NewNop())
	t.Cleanup(manager.Close)

	first, err := manager.GetClient(redis.StandingsDBIndex)
	require.NoError(t, err)

	second, err := manager.GetClient(redis.StandingsDBIndex)
	require.NoError(t, err)

	assert.Same(t, first, second)

	// The client writes into the selected database only
	require.NoError(t, first.Do(t.Context(), first.B().Set().Key("k").Value("v").Build()).Error())

	mr.Select(redis.StandingsDBIndex)
	assert.True(t, mr.Exists("k"))

	mr.Select(0)
	assert.False(t, mr.Exists("k"))
}

func TestManagerCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	manager := redis.NewManager(&config.Redis{Host: mr.Host(), Port: port}, zap.NewNop())

	_, err = manager.GetClient(0)
	require.NoError(t, err)

	manager.Close()
	manager.Close()
}
