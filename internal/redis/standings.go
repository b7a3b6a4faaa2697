package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"github.com/robalyx/levels/internal/database/types"
	"go.uber.org/zap"
)

// StandingsKeyPrefix prefixes every guild snapshot key.
const StandingsKeyPrefix = "levels:standings:"

// StandingsCache stores per-guild leaderboard snapshots as JSON with a TTL.
type StandingsCache struct {
	client rueidis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStandingsCache creates a snapshot cache on the given client.
func NewStandingsCache(client rueidis.Client, ttl time.Duration, logger *zap.Logger) *StandingsCache {
	return &StandingsCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("standings_cache"),
	}
}

// Get returns the cached snapshot for a guild.
// The boolean is false on a cache miss.
func (c *StandingsCache) Get(ctx context.Context, guildID uint64) ([]*types.Standing, bool, error) {
	data, err := c.client.Do(ctx, c.client.B().Get().Key(standingsKey(guildID)).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to get standings snapshot: %w (guildID=%d)", err, guildID)
	}

	var standings []*types.Standing
	if err := sonic.Unmarshal(data, &standings); err != nil {
		// A snapshot we cannot decode is treated as missing
		c.logger.Warn("Discarding undecodable standings snapshot",
			zap.Uint64("guildID", guildID),
			zap.Error(err))

		return nil, false, nil
	}

	return standings, true, nil
}

// Set stores a snapshot for a guild.
func (c *StandingsCache) Set(ctx context.Context, guildID uint64, standings []*types.Standing) error {
	data, err := sonic.Marshal(standings)
	if err != nil {
		return fmt.Errorf("failed to marshal standings: %w (guildID=%d)", err, guildID)
	}

	err = c.client.Do(ctx, c.client.B().Set().Key(standingsKey(guildID)).Value(string(data)).Ex(c.ttl).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to store standings snapshot: %w (guildID=%d)", err, guildID)
	}

	return nil
}

// Invalidate drops the snapshot of a guild.
func (c *StandingsCache) Invalidate(ctx context.Context, guildID uint64) error {
	err := c.client.Do(ctx, c.client.B().Del().Key(standingsKey(guildID)).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to invalidate standings snapshot: %w (guildID=%d)", err, guildID)
	}

	return nil
}

func standingsKey(guildID uint64) string {
	return fmt.Sprintf("%s%d", StandingsKeyPrefix, guildID)
}
