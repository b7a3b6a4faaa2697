package leveling_test

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/database/types/enum"
	"github.com/robalyx/levels/internal/leveling"
	"github.com/robalyx/levels/internal/leveling/memstore"
	"github.com/robalyx/levels/internal/redis"
	"github.com/robalyx/levels/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const guildID = 1

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func testConfig() *config.LevelingConfig {
	return &config.LevelingConfig{
		Defaults: config.Defaults{
			Base:            10,
			Modifier:        50,
			Amount:          10,
			CooldownSeconds: 60,
			ModuleEnabled:   true,
		},
		Leaderboard: config.Leaderboard{PageSize: 15, WindowBefore: 5},
		Cache:       config.Cache{StandingsTTL: 60, SettingsTTL: 60},
	}
}

func setupEngine(t *testing.T, opts ...leveling.Option) (*leveling.Engine, *memstore.Store, *clock) {
	t.Helper()

	store := memstore.New()
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	engine := leveling.NewEngine(store, testConfig(), logger, append([]leveling.Option{leveling.WithClock(clk.Now)}, opts...)...)
	t.Cleanup(engine.Close)

	_, err = engine.EnsureGuildSettings(t.Context(), guildID)
	require.NoError(t, err)

	return engine, store, clk
}

// pausingStore holds the next standings or settings read open, after the
// data was read, until the test releases it.
type pausingStore struct {
	*memstore.Store

	pauseStandings atomic.Bool
	pauseSettings  atomic.Bool
	entered        chan struct{}
	release        chan struct{}
}

func newPausingStore() *pausingStore {
	return &pausingStore{
		Store:   memstore.New(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *pausingStore) Standings(ctx context.Context, guildID uint64) ([]*types.Standing, error) {
	standings, err := s.Store.Standings(ctx, guildID)
	if s.pauseStandings.CompareAndSwap(true, false) {
		close(s.entered)
		<-s.release
	}

	return standings, err
}

func (s *pausingStore) GuildSettings(ctx context.Context, guildID uint64) (*types.GuildSetting, error) {
	settings, err := s.Store.GuildSettings(ctx, guildID)
	if s.pauseSettings.CompareAndSwap(true, false) {
		close(s.entered)
		<-s.release
	}

	return settings, err
}

func member(userID uint64) types.Member {
	return types.Member{UserID: userID, GuildID: guildID}
}

func TestEnsureGuildSettings(t *testing.T) {
	t.Parallel()
	engine, _, _ := setupEngine(t)
	ctx := t.Context()

	settings, err := engine.GuildSettings(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, 10, settings.Base)
	assert.Equal(t, 50, settings.Modifier)
	assert.Equal(t, int64(10), settings.Amount)
	assert.Equal(t, time.Minute, settings.Cooldown)
	assert.True(t, settings.ModuleEnabled)

	_, err = engine.GuildSettings(ctx, 999)
	require.ErrorIs(t, err, types.ErrGuildSettingsNotFound)

	_, err = engine.GainXp(ctx, leveling.ActivityEvent{UserID: 1, GuildID: 999})
	require.ErrorIs(t, err, types.ErrGuildSettingsNotFound)
}

func TestConfigureGuild(t *testing.T) {
	t.Parallel()
	engine, _, _ := setupEngine(t)
	ctx := t.Context()

	settings, err := engine.GuildSettings(ctx, guildID)
	require.NoError(t, err)

	// Mutating a returned copy must not leak into the cache
	settings.Base = 0

	err = engine.ConfigureGuild(ctx, settings)
	require.ErrorIs(t, err, types.ErrInvalidSettings)

	cached, err := engine.GuildSettings(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, 10, cached.Base)

	cached.ModuleEnabled = false
	cached.LogChannelID = 77
	require.NoError(t, engine.ConfigureGuild(ctx, cached))

	updated, err := engine.GuildSettings(ctx, guildID)
	require.NoError(t, err)
	assert.False(t, updated.ModuleEnabled)
	assert.Equal(t, uint64(77), updated.LogChannelID)
}

func TestGainXp(t *testing.T) {
	t.Parallel()
	engine, _, clk := setupEngine(t)
	ctx := t.Context()

	require.NoError(t, engine.SetReward(ctx, guildID, 500, 2))

	event := leveling.ActivityEvent{UserID: 10, GuildID: guildID, ChannelID: 3}

	// First event seeds the member and crosses level 2 at exactly base XP
	result, err := engine.GainXp(ctx, event)
	require.NoError(t, err)
	assert.True(t, result.Admitted)
	assert.Equal(t, 1, result.PreviousLevel)
	assert.Equal(t, 2, result.CurrentLevel)
	assert.True(t, result.LeveledUp())
	assert.Equal(t, []uint64{500}, leveling.RoleIDs(result.EarnedRewards))

	// Inside the cooldown window
	clk.Advance(30 * time.Second)

	result, err = engine.GainXp(ctx, event)
	require.NoError(t, err)
	assert.False(t, result.Admitted)
	assert.Equal(t, enum.RejectReasonOnCooldown, result.Reason)
	assert.Equal(t, 2, result.CurrentLevel)

	// After the window, no new reward is crossed
	clk.Advance(30 * time.Second)

	result, err = engine.GainXp(ctx, event)
	require.NoError(t, err)
	assert.True(t, result.Admitted)
	assert.Equal(t, 3, result.CurrentLevel)
	assert.Empty(t, result.EarnedRewards)

	info, err := engine.GetLevel(ctx, member(10))
	require.NoError(t, err)
	assert.Equal(t, int64(20), info.Xp)

	history, err := engine.History(ctx, member(10), 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, enum.EntryKindEarned, history[0].Kind)
	assert.Equal(t, enum.EntryKindEarned, history[1].Kind)
	assert.Equal(t, enum.EntryKindCreated, history[2].Kind)
	assert.Equal(t, int64(0), history[2].Delta)
}

func TestGainXpRejections(t *testing.T) {
	t.Parallel()
	engine, store, _ := setupEngine(t)
	ctx := t.Context()

	_, err := engine.SetIgnored(ctx, leveling.IgnoreRequest{GuildID: guildID, Tokens: []string{"<@&40>"}, Ignored: true})
	require.NoError(t, err)

	result, err := engine.GainXp(ctx, leveling.ActivityEvent{UserID: 10, GuildID: guildID, ChannelID: 3, RoleIDs: []uint64{41, 40}})
	require.NoError(t, err)
	assert.False(t, result.Admitted)
	assert.Equal(t, enum.RejectReasonIgnored, result.Reason)
	assert.Equal(t, &leveling.Ignorable{Kind: enum.IgnoreTargetRole, ID: 40}, result.IgnoredBy)
	assert.Equal(t, 1, result.PreviousLevel)
	assert.Equal(t, 1, result.CurrentLevel)

	settings, err := engine.GuildSettings(ctx, guildID)
	require.NoError(t, err)

	settings.ModuleEnabled = false
	settings.LogChannelID = 88
	require.NoError(t, engine.ConfigureGuild(ctx, settings))

	result, err = engine.GainXp(ctx, leveling.ActivityEvent{UserID: 10, GuildID: guildID, ChannelID: 3})
	require.NoError(t, err)
	assert.False(t, result.Admitted)
	assert.Equal(t, enum.RejectReasonModuleDisabled, result.Reason)
	assert.Equal(t, uint64(88), result.LogChannelID)
	assert.Equal(t, 1, result.CurrentLevel)

	// Nothing was written for the rejected member
	exists, err := store.MemberExists(ctx, member(10))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGainXpRejectionReportsLevel(t *testing.T) {
	t.Parallel()
	engine, _, _ := setupEngine(t)
	ctx := t.Context()

	_, err := engine.EnsureMember(ctx, member(10))
	require.NoError(t, err)

	_, err = engine.AwardXp(ctx, leveling.AwardRequest{Member: member(10), Amount: 510})
	require.NoError(t, err)

	_, err = engine.SetIgnored(ctx, leveling.IgnoreRequest{GuildID: guildID, Tokens: []string{"<#3>"}, Ignored: true})
	require.NoError(t, err)

	result, err := engine.GainXp(ctx, leveling.ActivityEvent{UserID: 10, GuildID: guildID, ChannelID: 3})
	require.NoError(t, err)
	assert.Equal(t, enum.RejectReasonIgnored, result.Reason)
	assert.Equal(t, 12, result.PreviousLevel)
	assert.Equal(t, 12, result.CurrentLevel)
	assert.False(t, result.LeveledUp())
}

func TestGainXpAtTopOfRange(t *testing.T) {
	t.Parallel()
	engine, _, _ := setupEngine(t)
	ctx := t.Context()

	_, err := engine.EnsureMember(ctx, member(10))
	require.NoError(t, err)

	_, err = engine.AwardXp(ctx, leveling.AwardRequest{Member: member(10), Amount: math.MaxInt64 - 4})
	require.NoError(t, err)

	// Earned XP is clipped so the total stays representable
	result, err := engine.GainXp(ctx, leveling.ActivityEvent{UserID: 10, GuildID: guildID, ChannelID: 3})
	require.NoError(t, err)
	assert.True(t, result.Admitted)

	info, err := engine.GetLevel(ctx, member(10))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), info.Xp)
	assert.Equal(t, int64(0), info.XpForNextLevel)

	history, err := engine.History(ctx, member(10), 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(4), history[0].Delta)
}

func TestConcurrentGainXp(t *testing.T) {
	t.Parallel()
	engine, _, _ := setupEngine(t)
	ctx := t.Context()

	const workers = 50

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			result, err := engine.GainXp(ctx, leveling.ActivityEvent{UserID: 10, GuildID: guildID, ChannelID: 3})
			if !assert.NoError(t, err) {
				return
			}

			if result.Admitted {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, admitted)

	info, err := engine.GetLevel(ctx, member(10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Xp)

	history, err := engine.History(ctx, member(10), 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestLedgerAdditivity(t *testing.T) {
	t.Parallel()
	engine, _, clk := setupEngine(t)
	ctx := t.Context()

	_, err := engine.EnsureMember(ctx, member(10))
	require.NoError(t, err)

	var want int64

	for i := range 20 {
		switch i % 3 {
		case 0:
			_, err := engine.AwardXp(ctx, leveling.AwardRequest{Member: member(10), Amount: int64(i + 5), ActorID: 1})
			require.NoError(t, err)
			want += int64(i + 5)
		case 1:
			result, err := engine.ReclaimXp(ctx, leveling.ReclaimRequest{Member: member(10), Amount: 7, ActorID: 1})
			require.NoError(t, err)
			want -= result.XpTaken
		default:
			result, err := engine.GainXp(ctx, leveling.ActivityEvent{UserID: 10, GuildID: guildID})
			require.NoError(t, err)
			require.True(t, result.Admitted)
			want += 10
		}

		clk.Advance(time.Minute)
	}

	history, err := engine.History(ctx, member(10), 0)
	require.NoError(t, err)

	var sum int64
	for _, entry := range history {
		sum += entry.Delta
	}

	info, err := engine.GetLevel(ctx, member(10))
	require.NoError(t, err)
	assert.Equal(t, want, info.Xp)
	assert.Equal(t, sum, info.Xp)
}

func TestAwardXp(t *testing.T) {
	t.Parallel()
	engine, _, _ := setupEngine(t)
	ctx := t.Context()

	_, err := engine.AwardXp(ctx, leveling.AwardRequest{Member: member(10), Amount: 50})
	require.ErrorIs(t, err, types.ErrMemberNotFound)

	created, err := engine.EnsureMember(ctx, member(10))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = engine.EnsureMember(ctx, member(10))
	require.NoError(t, err)
	assert.False(t, created)

	for _, amount := range []int64{0, -5} {
		_, err = engine.AwardXp(ctx, leveling.AwardRequest{Member: member(10), Amount: amount})
		require.ErrorIs(t, err, types.ErrInvalidAmount)
	}

	result, err := engine.AwardXp(ctx, leveling.AwardRequest{Member: member(10), Amount: 510, ActorID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(510), result.TotalXp)
	assert.Equal(t, 1, result.PreviousLevel)
	assert.Equal(t, 12, result.CurrentLevel)

	history, err := engine.History(ctx, member(10), 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, enum.EntryKindAwarded, history[0].Kind)
	assert.Equal(t, uint64(2), history[0].ActorID)
	assert.True(t, history[0].CooldownExpiresAt.IsZero())
}

func TestAwardXpOverflow(t *testing.T) {
	t.Parallel()
	engine, _, _ := setupEngine(t)
	ctx := t.Context()

	_, err := engine.EnsureMember(ctx, member(10))
	require.NoError(t, err)

	result, err := engine.AwardXp(ctx, leveling.AwardRequest{Member: member(10), Amount: math.MaxInt64})
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), result.TotalXp)
	assert.Equal(t, leveling.LevelForXp(math.MaxInt64, 10, 50), result.CurrentLevel)

	_, err = engine.AwardXp(ctx, leveling.AwardRequest{Member: member(10), Amount: 1})
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	// The rejected award left no entry behind
	history, err := engine.History(ctx, member(10), 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	info, err := engine.GetLevel(ctx, member(10))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), info.Xp)
	assert.Equal(t, result.CurrentLevel, info.Level)

	// Spending some makes room again
	_, err = engine.ReclaimXp(ctx, leveling.ReclaimRequest{Member: member(10), Amount: 100})
	require.NoError(t, err)

	_, err = engine.AwardXp(ctx, leveling.AwardRequest{Member: member(10), Amount: 100})
	require.NoError(t, err)
}

func TestReclaimXp(t *testing.T) {
	t.Parallel()
	engine, _, _ := setupEngine(t)
	ctx := t.Context()

	_, err := engine.ReclaimXp(ctx, leveling.ReclaimRequest{Member: member(10), All: true})
	require.ErrorIs(t, err, types.ErrMemberNotFound)

	_, err = engine.EnsureMember(ctx, member(10))
	require.NoError(t, err)

	_, err = engine.ReclaimXp(ctx, leveling.ReclaimRequest{Member: member(10), Amount: 0})
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = engine.AwardXp(ctx, leveling.AwardRequest{Member: member(10), Amount: 100})
	require.NoError(t, err)

	result, err := engine.ReclaimXp(ctx, leveling.ReclaimRequest{Member: member(10), Amount: 30})
	require.NoError(t, err)
	assert.Equal(t, int64(30), result.XpTaken)
	assert.Equal(t, int64(70), result.TotalXp)

	// Clamped to what is left
	result, err = engine.ReclaimXp(ctx, leveling.ReclaimRequest{Member: member(10), Amount: 1_000})
	require.NoError(t, err)
	assert.Equal(t, int64(70), result.XpTaken)
	assert.Equal(t, int64(0), result.TotalXp)

	// Nothing left to take still leaves an audit entry
	result, err = engine.ReclaimXp(ctx, leveling.ReclaimRequest{Member: member(10), All: true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.XpTaken)

	history, err := engine.History(ctx, member(10), 0)
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

func TestReclaimAllScenario(t *testing.T) {
	t.Parallel()
	engine, _, _ := setupEngine(t)
	ctx := t.Context()

	_, err := engine.EnsureMember(ctx, member(10))
	require.NoError(t, err)

	_, err = engine.AwardXp(ctx, leveling.AwardRequest{Member: member(10), Amount: 400})
	require.NoError(t, err)

	before, err := engine.History(ctx, member(10), 0)
	require.NoError(t, err)

	result, err := engine.ReclaimXp(ctx, leveling.ReclaimRequest{Member: member(10), All: true, ActorID: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(400), result.XpTaken)
	assert.Equal(t, int64(0), result.TotalXp)

	after, err := engine.History(ctx, member(10), 0)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	assert.Equal(t, enum.EntryKindReclaimed, after[0].Kind)
	assert.Equal(t, int64(-400), after[0].Delta)

	info, err := engine.GetLevel(ctx, member(10))
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Xp)
	assert.Equal(t, 1, info.Level)
}

func TestGetLevel(t *testing.T) {
	t.Parallel()
	engine, _, _ := setupEngine(t)
	ctx := t.Context()

	_, err := engine.GetLevel(ctx, member(10))
	require.ErrorIs(t, err, types.ErrMemberNotFound)

	require.NoError(t, engine.SetReward(ctx, guildID, level10Role, 10))
	require.NoError(t, engine.SetReward(ctx, guildID, level15Role, 15))

	_, err = engine.EnsureMember(ctx, member(10))
	require.NoError(t, err)

	_, err = engine.AwardXp(ctx, leveling.AwardRequest{Member: member(10), Amount: 520})
	require.NoError(t, err)

	info, err := engine.GetLevel(ctx, member(10))
	require.NoError(t, err)
	assert.Equal(t, int64(520), info.Xp)
	assert.Equal(t, 12, info.Level)
	assert.Equal(t, int64(10), info.LevelProgress)
	assert.Equal(t, int64(95), info.XpForNextLevel)
	require.NotNil(t, info.NextRewardRoleID)
	require.NotNil(t, info.NextRewardLevel)
	assert.Equal(t, uint64(level15Role), *info.NextRewardRoleID)
	assert.Equal(t, 15, *info.NextRewardLevel)

	// A fresh member has no XP yet
	_, err = engine.EnsureMember(ctx, member(11))
	require.NoError(t, err)

	info, err = engine.GetLevel(ctx, member(11))
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Xp)
	assert.Equal(t, 1, info.Level)
	assert.Equal(t, int64(10), info.XpForNextLevel)
}

func TestRewards(t *testing.T) {
	t.Parallel()
	engine, _, _ := setupEngine(t)
	ctx := t.Context()

	require.ErrorIs(t, engine.SetReward(ctx, guildID, 1, -1), types.ErrInvalidLevel)

	require.NoError(t, engine.SetReward(ctx, guildID, 1, 5))
	require.NoError(t, engine.SetReward(ctx, guildID, 2, 3))
	require.NoError(t, engine.SetReward(ctx, guildID, 1, 8))

	rewards, err := engine.GetRewards(ctx, guildID)
	require.NoError(t, err)
	require.Len(t, rewards, 2)
	assert.Equal(t, uint64(2), rewards[0].RoleID)
	assert.Equal(t, uint64(1), rewards[1].RoleID)
	assert.Equal(t, 8, rewards[1].MinLevel)

	require.NoError(t, engine.RemoveReward(ctx, guildID, 2))
	require.ErrorIs(t, engine.RemoveReward(ctx, guildID, 2), types.ErrRewardNotFound)

	rewards, err = engine.GetRewards(ctx, guildID)
	require.NoError(t, err)
	assert.Len(t, rewards, 1)
}

func TestGetLeaderboard(t *testing.T) {
	t.Parallel()
	engine, _, _ := setupEngine(t)
	ctx := t.Context()

	board, err := engine.GetLeaderboard(ctx, guildID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, board.TotalMembers)
	assert.Empty(t, board.Entries)

	// Two members with no XP rank in the order they joined
	_, err = engine.EnsureMember(ctx, member(200))
	require.NoError(t, err)
	_, err = engine.EnsureMember(ctx, member(100))
	require.NoError(t, err)

	board, err = engine.GetLeaderboard(ctx, guildID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, board.TotalMembers)
	assert.Equal(t, []leveling.LeaderboardEntry{
		{Rank: 1, UserID: 200, XP: 0},
		{Rank: 2, UserID: 100, XP: 0},
	}, board.Entries)

	userID := uint64(100)

	board, err = engine.GetLeaderboard(ctx, guildID, &userID)
	require.NoError(t, err)
	assert.Len(t, board.Entries, 2)

	missing := uint64(999)

	_, err = engine.GetLeaderboard(ctx, guildID, &missing)
	require.ErrorIs(t, err, types.ErrMemberNotOnLeaderboard)
}

func TestLeaderboardWithStandingsCache(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	cache := redis.NewStandingsCache(client, time.Minute, zap.NewNop())
	engine, store, _ := setupEngine(t, leveling.WithStandingsCache(cache))
	ctx := t.Context()

	_, err = engine.EnsureMember(ctx, member(10))
	require.NoError(t, err)

	board, err := engine.GetLeaderboard(ctx, guildID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, board.TotalMembers)
	assert.True(t, mr.Exists(redis.StandingsKeyPrefix+"1"))

	// Writes that bypass the engine are not seen until the snapshot goes
	bypass := leveling.NewLedger(store, zap.NewNop())
	_, err = bypass.EnsureMember(ctx, member(11), time.Now())
	require.NoError(t, err)

	board, err = engine.GetLeaderboard(ctx, guildID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, board.TotalMembers)

	// Engine writes invalidate the snapshot
	_, err = engine.AwardXp(ctx, leveling.AwardRequest{Member: member(11), Amount: 5})
	require.NoError(t, err)
	assert.False(t, mr.Exists(redis.StandingsKeyPrefix+"1"))

	board, err = engine.GetLeaderboard(ctx, guildID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, board.TotalMembers)
	assert.Equal(t, uint64(11), board.Entries[0].UserID)
}

func TestCancelledContextLeavesNoTrace(t *testing.T) {
	t.Parallel()
	engine, store, _ := setupEngine(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := engine.EnsureMember(ctx, member(10))
	require.ErrorIs(t, err, context.Canceled)

	exists, err := store.MemberExists(t.Context(), member(10))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStandingsFillLosesToWrite(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	store := newPausingStore()
	cache := redis.NewStandingsCache(client, time.Minute, zap.NewNop())
	engine := leveling.NewEngine(store, testConfig(), zap.NewNop(), leveling.WithStandingsCache(cache))
	t.Cleanup(engine.Close)
	ctx := t.Context()

	_, err = engine.EnsureGuildSettings(ctx, guildID)
	require.NoError(t, err)

	_, err = engine.EnsureMember(ctx, member(10))
	require.NoError(t, err)

	store.pauseStandings.Store(true)

	done := make(chan *leveling.Leaderboard)
	go func() {
		board, err := engine.GetLeaderboard(ctx, guildID, nil)
		assert.NoError(t, err)
		done <- board
	}()

	// A member joins while the reader holds a snapshot without them
	<-store.entered
	_, err = engine.EnsureMember(ctx, member(11))
	require.NoError(t, err)
	close(store.release)

	board := <-done
	require.NotNil(t, board)
	assert.Equal(t, 1, board.TotalMembers)
	assert.False(t, mr.Exists(redis.StandingsKeyPrefix+"1"))

	board, err = engine.GetLeaderboard(ctx, guildID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, board.TotalMembers)
	assert.True(t, mr.Exists(redis.StandingsKeyPrefix+"1"))
}

func TestSettingsFillLosesToConfigure(t *testing.T) {
	t.Parallel()

	store := newPausingStore()
	engine := leveling.NewEngine(store, testConfig(), zap.NewNop())
	t.Cleanup(engine.Close)
	ctx := t.Context()

	settings, err := engine.EnsureGuildSettings(ctx, guildID)
	require.NoError(t, err)
	require.True(t, settings.ModuleEnabled)

	store.pauseSettings.Store(true)

	done := make(chan *types.GuildSetting)
	go func() {
		read, err := engine.GuildSettings(ctx, guildID)
		assert.NoError(t, err)
		done <- read
	}()

	// The module is switched off while the reader holds the old settings
	<-store.entered
	settings.ModuleEnabled = false
	require.NoError(t, engine.ConfigureGuild(ctx, settings))
	close(store.release)

	stale := <-done
	require.NotNil(t, stale)
	assert.True(t, stale.ModuleEnabled)

	current, err := engine.GuildSettings(ctx, guildID)
	require.NoError(t, err)
	assert.False(t, current.ModuleEnabled)
}
