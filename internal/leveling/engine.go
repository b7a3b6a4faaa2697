package leveling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/database/types/enum"
	"github.com/robalyx/levels/internal/setup/config"
	"github.com/robalyx/levels/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// defaultSettingsTTL applies when the config leaves the settings cache unset.
const defaultSettingsTTL = 5 * time.Minute

// ActivityEvent is one piece of member activity that may earn XP.
type ActivityEvent struct {
	UserID    uint64
	GuildID   uint64
	ChannelID uint64
	RoleIDs   []uint64
}

// GainResult is the outcome of an activity event. A rejected event reports
// the member's current level as both levels; an unseen member is on level 1.
type GainResult struct {
	Admitted      bool
	Reason        enum.RejectReason
	IgnoredBy     *Ignorable
	PreviousLevel int
	CurrentLevel  int
	EarnedRewards []*types.Reward // Rewards crossed by this event, for the caller to grant
	LogChannelID  uint64
}

// LeveledUp reports whether the event moved the member to a higher level.
func (r *GainResult) LeveledUp() bool {
	return r.CurrentLevel > r.PreviousLevel
}

// AwardRequest grants XP to a member.
type AwardRequest struct {
	Member  types.Member
	Amount  int64
	ActorID uint64
}

// AwardResult is the outcome of an award.
type AwardResult struct {
	TotalXp       int64
	PreviousLevel int
	CurrentLevel  int
}

// ReclaimRequest takes XP from a member. All ignores Amount.
type ReclaimRequest struct {
	Member  types.Member
	Amount  int64
	All     bool
	ActorID uint64
}

// ReclaimResult is the outcome of a reclaim.
type ReclaimResult struct {
	XpTaken       int64
	TotalXp       int64
	PreviousLevel int
	CurrentLevel  int
}

// LevelInfo describes a member's position on their guild's curve.
type LevelInfo struct {
	Xp               int64
	Level            int
	LevelProgress    int64
	XpForNextLevel   int64
	NextRewardRoleID *uint64
	NextRewardLevel  *int
}

// Option configures an Engine.
type Option func(*Engine)

// WithStandingsCache serves leaderboard standings from cache between writes.
func WithStandingsCache(cache StandingsCache) Option {
	return func(e *Engine) {
		e.standingsCache = cache
	}
}

// WithDirectory lets ignore tokens resolve against known channels and roles.
func WithDirectory(directory Directory) Option {
	return func(e *Engine) {
		e.directory = directory
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine runs the leveling operations of every guild.
type Engine struct {
	store          Store
	config         *config.LevelingConfig
	ledger         *Ledger
	ignores        *IgnoreRegistry
	directory      Directory
	standingsCache StandingsCache
	settingsCache  *utils.TTLMap[uint64, *types.GuildSetting]
	settingsGen    *generations
	standingsGen   *generations
	standingsGroup singleflight.Group
	tracer         trace.Tracer
	now            func() time.Time
	logger         *zap.Logger
}

// NewEngine creates an engine on store. Close releases the settings cache.
func NewEngine(store Store, cfg *config.LevelingConfig, logger *zap.Logger, opts ...Option) *Engine {
	settingsTTL := time.Duration(cfg.Cache.SettingsTTL) * time.Second
	if settingsTTL <= 0 {
		settingsTTL = defaultSettingsTTL
	}

	e := &Engine{
		store:         store,
		config:        cfg,
		settingsCache: utils.NewTTLMap[uint64, *types.GuildSetting](settingsTTL),
		settingsGen:   newGenerations(),
		standingsGen:  newGenerations(),
		tracer:        otel.Tracer("github.com/robalyx/levels/internal/leveling"),
		now:           time.Now,
		logger:        logger.Named("leveling"),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.ledger = NewLedger(store, e.logger)
	e.ignores = NewIgnoreRegistry(store, e.directory, e.logger)

	return e
}

// Close stops background work owned by the engine.
func (e *Engine) Close() {
	e.settingsCache.Close()
}

// GainXp evaluates an activity event and, when admitted, appends an
// Earned entry. Rejections are results, not errors. An unseen member is
// seeded first, unless the module is disabled or the event is ignored.
// A total at MaxInt64 earns nothing further.
func (e *Engine) GainXp(ctx context.Context, event ActivityEvent) (result *GainResult, err error) {
	ctx, span := e.startSpan(ctx, "GainXp", event.GuildID, event.UserID)
	defer func() { endSpan(span, err) }()

	settings, err := e.GuildSettings(ctx, event.GuildID)
	if err != nil {
		return nil, err
	}

	member := types.Member{UserID: event.UserID, GuildID: event.GuildID}
	curve := NewCurve(settings)

	// Cheap rejections skip the member unit entirely
	var ignoredBy *Ignorable
	if settings.ModuleEnabled {
		ignoredBy, err = e.ignores.Check(ctx, event.GuildID, event.ChannelID, event.UserID, event.RoleIDs)
		if err != nil {
			return nil, err
		}
	}

	if !settings.ModuleEnabled || ignoredBy != nil {
		decision := Evaluate(settings, member, ignoredBy, nil, e.now())

		e.logger.Debug("Activity rejected",
			zap.Uint64("guildID", event.GuildID),
			zap.Uint64("userID", event.UserID),
			zap.String("reason", decision.Reason.String()))

		total, err := e.ledger.TotalXp(ctx, member)
		if err != nil && !errors.Is(err, types.ErrMemberNotFound) {
			return nil, err
		}

		level := curve.Level(total)

		return &GainResult{
			Reason:        decision.Reason,
			IgnoredBy:     decision.IgnoredBy,
			PreviousLevel: level,
			CurrentLevel:  level,
			LogChannelID:  settings.LogChannelID,
		}, nil
	}

	var (
		decision Decision
		seeded   bool
		total    int64
	)

	err = e.store.WithMember(ctx, member, func(ctx context.Context, tx MemberTx) error {
		now := e.now()

		var err error

		seeded, err = seed(ctx, tx, member, now)
		if err != nil {
			return err
		}

		total, err = tx.TotalXp(ctx)
		if err != nil {
			return err
		}

		lastEarned, err := tx.LastEarned(ctx)
		if err != nil {
			return err
		}

		// Decided afresh on every run so a retried unit never replays a stale admission
		decision = Evaluate(settings, member, nil, lastEarned, now)
		if !decision.Admitted {
			return nil
		}

		decision.Entry.Delta = min(decision.Entry.Delta, math.MaxInt64-total)

		return tx.Append(ctx, decision.Entry)
	})
	if err != nil {
		return nil, err
	}

	if seeded || decision.Admitted {
		e.invalidateStandings(ctx, event.GuildID)
	}

	previousLevel := curve.Level(total)
	result = &GainResult{
		Admitted:      decision.Admitted,
		Reason:        decision.Reason,
		PreviousLevel: previousLevel,
		CurrentLevel:  previousLevel,
		LogChannelID:  settings.LogChannelID,
	}

	if !decision.Admitted {
		e.logger.Debug("Activity rejected",
			zap.Uint64("guildID", event.GuildID),
			zap.Uint64("userID", event.UserID),
			zap.String("reason", decision.Reason.String()))

		return result, nil
	}

	result.CurrentLevel = curve.Level(total + decision.Entry.Delta)

	if result.LeveledUp() {
		ladder, err := e.ladder(ctx, event.GuildID)
		if err != nil {
			return nil, err
		}

		result.EarnedRewards = ladder.NewlyEarned(result.PreviousLevel, result.CurrentLevel)

		e.logger.Info("Member leveled up",
			zap.Uint64("guildID", event.GuildID),
			zap.Uint64("userID", event.UserID),
			zap.Int("previousLevel", result.PreviousLevel),
			zap.Int("currentLevel", result.CurrentLevel),
			zap.Int("rewards", len(result.EarnedRewards)))
	}

	return result, nil
}

// AwardXp grants XP to a member without any cooldown.
func (e *Engine) AwardXp(ctx context.Context, req AwardRequest) (result *AwardResult, err error) {
	ctx, span := e.startSpan(ctx, "AwardXp", req.Member.GuildID, req.Member.UserID)
	defer func() { endSpan(span, err) }()

	settings, err := e.GuildSettings(ctx, req.Member.GuildID)
	if err != nil {
		return nil, err
	}

	before, after, err := e.ledger.Award(ctx, req.Member, req.Amount, req.ActorID, e.now())
	if err != nil {
		return nil, err
	}

	e.invalidateStandings(ctx, req.Member.GuildID)

	curve := NewCurve(settings)

	return &AwardResult{
		TotalXp:       after,
		PreviousLevel: curve.Level(before),
		CurrentLevel:  curve.Level(after),
	}, nil
}

// ReclaimXp takes XP from a member, never below zero.
func (e *Engine) ReclaimXp(ctx context.Context, req ReclaimRequest) (result *ReclaimResult, err error) {
	ctx, span := e.startSpan(ctx, "ReclaimXp", req.Member.GuildID, req.Member.UserID)
	defer func() { endSpan(span, err) }()

	settings, err := e.GuildSettings(ctx, req.Member.GuildID)
	if err != nil {
		return nil, err
	}

	taken, after, err := e.ledger.Reclaim(ctx, req.Member, req.Amount, req.All, req.ActorID, e.now())
	if err != nil {
		return nil, err
	}

	e.invalidateStandings(ctx, req.Member.GuildID)

	curve := NewCurve(settings)

	return &ReclaimResult{
		XpTaken:       taken,
		TotalXp:       after,
		PreviousLevel: curve.Level(after + taken),
		CurrentLevel:  curve.Level(after),
	}, nil
}

// GetLevel describes a member's level, progress and next reward.
func (e *Engine) GetLevel(ctx context.Context, member types.Member) (info *LevelInfo, err error) {
	ctx, span := e.startSpan(ctx, "GetLevel", member.GuildID, member.UserID)
	defer func() { endSpan(span, err) }()

	settings, err := e.GuildSettings(ctx, member.GuildID)
	if err != nil {
		return nil, err
	}

	total, err := e.ledger.TotalXp(ctx, member)
	if err != nil {
		return nil, err
	}

	progress := NewCurve(settings).Progress(total)
	info = &LevelInfo{
		Xp:             total,
		Level:          progress.Level,
		LevelProgress:  progress.LevelProgress,
		XpForNextLevel: progress.XpForNextLevel,
	}

	ladder, err := e.ladder(ctx, member.GuildID)
	if err != nil {
		return nil, err
	}

	if next, ok := ladder.NextReward(progress.Level); ok {
		info.NextRewardRoleID = &next.RoleID
		info.NextRewardLevel = &next.MinLevel
	}

	return info, nil
}

// GetLeaderboard returns the top page of a guild, or the window around
// userID when it is given.
func (e *Engine) GetLeaderboard(ctx context.Context, guildID uint64, userID *uint64) (board *Leaderboard, err error) {
	ctx, span := e.startSpan(ctx, "GetLeaderboard", guildID, 0)
	defer func() { endSpan(span, err) }()

	standings, err := e.standings(ctx, guildID)
	if err != nil {
		return nil, err
	}

	ranking := NewRanking(standings)
	board = &Leaderboard{TotalMembers: ranking.Len()}

	pageSize := e.config.Leaderboard.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	if userID == nil {
		board.Entries = ranking.TopPage(pageSize)
		return board, nil
	}

	board.Entries, err = ranking.WindowAroundMember(*userID, e.config.Leaderboard.WindowBefore, pageSize)
	if err != nil {
		return nil, err
	}

	return board, nil
}

// SetReward grants roleID at minLevel, overwriting the role's previous level.
func (e *Engine) SetReward(ctx context.Context, guildID, roleID uint64, minLevel int) (err error) {
	ctx, span := e.startSpan(ctx, "SetReward", guildID, 0)
	defer func() { endSpan(span, err) }()

	if minLevel < 0 {
		return fmt.Errorf("%w: got %d", types.ErrInvalidLevel, minLevel)
	}

	now := e.now()

	err = e.store.UpsertReward(ctx, &types.Reward{
		GuildID:   guildID,
		RoleID:    roleID,
		MinLevel:  minLevel,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return err
	}

	e.logger.Info("Set level reward",
		zap.Uint64("guildID", guildID),
		zap.Uint64("roleID", roleID),
		zap.Int("minLevel", minLevel))

	return nil
}

// GetRewards lists a guild's rewards sorted by level.
func (e *Engine) GetRewards(ctx context.Context, guildID uint64) ([]*types.Reward, error) {
	ladder, err := e.ladder(ctx, guildID)
	if err != nil {
		return nil, err
	}

	return ladder.Rewards(), nil
}

// RemoveReward deletes a role's reward.
func (e *Engine) RemoveReward(ctx context.Context, guildID, roleID uint64) error {
	if err := e.store.DeleteReward(ctx, guildID, roleID); err != nil {
		return err
	}

	e.logger.Info("Removed level reward",
		zap.Uint64("guildID", guildID),
		zap.Uint64("roleID", roleID))

	return nil
}

// SetIgnored toggles ignore flags on every resolvable token. Typed channel
// and role mentions are checked against the engine's Directory; without one,
// or for a guild the Directory has no list for, they are trusted as written.
func (e *Engine) SetIgnored(ctx context.Context, req IgnoreRequest) (summary *IgnoreSummary, err error) {
	ctx, span := e.startSpan(ctx, "SetIgnored", req.GuildID, 0)
	defer func() { endSpan(span, err) }()

	return e.ignores.SetIgnored(ctx, req, e.now())
}

// EnsureMember seeds a member's ledger. Reports whether they were new.
func (e *Engine) EnsureMember(ctx context.Context, member types.Member) (bool, error) {
	created, err := e.ledger.EnsureMember(ctx, member, e.now())
	if err != nil {
		return false, err
	}

	if created {
		e.invalidateStandings(ctx, member.GuildID)
	}

	return created, nil
}

// History returns a member's most recent ledger entries, newest first.
func (e *Engine) History(ctx context.Context, member types.Member, limit int) ([]*types.LedgerEntry, error) {
	return e.ledger.History(ctx, member, limit)
}

// GuildSettings returns a guild's settings, served from the settings cache
// when fresh. The returned value is a copy.
func (e *Engine) GuildSettings(ctx context.Context, guildID uint64) (*types.GuildSetting, error) {
	if cached, ok := e.settingsCache.Get(guildID); ok {
		clone := *cached
		return &clone, nil
	}

	seen := e.settingsGen.current(guildID)

	settings, err := e.store.GuildSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}

	e.settingsGen.fill(guildID, seen, func() {
		e.settingsCache.Set(guildID, settings)
	})

	clone := *settings

	return &clone, nil
}

// EnsureGuildSettings returns a guild's settings, creating them from the
// configured defaults when the guild has none.
func (e *Engine) EnsureGuildSettings(ctx context.Context, guildID uint64) (*types.GuildSetting, error) {
	settings, err := e.GuildSettings(ctx, guildID)
	if err == nil {
		return settings, nil
	}

	if !errors.Is(err, types.ErrGuildSettingsNotFound) {
		return nil, err
	}

	defaults := e.config.Defaults
	settings = &types.GuildSetting{
		GuildID:       guildID,
		Base:          defaults.Base,
		Modifier:      defaults.Modifier,
		Amount:        defaults.Amount,
		Cooldown:      defaults.Cooldown(),
		ModuleEnabled: defaults.ModuleEnabled,
	}

	if err := e.ConfigureGuild(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to create default guild settings: %w", err)
	}

	return settings, nil
}

// ConfigureGuild validates and stores a guild's settings.
func (e *Engine) ConfigureGuild(ctx context.Context, settings *types.GuildSetting) (err error) {
	ctx, span := e.startSpan(ctx, "ConfigureGuild", settings.GuildID, 0)
	defer func() { endSpan(span, err) }()

	if err := settings.Validate(); err != nil {
		return err
	}

	settings.UpdatedAt = e.now()

	if err := e.store.SaveGuildSettings(ctx, settings); err != nil {
		return err
	}

	e.settingsGen.invalidate(settings.GuildID, func() {
		e.settingsCache.Delete(settings.GuildID)
	})

	e.logger.Info("Configured guild",
		zap.Uint64("guildID", settings.GuildID),
		zap.Int("base", settings.Base),
		zap.Int("modifier", settings.Modifier),
		zap.Int64("amount", settings.Amount),
		zap.Duration("cooldown", settings.Cooldown),
		zap.Bool("moduleEnabled", settings.ModuleEnabled))

	return nil
}

// ladder loads a guild's reward ladder.
func (e *Engine) ladder(ctx context.Context, guildID uint64) (*RewardLadder, error) {
	rewards, err := e.store.Rewards(ctx, guildID)
	if err != nil {
		return nil, err
	}

	return NewRewardLadder(rewards), nil
}

// standings returns a guild's standings, from cache when possible.
// Concurrent misses for the same guild share one store read.
func (e *Engine) standings(ctx context.Context, guildID uint64) ([]*types.Standing, error) {
	if e.standingsCache != nil {
		cached, found, err := e.standingsCache.Get(ctx, guildID)
		if err != nil {
			e.logger.Warn("Failed to read standings cache", zap.Uint64("guildID", guildID), zap.Error(err))
		} else if found {
			return cached, nil
		}
	}

	value, err, _ := e.standingsGroup.Do(strconv.FormatUint(guildID, 10), func() (any, error) {
		seen := e.standingsGen.current(guildID)

		standings, err := e.store.Standings(ctx, guildID)
		if err != nil {
			return nil, err
		}

		if e.standingsCache == nil {
			return standings, nil
		}

		// A write that landed during the read leaves this snapshot uncached
		e.standingsGen.fill(guildID, seen, func() {
			if err := e.standingsCache.Set(ctx, guildID, standings); err != nil {
				e.logger.Warn("Failed to write standings cache", zap.Uint64("guildID", guildID), zap.Error(err))
			}
		})

		return standings, nil
	})
	if err != nil {
		return nil, err
	}

	return value.([]*types.Standing), nil
}

// invalidateStandings drops a guild's cached standings after a ledger write.
func (e *Engine) invalidateStandings(ctx context.Context, guildID uint64) {
	if e.standingsCache == nil {
		return
	}

	e.standingsGen.invalidate(guildID, func() {
		if err := e.standingsCache.Invalidate(ctx, guildID); err != nil {
			e.logger.Warn("Failed to invalidate standings cache", zap.Uint64("guildID", guildID), zap.Error(err))
		}
	})
}

func (e *Engine) startSpan(ctx context.Context, name string, guildID, userID uint64) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("guild.id", strconv.FormatUint(guildID, 10))}
	if userID != 0 {
		attrs = append(attrs, attribute.String("user.id", strconv.FormatUint(userID, 10)))
	}

	return e.tracer.Start(ctx, "leveling."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}
