package leveling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/levels/internal/database/types"
	"github.com/robalyx/levels/internal/database/types/enum"
	"go.uber.org/zap"
)

// ErrInvalidToken is returned for a token that is neither an id nor a mention.
var ErrInvalidToken = errors.New("not an id or mention")

// Reasons reported for tokens that could not be applied.
const (
	ReasonInvalidToken   = "not an id or mention"
	ReasonUnknownMember  = "unknown member"
	ReasonUnknownChannel = "unknown channel"
	ReasonUnknownRole    = "unknown role"
	ReasonUnknownTarget  = "no member, channel or role with this id"
)

// Ignorable is anything an ignore flag can be set on.
type Ignorable struct {
	Kind enum.IgnoreTarget
	ID   uint64
}

// String implements fmt.Stringer.
func (i Ignorable) String() string {
	return fmt.Sprintf("%s:%d", i.Kind, i.ID)
}

// IgnoreRequest toggles ignore flags from free-text tokens.
type IgnoreRequest struct {
	GuildID uint64
	Tokens  []string
	Ignored bool
	ActorID uint64
}

// IgnoreResult reports what happened to one input token.
type IgnoreResult struct {
	Token    string
	Target   Ignorable
	Resolved bool
	Reason   string // Why the token was not applied
}

// IgnoreSummary is the per-token outcome of a bulk ignore request.
type IgnoreSummary struct {
	Results []IgnoreResult
	Applied int // Distinct targets written
}

// Unresolved returns the results of tokens that were not applied.
func (s *IgnoreSummary) Unresolved() []IgnoreResult {
	var out []IgnoreResult

	for _, result := range s.Results {
		if !result.Resolved {
			out = append(out, result)
		}
	}

	return out
}

// tokenHint is what the syntax of a token says about its target.
type tokenHint struct {
	id       uint64
	kind     enum.IgnoreTarget
	explicit bool // Mention syntax fixed the kind
}

// ParseIgnoreToken reads a raw id or a member, channel or role mention.
func ParseIgnoreToken(token string) (uint64, *enum.IgnoreTarget, error) {
	hint, err := parseToken(token)
	if err != nil {
		return 0, nil, err
	}

	if !hint.explicit {
		return hint.id, nil, nil
	}

	return hint.id, &hint.kind, nil
}

func parseToken(token string) (tokenHint, error) {
	token = strings.TrimSpace(token)

	hint := tokenHint{explicit: true}
	raw := token

	switch {
	case strings.HasPrefix(token, "<@&") && strings.HasSuffix(token, ">"):
		hint.kind = enum.IgnoreTargetRole
		raw = token[3 : len(token)-1]
	case strings.HasPrefix(token, "<@!") && strings.HasSuffix(token, ">"):
		hint.kind = enum.IgnoreTargetMember
		raw = token[3 : len(token)-1]
	case strings.HasPrefix(token, "<@") && strings.HasSuffix(token, ">"):
		hint.kind = enum.IgnoreTargetMember
		raw = token[2 : len(token)-1]
	case strings.HasPrefix(token, "<#") && strings.HasSuffix(token, ">"):
		hint.kind = enum.IgnoreTargetChannel
		raw = token[2 : len(token)-1]
	default:
		hint.explicit = false
	}

	id, err := snowflake.Parse(raw)
	if err != nil || id == 0 {
		return tokenHint{}, fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}

	hint.id = uint64(id)

	return hint, nil
}

// IgnoreRegistry tracks which members, channels and roles of a guild are
// exempt from earning XP.
type IgnoreRegistry struct {
	store     Store
	directory Directory
	logger    *zap.Logger
}

// NewIgnoreRegistry creates a registry. directory may be nil, in which
// case mentions resolve by their syntax alone and plain ids resolve only
// to members known to the ledger.
func NewIgnoreRegistry(store Store, directory Directory, logger *zap.Logger) *IgnoreRegistry {
	return &IgnoreRegistry{
		store:     store,
		directory: directory,
		logger:    logger.Named("ignore_registry"),
	}
}

// SetIgnored applies or clears the ignore flag on every token that
// resolves and reports each token's outcome.
func (r *IgnoreRegistry) SetIgnored(ctx context.Context, req IgnoreRequest, now time.Time) (*IgnoreSummary, error) {
	summary := &IgnoreSummary{Results: make([]IgnoreResult, 0, len(req.Tokens))}
	targets := make(map[uint64]Ignorable)
	order := make([]uint64, 0, len(req.Tokens))

	for _, token := range req.Tokens {
		result, err := r.resolve(ctx, req.GuildID, token)
		if err != nil {
			return nil, err
		}

		summary.Results = append(summary.Results, result)

		if result.Resolved {
			if _, seen := targets[result.Target.ID]; !seen {
				order = append(order, result.Target.ID)
			}

			targets[result.Target.ID] = result.Target
		}
	}

	if len(order) == 0 {
		return summary, nil
	}

	if req.Ignored {
		flags := make([]*types.IgnoreFlag, 0, len(order))
		for _, id := range order {
			flags = append(flags, &types.IgnoreFlag{
				GuildID:   req.GuildID,
				TargetID:  id,
				Target:    targets[id].Kind,
				ActorID:   req.ActorID,
				CreatedAt: now,
			})
		}

		if err := r.store.SetIgnoreFlags(ctx, flags); err != nil {
			return nil, err
		}
	} else if err := r.store.ClearIgnoreFlags(ctx, req.GuildID, order); err != nil {
		return nil, err
	}

	summary.Applied = len(order)

	r.logger.Info("Updated ignore flags",
		zap.Uint64("guildID", req.GuildID),
		zap.Bool("ignored", req.Ignored),
		zap.Int("applied", summary.Applied),
		zap.Int("unresolved", len(summary.Results)-countResolved(summary.Results)),
		zap.Uint64("actorID", req.ActorID))

	return summary, nil
}

// resolve maps one token onto an Ignorable.
func (r *IgnoreRegistry) resolve(ctx context.Context, guildID uint64, token string) (IgnoreResult, error) {
	result := IgnoreResult{Token: token}

	hint, err := parseToken(token)
	if err != nil {
		result.Reason = ReasonInvalidToken
		return result, nil
	}

	if hint.explicit {
		result.Target = Ignorable{Kind: hint.kind, ID: hint.id}

		known, err := r.known(ctx, guildID, result.Target)
		if err != nil {
			return result, err
		}

		result.Resolved = known
		if !known {
			result.Reason = unknownReason(hint.kind)
		}

		return result, nil
	}

	// A bare id is tried as a member known to the ledger, then a channel, then a role
	exists, err := r.store.MemberExists(ctx, types.Member{UserID: hint.id, GuildID: guildID})
	if err != nil {
		return result, err
	}

	if exists {
		result.Target = Ignorable{Kind: enum.IgnoreTargetMember, ID: hint.id}
		result.Resolved = true

		return result, nil
	}

	if r.directory != nil {
		for _, kind := range []enum.IgnoreTarget{enum.IgnoreTargetChannel, enum.IgnoreTargetRole} {
			target := Ignorable{Kind: kind, ID: hint.id}

			known, err := r.known(ctx, guildID, target)
			if err != nil {
				return result, err
			}

			if known {
				result.Target = target
				result.Resolved = true

				return result, nil
			}
		}
	}

	result.Target = Ignorable{ID: hint.id}
	result.Reason = ReasonUnknownTarget

	return result, nil
}

// known reports whether an explicitly typed target exists.
func (r *IgnoreRegistry) known(ctx context.Context, guildID uint64, target Ignorable) (bool, error) {
	switch target.Kind {
	case enum.IgnoreTargetMember:
		// Mentioning a member is enough, they may not have spoken yet
		return true, nil
	case enum.IgnoreTargetChannel:
		if r.directory == nil {
			return true, nil
		}

		return r.directory.HasChannel(ctx, guildID, target.ID)
	case enum.IgnoreTargetRole:
		if r.directory == nil {
			return true, nil
		}

		return r.directory.HasRole(ctx, guildID, target.ID)
	default:
		return false, nil
	}
}

// Check returns the first ignored target of an activity event, checking
// the channel, then the member, then each role.
func (r *IgnoreRegistry) Check(
	ctx context.Context, guildID, channelID, userID uint64, roleIDs []uint64,
) (*Ignorable, error) {
	candidates := make([]Ignorable, 0, len(roleIDs)+2)
	candidates = append(candidates,
		Ignorable{Kind: enum.IgnoreTargetChannel, ID: channelID},
		Ignorable{Kind: enum.IgnoreTargetMember, ID: userID},
	)

	for _, roleID := range roleIDs {
		candidates = append(candidates, Ignorable{Kind: enum.IgnoreTargetRole, ID: roleID})
	}

	ids := make([]uint64, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID != 0 {
			ids = append(ids, candidate.ID)
		}
	}

	flagged, err := r.store.IgnoredTargets(ctx, guildID, ids)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		if kind, ok := flagged[candidate.ID]; ok && candidate.ID != 0 && kind == candidate.Kind {
			return &candidate, nil
		}
	}

	return nil, nil
}

func unknownReason(kind enum.IgnoreTarget) string {
	switch kind {
	case enum.IgnoreTargetMember:
		return ReasonUnknownMember
	case enum.IgnoreTargetChannel:
		return ReasonUnknownChannel
	case enum.IgnoreTargetRole:
		return ReasonUnknownRole
	default:
		return ReasonUnknownTarget
	}
}

func countResolved(results []IgnoreResult) int {
	count := 0

	for _, result := range results {
		if result.Resolved {
			count++
		}
	}

	return count
}
