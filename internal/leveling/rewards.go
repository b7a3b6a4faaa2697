package leveling

import (
	"slices"

	"github.com/robalyx/levels/internal/database/types"
)

// RewardLadder resolves a guild's level rewards for a given level.
type RewardLadder struct {
	rewards []*types.Reward // Sorted by MinLevel, then RoleID
}

// NewRewardLadder builds a ladder from a guild's rewards.
func NewRewardLadder(rewards []*types.Reward) *RewardLadder {
	sorted := slices.Clone(rewards)
	slices.SortFunc(sorted, compareRewards)

	return &RewardLadder{rewards: sorted}
}

// Rewards returns every reward sorted by level.
func (l *RewardLadder) Rewards() []*types.Reward {
	return slices.Clone(l.rewards)
}

// EarnedRewards returns the rewards with MinLevel <= level.
func (l *RewardLadder) EarnedRewards(level int) []*types.Reward {
	return l.NewlyEarned(-1, level)
}

// NewlyEarned returns the rewards crossed when moving from one level to
// another, that is every reward with from < MinLevel <= to.
func (l *RewardLadder) NewlyEarned(from, to int) []*types.Reward {
	var earned []*types.Reward

	for _, reward := range l.rewards {
		if reward.MinLevel > to {
			break
		}

		if reward.MinLevel > from {
			earned = append(earned, reward)
		}
	}

	return earned
}

// NextReward returns the reward with the smallest MinLevel above level.
// Ties on level resolve to the lowest role id.
func (l *RewardLadder) NextReward(level int) (*types.Reward, bool) {
	idx, _ := slices.BinarySearchFunc(l.rewards, level+1, func(r *types.Reward, target int) int {
		return r.MinLevel - target
	})

	if idx >= len(l.rewards) {
		return nil, false
	}

	return l.rewards[idx], true
}

// RoleIDs returns the role ids of rewards.
func RoleIDs(rewards []*types.Reward) []uint64 {
	ids := make([]uint64, len(rewards))
	for i, reward := range rewards {
		ids[i] = reward.RoleID
	}

	return ids
}

func compareRewards(a, b *types.Reward) int {
	if a.MinLevel != b.MinLevel {
		return a.MinLevel - b.MinLevel
	}

	switch {
	case a.RoleID < b.RoleID:
		return -1
	case a.RoleID > b.RoleID:
		return 1
	default:
		return 0
	}
}
