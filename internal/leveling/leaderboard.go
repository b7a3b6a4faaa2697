package leveling

import (
	"fmt"
	"slices"

	"github.com/robalyx/levels/internal/database/types"
)

// Leaderboard paging defaults.
const (
	DefaultPageSize     = 15
	DefaultWindowBefore = 5
)

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID uint64 `json:"userId"`
	XP     int64  `json:"xp"`
}

// Leaderboard is a page of a guild's ranking.
type Leaderboard struct {
	Entries      []LeaderboardEntry `json:"entries"`
	TotalMembers int                `json:"totalMembers"`
}

// Ranking orders a guild's standings by XP descending. Ties go to the
// member whose ledger started first, then to the lower user id. Ranks are
// ordinal, so tied members still get distinct ranks.
type Ranking struct {
	standings []*types.Standing
	index     map[uint64]int
}

// NewRanking sorts a copy of standings.
func NewRanking(standings []*types.Standing) *Ranking {
	sorted := slices.Clone(standings)
	slices.SortFunc(sorted, compareStandings)

	index := make(map[uint64]int, len(sorted))
	for i, standing := range sorted {
		index[standing.UserID] = i
	}

	return &Ranking{standings: sorted, index: index}
}

// Len returns the number of ranked members.
func (r *Ranking) Len() int {
	return len(r.standings)
}

// Rank returns the 1-based rank of a user.
func (r *Ranking) Rank(userID uint64) (int, bool) {
	idx, ok := r.index[userID]
	return idx + 1, ok
}

// TopPage returns the first pageSize ranked members.
func (r *Ranking) TopPage(pageSize int) []LeaderboardEntry {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return r.slice(0, min(pageSize, len(r.standings)))
}

// WindowAroundMember returns min(pageSize, n) consecutive ranked members
// that always include userID, starting up to before rows above it. The
// window slides up when it would run past the end of the ranking.
func (r *Ranking) WindowAroundMember(userID uint64, before, pageSize int) ([]LeaderboardEntry, error) {
	idx, ok := r.index[userID]
	if !ok {
		return nil, fmt.Errorf("%w (userID=%d)", types.ErrMemberNotOnLeaderboard, userID)
	}

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	before = min(max(before, 0), pageSize-1)

	n := len(r.standings)
	start := max(0, min(idx-before, n-pageSize))
	end := min(start+pageSize, n)

	return r.slice(start, end), nil
}

func (r *Ranking) slice(start, end int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, end-start)
	for i := start; i < end; i++ {
		entries = append(entries, LeaderboardEntry{
			Rank:   i + 1,
			UserID: r.standings[i].UserID,
			XP:     r.standings[i].XP,
		})
	}

	return entries
}

func compareStandings(a, b *types.Standing) int {
	switch {
	case a.XP != b.XP:
		if a.XP > b.XP {
			return -1
		}

		return 1
	case a.FirstEntryID != b.FirstEntryID:
		if a.FirstEntryID < b.FirstEntryID {
			return -1
		}

		return 1
	case a.UserID < b.UserID:
		return -1
	case a.UserID > b.UserID:
		return 1
	default:
		return 0
	}
}
