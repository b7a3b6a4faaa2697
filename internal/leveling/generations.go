package leveling

import "sync"

// generationStripes is the number of per-guild fill lock stripes.
const generationStripes = 32

// generations orders cache fills against invalidations per guild. A fill
// captures the guild's generation before reading the store and only lands
// if no invalidation ran since; invalidation bumps the generation and drops
// the entry under the same stripe lock, so a late fill can never re-insert
// a value read before the write it lost to.
//
// The ordering holds inside one process. Other processes writing the same
// store still rely on the cache TTL.
type generations struct {
	mu      sync.Mutex
	counts  map[uint64]uint64
	stripes [generationStripes]sync.Mutex
}

func newGenerations() *generations {
	return &generations{counts: make(map[uint64]uint64)}
}

// current returns the guild's generation. Capture it before the store read.
func (g *generations) current(guildID uint64) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.counts[guildID]
}

// fill runs set unless the guild was invalidated after seen was captured.
// Reports whether set ran.
func (g *generations) fill(guildID, seen uint64, set func()) bool {
	stripe := &g.stripes[guildID%generationStripes]
	stripe.Lock()
	defer stripe.Unlock()

	if g.current(guildID) != seen {
		return false
	}

	set()

	return true
}

// invalidate bumps the guild's generation and runs drop.
func (g *generations) invalidate(guildID uint64, drop func()) {
	stripe := &g.stripes[guildID%generationStripes]
	stripe.Lock()
	defer stripe.Unlock()

	g.mu.Lock()
	g.counts[guildID]++
	g.mu.Unlock()

	drop()
}
