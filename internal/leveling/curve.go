package leveling

import (
	"math"
	"math/big"
	"math/bits"

	"github.com/robalyx/levels/internal/database/types"
)

// estimateFloor is the XP total above which LevelForXp seeds its search
// from the closed-form estimate instead of scanning from zero.
const estimateFloor = 1000

// maxEstimate caps the closed-form estimate. T(k) >= k*k/100 on every sloped
// curve, so T saturates well before this step.
const maxEstimate = 1 << 40

// LevelProgress describes where a total XP value sits on a curve.
type LevelProgress struct {
	Level          int
	LevelProgress  int64 // XP earned since reaching Level
	XpForNextLevel int64 // XP still missing to reach Level+1
}

// stepThreshold returns T(k), the XP needed to leave step k of the curve.
//
//	T(k) = 0                                  for k < 0
//	T(0) = base
//	T(k) = base + round(base*modifier/100*k)*k for k > 0
//
// The rounding is done on integers, half to even. Values past MaxInt64
// saturate at MaxInt64.
func stepThreshold(k, base, modifier int) int64 {
	switch {
	case k < 0:
		return 0
	case k == 0:
		return int64(base)
	}

	n, ok := mulNonNegative(int64(base), int64(modifier))
	if ok {
		n, ok = mulNonNegative(n, int64(k))
	}

	if !ok {
		return wideStepThreshold(k, base, modifier)
	}

	q, r := n/100, n%100

	if r > 50 || (r == 50 && q%2 == 1) {
		q++
	}

	step, ok := mulNonNegative(q, int64(k))
	if !ok || step > math.MaxInt64-int64(base) {
		return math.MaxInt64
	}

	return int64(base) + step
}

// wideStepThreshold computes T(k) without bounds for the steps whose
// intermediate product leaves int64, then saturates.
func wideStepThreshold(k, base, modifier int) int64 {
	kk := big.NewInt(int64(k))

	n := new(big.Int).Mul(big.NewInt(int64(base)), big.NewInt(int64(modifier)))
	n.Mul(n, kk)

	q, r := new(big.Int).QuoRem(n, big.NewInt(100), new(big.Int))
	if c := r.Cmp(big.NewInt(50)); c > 0 || (c == 0 && q.Bit(0) == 1) {
		q.Add(q, big.NewInt(1))
	}

	q.Mul(q, kk)
	q.Add(q, big.NewInt(int64(base)))

	if !q.IsInt64() {
		return math.MaxInt64
	}

	return q.Int64()
}

// mulNonNegative multiplies two non-negative values, reporting false when
// the product does not fit in an int64.
func mulNonNegative(a, b int64) (int64, bool) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return math.MaxInt64, false
	}

	return int64(lo), true
}

// XpThresholdForLevel returns the total XP at which a member reaches level.
// Level 1 is free; level 2 is reached at base. levelOffset shifts the
// curve index and is 0 for every caller in this module.
func XpThresholdForLevel(level, levelOffset, base, modifier int) int64 {
	return stepThreshold(level-2+levelOffset, base, modifier)
}

// LevelForXp returns the level of a member holding xp total XP. It is the
// smallest k >= 0 with xp < T(k), plus one. A flat curve (modifier 0) has
// no threshold past base, so the level saturates at 2. On a sloped curve
// the first saturated step is the last level, so xp of MaxInt64 stays on it.
func LevelForXp(xp int64, base, modifier int) int {
	if xp < int64(base) {
		return 1
	}

	if modifier == 0 {
		return 2
	}

	k := 0
	if xp > estimateFloor {
		k = estimateStep(xp, base, modifier)
	}

	return firstStepAbove(xp, k, base, modifier) + 1
}

// firstStepAbove returns the smallest step k with xp < T(k), or the first
// saturated step. It gallops away from seed to bracket the answer and
// bisects the bracket, so the cost is logarithmic in the seed's error.
func firstStepAbove(xp int64, seed, base, modifier int) int {
	above := func(k int) bool {
		threshold := stepThreshold(k, base, modifier)
		return xp < threshold || threshold == math.MaxInt64
	}

	// Invariant: low is not above xp (or is -1), high is
	var low, high int

	if above(seed) {
		high = seed
		low = -1

		for step := 1; high > 0; step *= 2 {
			candidate := max(high-step, 0)
			if !above(candidate) {
				low = candidate
				break
			}

			high = candidate
		}
	} else {
		low = seed

		for step := 1; ; step *= 2 {
			candidate := low + step
			if above(candidate) {
				high = candidate
				break
			}

			low = candidate
		}
	}

	for high-low > 1 {
		mid := low + (high-low)/2
		if above(mid) {
			high = mid
		} else {
			low = mid
		}
	}

	return high
}

// levelForXpScan is the reference search from k = 0.
func levelForXpScan(xp int64, base, modifier int) int {
	if modifier == 0 && xp >= int64(base) {
		return 2
	}

	k := 0
	for {
		threshold := stepThreshold(k, base, modifier)
		if xp < threshold || threshold == math.MaxInt64 {
			return k + 1
		}

		k++
	}
}

// estimateStep approximates the curve step holding xp by inverting
// T(k) ~ base + base*modifier/100*k^2.
func estimateStep(xp int64, base, modifier int) int {
	estimate := math.Floor(math.Sqrt(float64(xp-int64(base)) * 100 / (float64(base) * float64(modifier))))
	if math.IsNaN(estimate) || estimate < 0 {
		return 0
	}

	// Past this bound every sloped curve has saturated
	if estimate > maxEstimate {
		return maxEstimate
	}

	return int(estimate)
}

// Curve is the level curve of one guild.
type Curve struct {
	Base     int
	Modifier int
}

// NewCurve returns the curve configured by a guild's settings.
func NewCurve(settings *types.GuildSetting) Curve {
	return Curve{Base: settings.Base, Modifier: settings.Modifier}
}

// Level returns the level reached with xp total XP.
func (c Curve) Level(xp int64) int {
	return LevelForXp(xp, c.Base, c.Modifier)
}

// Threshold returns the total XP needed to reach level.
func (c Curve) Threshold(level int) int64 {
	return XpThresholdForLevel(level, 0, c.Base, c.Modifier)
}

// Progress places xp on the curve. Both figures are differences against
// the thresholds of the current and next level. A saturated flat curve
// has no next level and reports zero XP missing.
func (c Curve) Progress(xp int64) LevelProgress {
	level := c.Level(xp)

	return LevelProgress{
		Level:          level,
		LevelProgress:  xp - c.Threshold(level),
		XpForNextLevel: max(c.Threshold(level+1)-xp, 0),
	}
}
