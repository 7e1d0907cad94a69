package engine

import (
	"math"
	"sort"
)

// roundIsk rounds an ISK amount to 2 decimal places, the precision carried
// at serialization boundaries. Internal intermediates stay full precision;
// values are rounded once, when written into result structs.
func roundIsk(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

func variance(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}
	mu := mean(x)
	sum := 0.0
	for _, v := range x {
		d := v - mu
		sum += d * d
	}
	return sum / float64(n-1)
}

// percentile computes the p-th percentile (0..100) of xs via linear
// interpolation on sorted rank. Returns nil for an empty sample so callers
// can report "no data" instead of a fabricated zero.
func percentile(xs []float64, p float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	if p <= 0 {
		return &sorted[0]
	}
	if p >= 100 {
		return &sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return &sorted[lo]
	}
	frac := rank - float64(lo)
	v := sorted[lo] + (sorted[hi]-sorted[lo])*frac
	return &v
}

// maxDrawdownPct returns the largest peak-to-trough decline of the series
// as a positive percentage of the running peak, or 0 if it never declines.
func maxDrawdownPct(nav []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, v := range nav {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak * 100
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
