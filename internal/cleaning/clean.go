// Package cleaning removes bad rows from raw bar data and scales
// feature columns with per-symbol fitted scalers.
package cleaning

import (
	"math"
	"sort"

	"nse-market-lab/internal/domain"
)

// IQR multipliers. Volume is heavier-tailed than prices, so it gets a
// wider fence and a lower bound clamped at zero.
const (
	priceIQRMult  = 1.5
	volumeIQRMult = 3.0
)

// DropMissing returns bars with no NaN values, preserving order.
func DropMissing(bars []*domain.Bar) []*domain.Bar {
	out := make([]*domain.Bar, 0, len(bars))
	for _, b := range bars {
		if b.HasMissing() {
			continue
		}
		out = append(out, b)
	}
	return out
}

// bounds is an inclusive [Lo, Hi] acceptance range for one column.
type bounds struct {
	Lo, Hi float64
}

func (b bounds) contains(v float64) bool {
	return v >= b.Lo && v <= b.Hi
}

// FilterOutliers removes IQR outliers per symbol. Price columns use a
// 1.5x fence, volume a 3x fence with the lower bound clamped at zero.
// A row is dropped when any column falls outside its fence.
func FilterOutliers(bars []*domain.Bar) []*domain.Bar {
	bySymbol := make(map[string][]*domain.Bar)
	for _, b := range bars {
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}

	keep := make(map[*domain.Bar]bool, len(bars))
	for _, group := range bySymbol {
		open := iqrBounds(column(group, func(b *domain.Bar) float64 { return b.Open }), priceIQRMult)
		high := iqrBounds(column(group, func(b *domain.Bar) float64 { return b.High }), priceIQRMult)
		low := iqrBounds(column(group, func(b *domain.Bar) float64 { return b.Low }), priceIQRMult)
		close := iqrBounds(column(group, func(b *domain.Bar) float64 { return b.Close }), priceIQRMult)
		volume := iqrBounds(column(group, func(b *domain.Bar) float64 { return b.Volume }), volumeIQRMult)
		volume.Lo = math.Max(volume.Lo, 0)

		for _, b := range group {
			if open.contains(b.Open) && high.contains(b.High) && low.contains(b.Low) &&
				close.contains(b.Close) && volume.contains(b.Volume) {
				keep[b] = true
			}
		}
	}

	out := make([]*domain.Bar, 0, len(bars))
	for _, b := range bars {
		if keep[b] {
			out = append(out, b)
		}
	}
	return out
}

func column(bars []*domain.Bar, get func(*domain.Bar) float64) []float64 {
	vals := make([]float64, len(bars))
	for i, b := range bars {
		vals[i] = get(b)
	}
	return vals
}

func iqrBounds(vals []float64, mult float64) bounds {
	q1 := Quantile(vals, 0.25)
	q3 := Quantile(vals, 0.75)
	iqr := q3 - q1
	return bounds{Lo: q1 - mult*iqr, Hi: q3 + mult*iqr}
}

// Quantile computes the q-th quantile of vals with linear interpolation
// between the two nearest order statistics. q must be in [0, 1].
func Quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
