// Package tokenizer maps continuous feature rows to composite integer
// tokens via per-column quantile discretizers.
package tokenizer

import (
	"fmt"
	"sort"

	"nse-market-lab/internal/cleaning"
)

// Discretizer bins continuous values into equal-population intervals
// derived from empirical quantiles. Immutable after fitting.
type Discretizer struct {
	NBins int
	// Edges holds the deduplicated quantile boundaries. Tie-heavy
	// distributions yield fewer edges than NBins+1, degrading to fewer
	// effective bins.
	Edges []float64
}

// Fit computes quantile edges over vals. vals must be non-empty.
func (d *Discretizer) Fit(vals []float64) error {
	if len(vals) == 0 {
		return fmt.Errorf("fit discretizer: no values")
	}
	if d.NBins < 1 {
		return fmt.Errorf("fit discretizer: nBins must be positive, got %d", d.NBins)
	}

	edges := make([]float64, 0, d.NBins+1)
	for i := 0; i <= d.NBins; i++ {
		q := float64(i) / float64(d.NBins)
		e := cleaning.Quantile(vals, q)
		// Drop duplicate edges from tied values
		if len(edges) == 0 || e > edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}
	// A constant column collapses to a single edge; keep one bin
	if len(edges) == 1 {
		edges = append(edges, edges[0])
	}
	d.Edges = edges
	return nil
}

// EffectiveBins returns the number of distinct bins after tie
// degradation. At most NBins.
func (d *Discretizer) EffectiveBins() int {
	if len(d.Edges) < 2 {
		return 0
	}
	return len(d.Edges) - 1
}

// Transform maps a value to its bin index. Values outside the fitted
// range clip to the boundary bins.
func (d *Discretizer) Transform(v float64) int {
	n := d.EffectiveBins()
	if n == 0 {
		return 0
	}
	if v <= d.Edges[0] {
		return 0
	}
	if v >= d.Edges[len(d.Edges)-1] {
		return n - 1
	}
	// First edge strictly greater than v; bin is the interval before it
	idx := sort.SearchFloat64s(d.Edges, v)
	if idx < len(d.Edges) && d.Edges[idx] == v {
		return idx
	}
	return idx - 1
}

// Midpoint returns the center of a bin's interval. Out-of-range bin
// indices clip to the boundary bins.
func (d *Discretizer) Midpoint(bin int) float64 {
	n := d.EffectiveBins()
	if bin < 0 {
		bin = 0
	}
	if bin >= n {
		bin = n - 1
	}
	return (d.Edges[bin] + d.Edges[bin+1]) / 2
}
