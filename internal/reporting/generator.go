package reporting

import (
	"context"
	"time"

	"nse-market-lab/internal/storage"
)

// Generator produces dataset summaries from stored bars.
type Generator struct {
	barStore storage.BarStore
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new dataset report generator.
func NewGenerator(barStore storage.BarStore) *Generator {
	return &Generator{
		barStore: barStore,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate summarizes every stored symbol's bar history.
func (g *Generator) Generate(ctx context.Context) (*DatasetSummary, error) {
	symbols, err := g.barStore.ListSymbols(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DatasetSummary{GeneratedAt: g.now()}
	for _, symbol := range symbols {
		bars, err := g.barStore.GetBySymbol(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			continue
		}

		s := SymbolSummary{
			Symbol:    symbol,
			Rows:      len(bars),
			FirstDate: bars[0].Date().Format("2006-01-02"),
			LastDate:  bars[len(bars)-1].Date().Format("2006-01-02"),
			MinClose:  bars[0].Close,
			MaxClose:  bars[0].Close,
		}
		var volume float64
		for _, b := range bars {
			if b.Close < s.MinClose {
				s.MinClose = b.Close
			}
			if b.Close > s.MaxClose {
				s.MaxClose = b.Close
			}
			volume += b.Volume
		}
		s.AvgVolume = volume / float64(len(bars))

		summary.Symbols = append(summary.Symbols, s)
		summary.TotalRows += len(bars)
	}
	return summary, nil
}
