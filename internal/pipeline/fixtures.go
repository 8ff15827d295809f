package pipeline

import (
	"context"
	"math"
	"time"

	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/storage"
)

// FixtureBars generates a deterministic daily bar series for a symbol.
// Prices follow a slow sine wave around a base level so downstream
// indicators and scalers see realistic variation.
func FixtureBars(symbol string, n int, base float64) []*domain.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]*domain.Bar, 0, n)
	for i := 0; i < n; i++ {
		close := base + base*0.05*math.Sin(float64(i)/9.0) + float64(i%7)*0.3
		open := close - 1.5
		bars = append(bars, &domain.Bar{
			Symbol:      symbol,
			TimestampMs: start.AddDate(0, 0, i).UnixMilli(),
			Open:        open,
			High:        close + 2.0,
			Low:         open - 2.0,
			Close:       close,
			Volume:      10000 + float64((i*37)%500),
		})
	}
	return bars
}

// LoadFixtures inserts fixture bar histories for the given symbols.
func LoadFixtures(ctx context.Context, store storage.BarStore, symbols []string, rows int) error {
	for i, symbol := range symbols {
		bars := FixtureBars(symbol, rows, 100*float64(i+1))
		if err := store.InsertBulk(ctx, bars); err != nil {
			return err
		}
	}
	return nil
}
