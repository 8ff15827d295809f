// Package prediction reconstructs a live feature window for a symbol
// and runs the forecaster over it.
package prediction

import (
	"fmt"
	"io"
	"log"
	"time"

	"nse-market-lab/internal/cleaning"
	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/features"
	"nse-market-lab/internal/model"
)

// Options configures a Predictor.
type Options struct {
	Model   *model.Forecaster[model.Backend]
	Backend model.Backend
	Scalers *cleaning.ScalerSet

	// Steps is the number of forecast days. Defaults to the model's
	// native horizon; larger values extend autoregressively.
	Steps int

	Logger  *log.Logger
	Verbose bool
}

// Predictor runs inference for one symbol at a time.
type Predictor struct {
	opts Options
}

// New creates a Predictor. Model, Backend, and Scalers are required.
func New(opts Options) (*Predictor, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if opts.Scalers == nil {
		return nil, fmt.Errorf("scalers are required")
	}
	if opts.Steps <= 0 {
		opts.Steps = opts.Model.Config().TargetLen
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Predictor{opts: opts}, nil
}

// Predict builds a feature window from the symbol's recent bars, runs
// the forecaster, and returns close forecasts in price units. When
// history is shorter than the model's input length, it falls back to a
// padded window and flags the result as truncated.
func (p *Predictor) Predict(symbol string, bars []*domain.Bar) (*domain.PredictionResult, error) {
	own := make([]*domain.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Symbol == symbol {
			own = append(own, b)
		}
	}
	if len(own) == 0 {
		return nil, fmt.Errorf("no bars for %s", symbol)
	}

	featureBars, err := features.ComputeSymbol(own)
	if err != nil {
		return nil, fmt.Errorf("compute features: %w", err)
	}
	if len(featureBars) == 0 {
		return nil, fmt.Errorf("not enough history for %s: %d bars leave no rows after indicator warm-up", symbol, len(own))
	}

	cfg := p.opts.Model.Config()
	window, truncated, err := p.buildWindow(symbol, featureBars, cfg.InputLen)
	if err != nil {
		return nil, err
	}
	windowRows := len(featureBars)
	if windowRows > cfg.InputLen {
		windowRows = cfg.InputLen
	}
	if truncated {
		p.opts.Logger.Printf("warning: only %d feature rows for %s, model wants %d; padding window",
			windowRows, symbol, cfg.InputLen)
	}

	scaledCloses, err := p.forecast(window)
	if err != nil {
		return nil, err
	}

	last := featureBars[len(featureBars)-1]
	lastDate := time.UnixMilli(last.TimestampMs).UTC()

	result := &domain.PredictionResult{
		Symbol:        symbol,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		LastClose:     last.Close,
		LastCloseDate: lastDate.Format("2006-01-02"),
		WindowRows:    windowRows,
		Truncated:     truncated,
	}

	dates := BusinessDaysAfter(lastDate, p.opts.Steps)
	for i, scaled := range scaledCloses {
		price, err := p.opts.Scalers.InverseClose(symbol, scaled)
		if err != nil {
			return nil, fmt.Errorf("inverse transform: %w", err)
		}
		result.Predictions = append(result.Predictions, domain.PredictedPoint{
			Date:  dates[i].Format("2006-01-02"),
			Close: price,
		})
	}
	return result, nil
}

// buildWindow scales the feature rows and returns the trailing
// InputLen-row window. Short histories are left-padded by repeating
// the earliest row.
func (p *Predictor) buildWindow(symbol string, featureBars []*domain.FeatureBar, inputLen int) ([][]float64, bool, error) {
	rows := make([][]float64, 0, len(featureBars))
	for _, fb := range featureBars {
		scaled, err := p.opts.Scalers.TransformRow(symbol, fb.Values())
		if err != nil {
			return nil, false, fmt.Errorf("scale row: %w", err)
		}
		rows = append(rows, scaled)
	}

	if len(rows) >= inputLen {
		return rows[len(rows)-inputLen:], false, nil
	}

	padded := make([][]float64, 0, inputLen)
	for i := len(rows); i < inputLen; i++ {
		padded = append(padded, rows[0])
	}
	padded = append(padded, rows...)
	return padded, true, nil
}

// forecast runs the model over the window, extending autoregressively
// when Steps exceeds the model's native horizon. Returns scaled close
// values, one per step.
func (p *Predictor) forecast(window [][]float64) ([]float64, error) {
	cfg := p.opts.Model.Config()

	rolling := make([][]float64, len(window))
	copy(rolling, window)

	closes := make([]float64, 0, p.opts.Steps)
	for len(closes) < p.opts.Steps {
		predicted, err := model.PredictWindow(p.opts.Model, rolling, p.opts.Backend)
		if err != nil {
			return nil, fmt.Errorf("inference: %w", err)
		}
		for _, row := range predicted {
			if len(closes) == p.opts.Steps {
				break
			}
			closes = append(closes, row[domain.CloseColumn])
		}
		// Slide the window forward over the predicted rows
		drop := cfg.TargetLen
		if drop > len(rolling) {
			drop = len(rolling)
		}
		rolling = append(rolling[drop:], predicted...)
		if len(rolling) > cfg.InputLen {
			rolling = rolling[len(rolling)-cfg.InputLen:]
		}
	}
	return closes, nil
}

// BusinessDaysAfter returns the next n weekdays strictly after start.
func BusinessDaysAfter(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	day := start
	for len(out) < n {
		day = day.AddDate(0, 0, 1)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, day)
	}
	return out
}
