package prediction

import (
	"math"
	"testing"
	"time"

	"nse-market-lab/internal/cleaning"
	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/features"
	"nse-market-lab/internal/model"
)

func makeBars(symbol string, n int, base float64) []*domain.Bar {
	bars := make([]*domain.Bar, n)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price := base + 5*math.Sin(float64(i)/3)
		bars[i] = &domain.Bar{
			Symbol:      symbol,
			TimestampMs: start.AddDate(0, 0, i).UnixMilli(),
			Open:        price,
			High:        price + 1,
			Low:         price - 1,
			Close:       price + 0.5,
			Volume:      10000 + float64(i),
		}
	}
	return bars
}

func newPredictor(t *testing.T, bars []*domain.Bar, steps int) *Predictor {
	t.Helper()

	featureBars, err := features.Compute(bars)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	scalers, err := cleaning.FitScalers(cleaning.ScalerStandard, featureBars)
	if err != nil {
		t.Fatalf("FitScalers: %v", err)
	}

	backend := model.NewBackend()
	m, err := model.NewForecaster(model.Config{
		InputLen:    16,
		TargetLen:   4,
		NumFeatures: len(domain.FeatureColumns),
		HiddenSize:  8,
	}, backend)
	if err != nil {
		t.Fatalf("NewForecaster: %v", err)
	}

	p, err := New(Options{Model: m, Backend: backend, Scalers: scalers, Steps: steps})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestPredict_FullWindow(t *testing.T) {
	bars := makeBars("TCS.NS", 60, 3500)
	p := newPredictor(t, bars, 4)

	result, err := p.Predict("TCS.NS", bars)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if result.Truncated {
		t.Error("60 bars give 41 feature rows; window should not be truncated")
	}
	if result.WindowRows != 16 {
		t.Errorf("WindowRows = %d, want 16", result.WindowRows)
	}
	if len(result.Predictions) != 4 {
		t.Fatalf("got %d predictions, want 4", len(result.Predictions))
	}
	for _, pt := range result.Predictions {
		if math.IsNaN(pt.Close) || math.IsInf(pt.Close, 0) {
			t.Fatal("prediction is not finite")
		}
		day, err := time.Parse("2006-01-02", pt.Date)
		if err != nil {
			t.Fatalf("bad date %q: %v", pt.Date, err)
		}
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("prediction date %s falls on a weekend", pt.Date)
		}
	}
	if result.LastClose == 0 {
		t.Error("LastClose not set")
	}
}

func TestPredict_ShortHistoryFallsBack(t *testing.T) {
	// 25 bars leave 6 feature rows, fewer than the 16-row window
	bars := makeBars("TCS.NS", 25, 3500)
	p := newPredictor(t, bars, 4)

	result, err := p.Predict("TCS.NS", bars)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !result.Truncated {
		t.Error("short history should flag the result as truncated")
	}
	if result.WindowRows != 6 {
		t.Errorf("WindowRows = %d, want 6", result.WindowRows)
	}
	if len(result.Predictions) != 4 {
		t.Errorf("got %d predictions, want 4", len(result.Predictions))
	}
}

func TestPredict_AutoregressiveExtension(t *testing.T) {
	bars := makeBars("TCS.NS", 60, 3500)
	// 10 steps with a native horizon of 4 needs three model passes
	p := newPredictor(t, bars, 10)

	result, err := p.Predict("TCS.NS", bars)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(result.Predictions) != 10 {
		t.Fatalf("got %d predictions, want 10", len(result.Predictions))
	}

	// Dates advance strictly
	prev := ""
	for _, pt := range result.Predictions {
		if pt.Date <= prev {
			t.Fatalf("dates not strictly increasing: %s after %s", pt.Date, prev)
		}
		prev = pt.Date
	}
}

func TestPredict_NoBarsForSymbol(t *testing.T) {
	bars := makeBars("TCS.NS", 60, 3500)
	p := newPredictor(t, bars, 4)

	if _, err := p.Predict("INFY.NS", bars); err == nil {
		t.Error("expected error for unknown symbol")
	}
}

func TestPredict_TooFewBarsForWarmUp(t *testing.T) {
	bars := makeBars("TCS.NS", 60, 3500)
	p := newPredictor(t, bars, 4)

	// 10 bars cannot survive the 19-row indicator warm-up
	if _, err := p.Predict("TCS.NS", makeBars("TCS.NS", 10, 3500)); err == nil {
		t.Error("expected error when warm-up consumes all rows")
	}
}

func TestBusinessDaysAfter(t *testing.T) {
	friday := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	days := BusinessDaysAfter(friday, 5)
	if len(days) != 5 {
		t.Fatalf("got %d days, want 5", len(days))
	}
	// Friday Jan 3 -> Mon 6, Tue 7, Wed 8, Thu 9, Fri 10
	want := []int{6, 7, 8, 9, 10}
	for i, d := range days {
		if d.Day() != want[i] {
			t.Errorf("day %d = Jan %d, want Jan %d", i, d.Day(), want[i])
		}
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("day %d falls on a weekend", i)
		}
	}
}

func TestNew_RequiresArtifacts(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error for missing model")
	}
}
