package cleaning

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"nse-market-lab/internal/domain"
)

func makeFeatureBars(symbol string, n int, base float64) []*domain.FeatureBar {
	bars := make([]*domain.FeatureBar, n)
	for i := 0; i < n; i++ {
		b := &domain.FeatureBar{Symbol: symbol, TimestampMs: int64(i)}
		vals := make([]float64, len(domain.FeatureColumns))
		for j := range vals {
			vals[j] = base + float64(i)*0.5 + float64(j)
		}
		b.SetValues(vals)
		bars[i] = b
	}
	return bars
}

func TestStandardScaler_RoundTrip(t *testing.T) {
	vals := []float64{10, 20, 30, 40, 50}
	s := &StandardScaler{}
	s.Fit(vals)

	if math.Abs(s.Mean-30) > 1e-9 {
		t.Errorf("Mean = %v, want 30", s.Mean)
	}

	for _, v := range vals {
		back := s.Inverse(s.Transform(v))
		if math.Abs(back-v) > 1e-9 {
			t.Errorf("round trip of %v gave %v", v, back)
		}
	}
}

func TestStandardScaler_ConstantColumn(t *testing.T) {
	s := &StandardScaler{}
	s.Fit([]float64{7, 7, 7})

	if got := s.Transform(7); got != 0 {
		t.Errorf("constant column should transform to 0, got %v", got)
	}
	if got := s.Inverse(0); got != 7 {
		t.Errorf("inverse of constant column should be the mean, got %v", got)
	}
}

func TestMinMaxScaler_RoundTrip(t *testing.T) {
	vals := []float64{5, 10, 15, 20}
	s := &MinMaxScaler{}
	s.Fit(vals)

	if got := s.Transform(5); got != 0 {
		t.Errorf("min should transform to 0, got %v", got)
	}
	if got := s.Transform(20); got != 1 {
		t.Errorf("max should transform to 1, got %v", got)
	}
	for _, v := range vals {
		back := s.Inverse(s.Transform(v))
		if math.Abs(back-v) > 1e-9 {
			t.Errorf("round trip of %v gave %v", v, back)
		}
	}
}

func TestMinMaxScaler_ConstantColumn(t *testing.T) {
	s := &MinMaxScaler{}
	s.Fit([]float64{3, 3})

	if got := s.Transform(3); got != 0 {
		t.Errorf("constant column should transform to 0, got %v", got)
	}
	if got := s.Inverse(0); got != 3 {
		t.Errorf("inverse of constant column should be the min, got %v", got)
	}
}

func TestNewScaler_UnknownKind(t *testing.T) {
	if _, err := NewScaler("robust"); err == nil {
		t.Error("expected error for unknown scaler kind")
	}
}

func TestFitScalers_TransformAndInverse(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 50, 3500)
	bars = append(bars, makeFeatureBars("INFY.NS", 50, 1500)...)

	set, err := FitScalers(ScalerStandard, bars)
	if err != nil {
		t.Fatalf("FitScalers: %v", err)
	}
	if len(set.Scalers) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(set.Scalers))
	}

	orig := bars[10].Values()
	scaled, err := set.TransformRow("TCS.NS", orig)
	if err != nil {
		t.Fatalf("TransformRow: %v", err)
	}
	back, err := set.InverseRow("TCS.NS", scaled)
	if err != nil {
		t.Fatalf("InverseRow: %v", err)
	}
	for i := range orig {
		if math.Abs(back[i]-orig[i]) > 1e-6 {
			t.Errorf("column %s: round trip of %v gave %v", domain.FeatureColumns[i], orig[i], back[i])
		}
	}
}

func TestScalerSet_InverseClose(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 50, 3500)
	set, err := FitScalers(ScalerMinMax, bars)
	if err != nil {
		t.Fatalf("FitScalers: %v", err)
	}

	closeVal := bars[25].Values()[domain.CloseColumn]
	scaled, err := set.TransformRow("TCS.NS", bars[25].Values())
	if err != nil {
		t.Fatalf("TransformRow: %v", err)
	}
	back, err := set.InverseClose("TCS.NS", scaled[domain.CloseColumn])
	if err != nil {
		t.Fatalf("InverseClose: %v", err)
	}
	if math.Abs(back-closeVal) > 1e-6 {
		t.Errorf("InverseClose gave %v, want %v", back, closeVal)
	}
}

func TestScalerSet_UnknownSymbol(t *testing.T) {
	set, err := FitScalers(ScalerStandard, makeFeatureBars("TCS.NS", 10, 100))
	if err != nil {
		t.Fatalf("FitScalers: %v", err)
	}

	_, err = set.TransformRow("NOPE.NS", make([]float64, len(domain.FeatureColumns)))
	if !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("expected ErrUnknownSymbol, got %v", err)
	}
	if _, err := set.InverseClose("NOPE.NS", 0); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestScalerSet_TransformBarsInPlace(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 20, 3500)
	set, err := FitScalers(ScalerMinMax, bars)
	if err != nil {
		t.Fatalf("FitScalers: %v", err)
	}
	if err := set.TransformBars(bars); err != nil {
		t.Fatalf("TransformBars: %v", err)
	}
	for _, b := range bars {
		for i, v := range b.Values() {
			if v < 0 || v > 1 {
				t.Fatalf("column %s not in [0,1] after minmax: %v", domain.FeatureColumns[i], v)
			}
		}
	}
}

func TestScalerSet_SaveLoad(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 30, 3500)
	set, err := FitScalers(ScalerStandard, bars)
	if err != nil {
		t.Fatalf("FitScalers: %v", err)
	}

	path := filepath.Join(t.TempDir(), "scalers.gob")
	if err := set.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadScalerSet(path)
	if err != nil {
		t.Fatalf("LoadScalerSet: %v", err)
	}
	if loaded.Kind != ScalerStandard {
		t.Errorf("Kind = %q, want %q", loaded.Kind, ScalerStandard)
	}

	orig := bars[5].Values()
	want, err := set.TransformRow("TCS.NS", orig)
	if err != nil {
		t.Fatalf("TransformRow: %v", err)
	}
	got, err := loaded.TransformRow("TCS.NS", orig)
	if err != nil {
		t.Fatalf("TransformRow after load: %v", err)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("column %d: loaded scaler gave %v, want %v", i, got[i], want[i])
		}
	}
}
