package model

import (
	"math"
	"path/filepath"
	"testing"
)

func testConfig() Config {
	return Config{InputLen: 8, TargetLen: 2, NumFeatures: 3, HiddenSize: 4}
}

func makeWindow(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		row := make([]float64, cols)
		for j := range row {
			row[j] = float64(i*cols+j) / 10
		}
		out[i] = row
	}
	return out
}

func TestForecaster_PredictWindowShape(t *testing.T) {
	backend := NewBackend()
	cfg := testConfig()
	m, err := NewForecaster(cfg, backend)
	if err != nil {
		t.Fatalf("NewForecaster: %v", err)
	}

	window := makeWindow(cfg.InputLen, cfg.NumFeatures)
	pred, err := PredictWindow(m, window, backend)
	if err != nil {
		t.Fatalf("PredictWindow: %v", err)
	}
	if len(pred) != cfg.TargetLen {
		t.Fatalf("predicted %d rows, want %d", len(pred), cfg.TargetLen)
	}
	for i, row := range pred {
		if len(row) != cfg.NumFeatures {
			t.Fatalf("row %d has %d columns, want %d", i, len(row), cfg.NumFeatures)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatal("prediction contains NaN or Inf")
			}
		}
	}
}

func TestForecaster_PredictWindowWrongRows(t *testing.T) {
	backend := NewBackend()
	m, err := NewForecaster(testConfig(), backend)
	if err != nil {
		t.Fatalf("NewForecaster: %v", err)
	}
	if _, err := PredictWindow(m, makeWindow(5, 3), backend); err == nil {
		t.Error("expected error for short window")
	}
}

func TestForecaster_StateDictKeys(t *testing.T) {
	backend := NewBackend()
	m, err := NewForecaster(testConfig(), backend)
	if err != nil {
		t.Fatalf("NewForecaster: %v", err)
	}

	sd := m.StateDict()
	for _, key := range []string{"fc1.weight", "fc1.bias", "fc2.weight", "fc2.bias"} {
		if _, ok := sd[key]; !ok {
			t.Errorf("state dict missing %q", key)
		}
	}
}

func TestForecaster_SaveLoadRoundTrip(t *testing.T) {
	backend := NewBackend()
	cfg := testConfig()
	m, err := NewForecaster(cfg, backend)
	if err != nil {
		t.Fatalf("NewForecaster: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.born")
	if err := Save(m, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path, cfg, backend)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	window := makeWindow(cfg.InputLen, cfg.NumFeatures)
	want, err := PredictWindow(m, window, backend)
	if err != nil {
		t.Fatalf("PredictWindow: %v", err)
	}
	got, err := PredictWindow(loaded, window, backend)
	if err != nil {
		t.Fatalf("PredictWindow after load: %v", err)
	}
	for i := range want {
		for j := range want[i] {
			if math.Abs(want[i][j]-got[i][j]) > 1e-6 {
				t.Fatalf("prediction [%d][%d] differs after reload: %v vs %v", i, j, want[i][j], got[i][j])
			}
		}
	}
}

func TestForecaster_InvalidConfig(t *testing.T) {
	backend := NewBackend()
	if _, err := NewForecaster(Config{}, backend); err == nil {
		t.Error("expected error for zero config")
	}
}

func TestFlattenUnflattenWindow(t *testing.T) {
	window := makeWindow(4, 3)
	flat := FlattenWindow(window)
	if len(flat) != 12 {
		t.Fatalf("flattened length %d, want 12", len(flat))
	}
	back := UnflattenWindow(flat, 4, 3)
	for i := range window {
		for j := range window[i] {
			if math.Abs(back[i][j]-window[i][j]) > 1e-6 {
				t.Fatalf("round trip [%d][%d]: %v vs %v", i, j, back[i][j], window[i][j])
			}
		}
	}
}
