package sequences

import (
	"path/filepath"
	"testing"

	"nse-market-lab/internal/domain"
)

// makeFeatureBars builds rows whose first column encodes the row index
// so window boundaries can be checked exactly.
func makeFeatureBars(symbol string, n int) []*domain.FeatureBar {
	bars := make([]*domain.FeatureBar, n)
	for i := 0; i < n; i++ {
		b := &domain.FeatureBar{Symbol: symbol, TimestampMs: int64(i) * 86400000}
		vals := make([]float64, len(domain.FeatureColumns))
		vals[0] = float64(i)
		b.SetValues(vals)
		bars[i] = b
	}
	return bars
}

func TestPairCount(t *testing.T) {
	opts := BuilderOptions{InputLen: 512, TargetLen: 10, Stride: 256}

	cases := []struct {
		k    int
		want int
	}{
		{0, 0},
		{521, 0},
		{522, 1},
		{600, 1},
		{778, 2},
		{1034, 3},
	}
	for _, tc := range cases {
		if got := opts.PairCount(tc.k); got != tc.want {
			t.Errorf("PairCount(%d) = %d, want %d", tc.k, got, tc.want)
		}
	}
}

func TestBuild_600RowSingleSymbol(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 600)

	ds, err := Build(bars, BuilderOptions{InputLen: 512, TargetLen: 10, Stride: 256})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(ds.Pairs) != 1 {
		t.Fatalf("expected exactly 1 pair, got %d", len(ds.Pairs))
	}

	pair := ds.Pairs[0]
	if len(pair.Input) != 512 || len(pair.Target) != 10 {
		t.Fatalf("pair shape %dx%d, want 512x10", len(pair.Input), len(pair.Target))
	}
	// Input covers rows [0,512), target rows [512,522)
	if pair.Input[0][0] != 0 || pair.Input[511][0] != 511 {
		t.Errorf("input rows [%v, %v], want [0, 511]", pair.Input[0][0], pair.Input[511][0])
	}
	if pair.Target[0][0] != 512 || pair.Target[9][0] != 521 {
		t.Errorf("target rows [%v, %v], want [512, 521]", pair.Target[0][0], pair.Target[9][0])
	}
}

func TestBuild_MatchesPairCountFormula(t *testing.T) {
	opts := BuilderOptions{InputLen: 20, TargetLen: 5, Stride: 10}
	for _, k := range []int{10, 24, 25, 34, 35, 100} {
		ds, err := Build(makeFeatureBars("TCS.NS", k), opts)
		if err != nil {
			t.Fatalf("Build(%d rows): %v", k, err)
		}
		if got, want := len(ds.Pairs), opts.PairCount(k); got != want {
			t.Errorf("%d rows: %d pairs, want %d", k, got, want)
		}
	}
}

func TestBuild_NeverCrossesSymbols(t *testing.T) {
	// Two symbols with 30 rows each: windows of 20+5 fit within a
	// symbol but a pooled 60-row series would yield more pairs.
	bars := append(makeFeatureBars("TCS.NS", 30), makeFeatureBars("INFY.NS", 30)...)
	opts := BuilderOptions{InputLen: 20, TargetLen: 5, Stride: 10}

	ds, err := Build(bars, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := 2 * opts.PairCount(30); len(ds.Pairs) != want {
		t.Fatalf("expected %d pairs, got %d", want, len(ds.Pairs))
	}
	if ds.NumSymbols != 2 {
		t.Errorf("NumSymbols = %d, want 2", ds.NumSymbols)
	}

	// Every window is contiguous in the row-index column, so a window
	// crossing symbols would show an index reset.
	for _, pair := range ds.Pairs {
		for i := 1; i < len(pair.Input); i++ {
			if pair.Input[i][0] != pair.Input[i-1][0]+1 {
				t.Fatal("input window rows are not contiguous")
			}
		}
		if pair.Target[0][0] != pair.Input[len(pair.Input)-1][0]+1 {
			t.Fatal("target does not continue the input window")
		}
	}
}

func TestBuild_UnsortedInput(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 40)
	shuffled := append(append([]*domain.FeatureBar{}, bars[20:]...), bars[:20]...)

	ds, err := Build(shuffled, BuilderOptions{InputLen: 20, TargetLen: 5, Stride: 10})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(ds.Pairs) == 0 {
		t.Fatal("expected pairs")
	}
	if ds.Pairs[0].Input[0][0] != 0 {
		t.Errorf("first window should start at row 0, got %v", ds.Pairs[0].Input[0][0])
	}
}

func TestBuild_InvalidOptions(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 10)
	for _, opts := range []BuilderOptions{
		{InputLen: 0, TargetLen: 5, Stride: 1},
		{InputLen: 5, TargetLen: 0, Stride: 1},
		{InputLen: 5, TargetLen: 5, Stride: 0},
	} {
		if _, err := Build(bars, opts); err == nil {
			t.Errorf("expected error for options %+v", opts)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 60)
	ds, err := Build(bars, BuilderOptions{InputLen: 20, TargetLen: 5, Stride: 10})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	path := filepath.Join(t.TempDir(), "sequences.gob")
	if err := Save(path, ds); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Pairs) != len(ds.Pairs) {
		t.Fatalf("loaded %d pairs, want %d", len(loaded.Pairs), len(ds.Pairs))
	}
	if loaded.InputLen != 20 || loaded.TargetLen != 5 || loaded.Stride != 10 {
		t.Errorf("loaded geometry L=%d P=%d S=%d", loaded.InputLen, loaded.TargetLen, loaded.Stride)
	}
	if loaded.Pairs[0].Input[5][0] != ds.Pairs[0].Input[5][0] {
		t.Error("loaded pair content differs")
	}
}
