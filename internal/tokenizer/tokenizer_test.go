package tokenizer

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
		b := &domain.FeatureBar{Symbol: symbol, TimestampMs: int64(i) * 86400000}
		vals := make([]float64, len(domain.FeatureColumns))
		for j := range vals {
			vals[j] = base + float64(i) + float64(j)*10 + math.Sin(float64(i*j))
		}
		b.SetValues(vals)
		bars[i] = b
	}
	return bars
}

func fittedTokenizer(t *testing.T, nBins int, bars []*domain.FeatureBar) *Tokenizer {
	t.Helper()
	tok := New(nBins, domain.FeatureColumns)
	if err := tok.Fit(bars); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return tok
}

func TestTokenizer_NotFitted(t *testing.T) {
	tok := New(100, domain.FeatureColumns)

	if _, err := tok.EncodeRow(make([]float64, len(domain.FeatureColumns))); !errors.Is(err, ErrNotFitted) {
		t.Errorf("EncodeRow: expected ErrNotFitted, got %v", err)
	}
	if _, err := tok.Transform(nil, 4); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Transform: expected ErrNotFitted, got %v", err)
	}
	if err := tok.Save("nope.gob"); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Save: expected ErrNotFitted, got %v", err)
	}
}

func TestTokenizer_DeterministicEncoding(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 200, 3500)

	a := fittedTokenizer(t, 50, bars)
	b := fittedTokenizer(t, 50, bars)

	row := bars[42].Values()
	tokA, err := a.EncodeRow(row)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	tokB, err := b.EncodeRow(row)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	if tokA.Cmp(tokB) != 0 {
		t.Errorf("same data fitted twice gave different tokens: %s vs %s", tokA, tokB)
	}
}

func TestTokenizer_EncodeDecodeBins(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 300, 3500)
	tok := fittedTokenizer(t, 100, bars)

	row := bars[100].Values()
	enc, err := tok.EncodeRow(row)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	bins, err := tok.DecodeToken(enc)
	if err != nil {
		t.Fatalf("DecodeToken: %v", err)
	}
	if len(bins) != len(domain.FeatureColumns) {
		t.Fatalf("decoded %d bins, want %d", len(bins), len(domain.FeatureColumns))
	}
	for i, bin := range bins {
		want := tok.Discretizers[i].Transform(row[i])
		if bin != want {
			t.Errorf("column %s: decoded bin %d, want %d", domain.FeatureColumns[i], bin, want)
		}
	}
}

func TestTokenizer_MidpointReEncodesToSameToken(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 300, 3500)
	tok := fittedTokenizer(t, 50, bars)

	enc, err := tok.EncodeRow(bars[50].Values())
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	mids, err := tok.DecodeMidpoints(enc)
	if err != nil {
		t.Fatalf("DecodeMidpoints: %v", err)
	}
	again, err := tok.EncodeRow(mids)
	if err != nil {
		t.Fatalf("EncodeRow of midpoints: %v", err)
	}
	if enc.Cmp(again) != 0 {
		t.Errorf("midpoint row re-encoded to %s, want %s", again, enc)
	}
}

func TestTokenizer_DefaultConfigExceedsUint64(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 2000, 3500)
	tok := fittedTokenizer(t, DefaultNBins, bars)

	// Force the top bin in every column
	row := make([]float64, len(domain.FeatureColumns))
	for i := range row {
		row[i] = 1e12
	}
	enc, err := tok.EncodeRow(row)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	if enc.BitLen() <= 64 {
		t.Errorf("max token fits in uint64 (%d bits); radix^16 should not", enc.BitLen())
	}
}

func TestTokenizer_OutOfRangeClipsToBoundaryBins(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 200, 3500)
	tok := fittedTokenizer(t, 50, bars)

	low := make([]float64, len(domain.FeatureColumns))
	high := make([]float64, len(domain.FeatureColumns))
	for i := range low {
		low[i] = -1e12
		high[i] = 1e12
	}

	encLow, err := tok.EncodeRow(low)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	bins, err := tok.DecodeToken(encLow)
	if err != nil {
		t.Fatalf("DecodeToken: %v", err)
	}
	for i, bin := range bins {
		if bin != 0 {
			t.Errorf("column %d: below-range bin %d, want 0", i, bin)
		}
	}

	encHigh, err := tok.EncodeRow(high)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	bins, err = tok.DecodeToken(encHigh)
	if err != nil {
		t.Fatalf("DecodeToken: %v", err)
	}
	for i, bin := range bins {
		if want := tok.Discretizers[i].EffectiveBins() - 1; bin != want {
			t.Errorf("column %d: above-range bin %d, want %d", i, bin, want)
		}
	}
}

func TestTokenizer_TransformChunksPerSymbol(t *testing.T) {
	// 10 rows each for two symbols with seqLen 4: two full windows per
	// symbol, the 2-row tails discarded, and never a mixed window.
	bars := append(makeFeatureBars("TCS.NS", 10, 3500), makeFeatureBars("INFY.NS", 10, 1500)...)
	tok := fittedTokenizer(t, 20, bars)

	windows, err := tok.Transform(bars, 4)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(windows) != 4 {
		t.Fatalf("expected 4 windows, got %d", len(windows))
	}
	for i, w := range windows {
		if len(w) != 4 {
			t.Errorf("window %d has %d tokens, want 4", i, len(w))
		}
	}
}

func TestTokenizer_TransformShortSymbolDropped(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 3, 3500)
	tok := fittedTokenizer(t, 20, bars)

	windows, err := tok.Transform(bars, 4)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(windows) != 0 {
		t.Errorf("3 rows cannot fill a 4-token window, got %d windows", len(windows))
	}
}

func TestTokenizer_SaveLoad(t *testing.T) {
	bars := makeFeatureBars("TCS.NS", 200, 3500)
	tok := fittedTokenizer(t, 50, bars)

	path := filepath.Join(t.TempDir(), "tokenizer.gob")
	if err := tok.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.NBins != 50 || loaded.VocabSize != 55 {
		t.Errorf("loaded config NBins=%d VocabSize=%d", loaded.NBins, loaded.VocabSize)
	}

	row := bars[77].Values()
	want, err := tok.EncodeRow(row)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	got, err := loaded.EncodeRow(row)
	if err != nil {
		t.Fatalf("EncodeRow after load: %v", err)
	}
	if want.Cmp(got) != 0 {
		t.Errorf("loaded tokenizer encoded %s, want %s", got, want)
	}
}
