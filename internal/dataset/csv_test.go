package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nse-market-lab/internal/domain"
)

func TestBarsCSV_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")

	bars := []*domain.Bar{
		{Symbol: "TCS.NS", TimestampMs: 1700179200000, Open: 3500, High: 3550, Low: 3480, Close: 3540, Volume: 120000},
		{Symbol: "INFY.NS", TimestampMs: 1700092800000, Open: 1480, High: 1500, Low: 1470, Close: 1495, Volume: 80000},
	}

	require.NoError(t, WriteBarsCSV(path, bars))

	got, err := ReadBarsCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Sorted by (timestamp, symbol): INFY first
	assert.Equal(t, "INFY.NS", got[0].Symbol)
	assert.Equal(t, int64(1700092800000), got[0].TimestampMs)
	assert.Equal(t, "TCS.NS", got[1].Symbol)
	assert.InDelta(t, 3540.0, got[1].Close, 1e-9)
	assert.InDelta(t, 120000.0, got[1].Volume, 1e-9)
}

func TestBarsCSV_SortTieBreakBySymbol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")

	bars := []*domain.Bar{
		{Symbol: "TCS.NS", TimestampMs: 1700092800000},
		{Symbol: "INFY.NS", TimestampMs: 1700092800000},
	}
	require.NoError(t, WriteBarsCSV(path, bars))

	got, err := ReadBarsCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "INFY.NS", got[0].Symbol)
	assert.Equal(t, "TCS.NS", got[1].Symbol)
}

func TestFeatureBarsCSV_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.csv")

	bar := &domain.FeatureBar{Symbol: "TCS.NS", TimestampMs: 1700092800000}
	vals := make([]float64, len(domain.FeatureColumns))
	for i := range vals {
		vals[i] = float64(i) + 0.5
	}
	bar.SetValues(vals)

	require.NoError(t, WriteFeatureBarsCSV(path, []*domain.FeatureBar{bar}))

	got, err := ReadFeatureBarsCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "TCS.NS", got[0].Symbol)
	assert.Equal(t, vals, got[0].Values())
}

func TestReadBarsCSV_MissingFile(t *testing.T) {
	_, err := ReadBarsCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestSaveLoadGob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.gob")

	type payload struct {
		Name string
		Vals []float64
	}
	in := payload{Name: "scalers", Vals: []float64{1.5, 2.5}}
	require.NoError(t, SaveGob(path, &in))

	var out payload
	require.NoError(t, LoadGob(path, &out))
	assert.Equal(t, in, out)
}
