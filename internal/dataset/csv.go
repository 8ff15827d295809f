// Package dataset reads and writes the pipeline's on-disk artifacts:
// CSV bar files and gob-encoded intermediate state.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"nse-market-lab/internal/domain"
)

const dateLayout = "2006-01-02"

// barHeader is the column order of raw bar CSV files.
var barHeader = []string{"date", "symbol", "open", "high", "low", "close", "volume"}

// WriteBarsCSV writes bars to path sorted by (timestamp, symbol).
func WriteBarsCSV(path string, bars []*domain.Bar) error {
	sorted := append([]*domain.Bar(nil), bars...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TimestampMs != sorted[j].TimestampMs {
			return sorted[i].TimestampMs < sorted[j].TimestampMs
		}
		return sorted[i].Symbol < sorted[j].Symbol
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(barHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, b := range sorted {
		record := []string{
			b.Date().Format(dateLayout),
			b.Symbol,
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// ReadBarsCSV reads bars from a CSV file written by WriteBarsCSV.
func ReadBarsCSV(path string) ([]*domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	var bars []*domain.Bar
	for i, rec := range records[1:] {
		if len(rec) != len(barHeader) {
			return nil, fmt.Errorf("%s row %d: expected %d fields, got %d", path, i+2, len(barHeader), len(rec))
		}

		ts, err := time.ParseInLocation(dateLayout, rec[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parse date: %w", path, i+2, err)
		}

		vals := make([]float64, 5)
		for j := 0; j < 5; j++ {
			v, err := strconv.ParseFloat(rec[j+2], 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: parse %s: %w", path, i+2, barHeader[j+2], err)
			}
			vals[j] = v
		}

		bars = append(bars, &domain.Bar{
			Symbol:      rec[1],
			TimestampMs: ts.UnixMilli(),
			Open:        vals[0],
			High:        vals[1],
			Low:         vals[2],
			Close:       vals[3],
			Volume:      vals[4],
		})
	}

	return bars, nil
}

// WriteFeatureBarsCSV writes feature bars sorted by (timestamp, symbol).
// Columns are date, symbol followed by domain.FeatureColumns.
func WriteFeatureBarsCSV(path string, bars []*domain.FeatureBar) error {
	sorted := append([]*domain.FeatureBar(nil), bars...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TimestampMs != sorted[j].TimestampMs {
			return sorted[i].TimestampMs < sorted[j].TimestampMs
		}
		return sorted[i].Symbol < sorted[j].Symbol
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"date", "symbol"}, domain.FeatureColumns...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, b := range sorted {
		record := make([]string, 0, len(header))
		record = append(record, time.UnixMilli(b.TimestampMs).UTC().Format(dateLayout), b.Symbol)
		for _, v := range b.Values() {
			record = append(record, formatFloat(v))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// ReadFeatureBarsCSV reads feature bars from a CSV file written by
// WriteFeatureBarsCSV.
func ReadFeatureBarsCSV(path string) ([]*domain.FeatureBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	wantFields := 2 + len(domain.FeatureColumns)
	var bars []*domain.FeatureBar
	for i, rec := range records[1:] {
		if len(rec) != wantFields {
			return nil, fmt.Errorf("%s row %d: expected %d fields, got %d", path, i+2, wantFields, len(rec))
		}

		ts, err := time.ParseInLocation(dateLayout, rec[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parse date: %w", path, i+2, err)
		}

		vals := make([]float64, len(domain.FeatureColumns))
		for j := range vals {
			v, err := strconv.ParseFloat(rec[j+2], 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: parse %s: %w", path, i+2, domain.FeatureColumns[j], err)
			}
			vals[j] = v
		}

		bar := &domain.FeatureBar{
			Symbol:      rec[1],
			TimestampMs: ts.UnixMilli(),
		}
		bar.SetValues(vals)
		bars = append(bars, bar)
	}

	return bars, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
