// Package sequences builds sliding-window input/target training pairs
// from per-symbol feature matrices.
package sequences

import (
	"fmt"
	"sort"

	"nse-market-lab/internal/dataset"
	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/observability"
)

// BuilderOptions configures sliding-window pair construction.
type BuilderOptions struct {
	InputLen  int // L, rows per input window
	TargetLen int // P, rows per target window
	Stride    int // S, rows advanced between windows
}

// DefaultBuilderOptions returns the standard window geometry.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		InputLen:  domain.DefaultInputLen,
		TargetLen: domain.DefaultTargetLen,
		Stride:    domain.DefaultStride,
	}
}

func (o BuilderOptions) validate() error {
	if o.InputLen <= 0 {
		return fmt.Errorf("input length must be positive, got %d", o.InputLen)
	}
	if o.TargetLen <= 0 {
		return fmt.Errorf("target length must be positive, got %d", o.TargetLen)
	}
	if o.Stride <= 0 {
		return fmt.Errorf("stride must be positive, got %d", o.Stride)
	}
	return nil
}

// PairCount returns the number of pairs a k-row symbol yields:
// floor((k - L - P) / S) + 1 when k >= L+P, else zero.
func (o BuilderOptions) PairCount(k int) int {
	if k < o.InputLen+o.TargetLen {
		return 0
	}
	return (k-o.InputLen-o.TargetLen)/o.Stride + 1
}

// Build slides windows over each symbol's chronologically sorted rows
// independently and concatenates the resulting pairs across symbols in
// symbol-name order. Windows never cross symbol boundaries.
func Build(bars []*domain.FeatureBar, opts BuilderOptions) (*domain.SequenceDataset, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("build sequences: %w", err)
	}

	bySymbol := make(map[string][]*domain.FeatureBar)
	for _, b := range bars {
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}
	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	ds := &domain.SequenceDataset{
		InputLen:   opts.InputLen,
		TargetLen:  opts.TargetLen,
		Stride:     opts.Stride,
		NumSymbols: len(symbols),
	}

	for _, symbol := range symbols {
		rows := bySymbol[symbol]
		sort.Slice(rows, func(i, j int) bool {
			return rows[i].TimestampMs < rows[j].TimestampMs
		})

		matrix := make([][]float64, len(rows))
		for i, b := range rows {
			matrix[i] = b.Values()
		}

		for start := 0; start+opts.InputLen+opts.TargetLen <= len(matrix); start += opts.Stride {
			pair := domain.SequencePair{
				Input:  matrix[start : start+opts.InputLen],
				Target: matrix[start+opts.InputLen : start+opts.InputLen+opts.TargetLen],
			}
			ds.Pairs = append(ds.Pairs, pair)
		}
	}

	observability.DefaultMetrics.SequencesBuilt.Add(float64(len(ds.Pairs)))
	return ds, nil
}

// Save persists a sequence dataset cache to a gob file.
func Save(path string, ds *domain.SequenceDataset) error {
	return dataset.SaveGob(path, ds)
}

// Load reads a sequence dataset cache from a gob file.
func Load(path string) (*domain.SequenceDataset, error) {
	var ds domain.SequenceDataset
	if err := dataset.LoadGob(path, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Info summarizes a dataset for logs and reports.
func Info(ds *domain.SequenceDataset) string {
	return fmt.Sprintf("%d pairs (L=%d P=%d S=%d, %d symbols)",
		len(ds.Pairs), ds.InputLen, ds.TargetLen, ds.Stride, ds.NumSymbols)
}
