// Package pipeline orchestrates the preprocessing stages: cleaning,
// normalization, feature computation, tokenization, and sequence
// construction.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"nse-market-lab/internal/cleaning"
	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/features"
	"nse-market-lab/internal/observability"
	"nse-market-lab/internal/sequences"
	"nse-market-lab/internal/storage"
	"nse-market-lab/internal/tokenizer"
)

// Options for creating Pipeline.
type Options struct {
	// BarStore supplies the raw bars. Required.
	BarStore storage.BarStore

	// FeatureBarStore receives computed feature rows when set.
	FeatureBarStore storage.FeatureBarStore

	// ScalerKind selects the normalization transform. Defaults to
	// standard scaling.
	ScalerKind string

	// NBins is the tokenizer's quantile bin count.
	NBins int

	// SeqLen is the tokenizer's chunk length. Defaults to the sequence
	// builder's input length.
	SeqLen int

	// Builder controls sliding-window pair geometry.
	Builder sequences.BuilderOptions

	// ArtifactDir receives scalers.gob, tokenizer.gob, and
	// sequences.gob when set.
	ArtifactDir string

	Logger  *log.Logger
	Verbose bool
}

// Pipeline coordinates the preprocessing stages over stores.
type Pipeline struct {
	opts Options
}

// RunResult contains counts from pipeline execution.
type RunResult struct {
	Symbols       int
	RowsLoaded    int
	RowsCleaned   int
	FeatureRows   int
	TokenWindows  int
	SequencePairs int
}

// New creates a new Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.BarStore == nil {
		return nil, fmt.Errorf("bar store is required")
	}
	if opts.ScalerKind == "" {
		opts.ScalerKind = cleaning.ScalerStandard
	}
	if opts.Builder.InputLen == 0 && opts.Builder.TargetLen == 0 && opts.Builder.Stride == 0 {
		opts.Builder = sequences.DefaultBuilderOptions()
	}
	if opts.SeqLen <= 0 {
		opts.SeqLen = opts.Builder.InputLen
	}
	return &Pipeline{opts: opts}, nil
}

// Run executes the full preprocessing pipeline.
// Phases:
//  1. Load bars per symbol
//  2. Clean (drop missing, IQR outlier filter)
//  3. Compute indicator features
//  4. Fit scalers and normalize
//  5. Fit tokenizer and encode token windows
//  6. Build sliding-window sequence pairs
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	begin := time.Now()
	result := &RunResult{}

	p.log("Phase 1: Loading bars...")
	bars, symbols, err := p.loadBars(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load bars) failed: %w", err)
	}
	result.Symbols = symbols
	result.RowsLoaded = len(bars)
	p.log("  Loaded %d bars across %d symbols", len(bars), symbols)
	if len(bars) == 0 {
		return result, nil
	}

	p.log("Phase 2: Cleaning...")
	cleaned := cleaning.FilterOutliers(cleaning.DropMissing(bars))
	result.RowsCleaned = len(cleaned)
	observability.DefaultMetrics.RowsCleaned.Add(float64(len(cleaned)))
	p.log("  Kept %d of %d rows", len(cleaned), len(bars))

	p.log("Phase 3: Computing features...")
	featureBars, err := features.Compute(cleaned)
	if err != nil {
		return nil, fmt.Errorf("phase 3 (features) failed: %w", err)
	}
	result.FeatureRows = len(featureBars)
	p.log("  %d feature rows after warm-up", len(featureBars))
	if len(featureBars) == 0 {
		return result, nil
	}

	if p.opts.FeatureBarStore != nil {
		if err := p.opts.FeatureBarStore.InsertBulk(ctx, featureBars); err != nil {
			return nil, fmt.Errorf("phase 3 (store features) failed: %w", err)
		}
	}

	p.log("Phase 4: Fitting scalers (%s)...", p.opts.ScalerKind)
	scalers, err := cleaning.FitScalers(p.opts.ScalerKind, featureBars)
	if err != nil {
		return nil, fmt.Errorf("phase 4 (scalers) failed: %w", err)
	}
	scaled := cloneFeatureBars(featureBars)
	if err := scalers.TransformBars(scaled); err != nil {
		return nil, fmt.Errorf("phase 4 (normalize) failed: %w", err)
	}

	p.log("Phase 5: Tokenizing...")
	tok := tokenizer.New(p.opts.NBins, domain.FeatureColumns)
	if err := tok.Fit(scaled); err != nil {
		return nil, fmt.Errorf("phase 5 (fit tokenizer) failed: %w", err)
	}
	windows, err := tok.Transform(scaled, p.opts.SeqLen)
	if err != nil {
		return nil, fmt.Errorf("phase 5 (encode) failed: %w", err)
	}
	result.TokenWindows = len(windows)
	p.log("  %d token windows of length %d", len(windows), p.opts.SeqLen)

	p.log("Phase 6: Building sequence pairs...")
	ds, err := sequences.Build(scaled, p.opts.Builder)
	if err != nil {
		return nil, fmt.Errorf("phase 6 (sequences) failed: %w", err)
	}
	result.SequencePairs = len(ds.Pairs)
	p.log("  %s", sequences.Info(ds))

	if p.opts.ArtifactDir != "" {
		if err := p.saveArtifacts(scalers, tok, ds); err != nil {
			return nil, err
		}
	}

	observability.RecordPipelineRun("preprocess", "success", time.Since(begin).Seconds())
	observability.DefaultMetrics.LastSuccessfulPipeline.SetToCurrentTime()
	p.log("Pipeline completed: %d rows -> %d pairs", result.RowsLoaded, result.SequencePairs)
	return result, nil
}

func (p *Pipeline) loadBars(ctx context.Context) ([]*domain.Bar, int, error) {
	symbols, err := p.opts.BarStore.ListSymbols(ctx)
	if err != nil {
		return nil, 0, err
	}
	var all []*domain.Bar
	for _, symbol := range symbols {
		bars, err := p.opts.BarStore.GetBySymbol(ctx, symbol)
		if err != nil {
			return nil, 0, err
		}
		all = append(all, bars...)
	}
	return all, len(symbols), nil
}

func (p *Pipeline) saveArtifacts(scalers *cleaning.ScalerSet, tok *tokenizer.Tokenizer, ds *domain.SequenceDataset) error {
	if err := scalers.Save(filepath.Join(p.opts.ArtifactDir, "scalers.gob")); err != nil {
		return fmt.Errorf("save scalers: %w", err)
	}
	if err := tok.Save(filepath.Join(p.opts.ArtifactDir, "tokenizer.gob")); err != nil {
		return fmt.Errorf("save tokenizer: %w", err)
	}
	if err := sequences.Save(filepath.Join(p.opts.ArtifactDir, "sequences.gob"), ds); err != nil {
		return fmt.Errorf("save sequences: %w", err)
	}
	return nil
}

func (p *Pipeline) log(format string, args ...any) {
	if !p.opts.Verbose {
		return
	}
	if p.opts.Logger != nil {
		p.opts.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func cloneFeatureBars(bars []*domain.FeatureBar) []*domain.FeatureBar {
	out := make([]*domain.FeatureBar, len(bars))
	for i, b := range bars {
		c := *b
		out[i] = &c
	}
	return out
}
