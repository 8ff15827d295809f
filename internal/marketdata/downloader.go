package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"nse-market-lab/internal/dataset"
	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/observability"
	"nse-market-lab/internal/storage"
)

// DownloaderOptions configures a batch download run.
type DownloaderOptions struct {
	Client  *Client
	Symbols []string
	Start   time.Time
	End     time.Time

	// BarStore persists fetched bars when set. Duplicate bars are skipped.
	BarStore storage.BarStore

	// ProgressStore enables resumable downloads when set: symbols are
	// fetched starting after their last stored bar.
	ProgressStore storage.DownloadProgressStore

	// OutputDir receives per-symbol CSV files and a combined CSV when set.
	OutputDir string

	Logger  *log.Logger
	Verbose bool
}

// DownloadResult summarizes a batch download run.
type DownloadResult struct {
	SymbolRows map[string]int // rows fetched per symbol
	Failed     []string       // symbols that failed and were skipped
	TotalRows  int
	Combined   []*domain.Bar // all fetched bars across symbols
}

// Downloader fetches daily bars for a symbol universe. One symbol
// failing does not abort the batch.
type Downloader struct {
	opts DownloaderOptions
}

// NewDownloader creates a Downloader. Client and Symbols are required.
func NewDownloader(opts DownloaderOptions) (*Downloader, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if len(opts.Symbols) == 0 {
		opts.Symbols = domain.DefaultSymbols
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Downloader{opts: opts}, nil
}

// Run downloads bars for every configured symbol.
func (d *Downloader) Run(ctx context.Context) (*DownloadResult, error) {
	result := &DownloadResult{
		SymbolRows: make(map[string]int),
	}

	for _, symbol := range d.opts.Symbols {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		bars, err := d.downloadSymbol(ctx, symbol)
		if err != nil {
			d.opts.Logger.Printf("symbol %s failed, skipping: %v", symbol, err)
			observability.RecordDownloadError(symbol)
			result.Failed = append(result.Failed, symbol)
			continue
		}

		result.SymbolRows[symbol] = len(bars)
		result.TotalRows += len(bars)
		result.Combined = append(result.Combined, bars...)

		if d.opts.OutputDir != "" && len(bars) > 0 {
			path := filepath.Join(d.opts.OutputDir, csvName(symbol))
			if err := dataset.WriteBarsCSV(path, bars); err != nil {
				return result, fmt.Errorf("write %s: %w", path, err)
			}
		}
	}

	if d.opts.OutputDir != "" && len(result.Combined) > 0 {
		path := filepath.Join(d.opts.OutputDir, "combined_data.csv")
		if err := dataset.WriteBarsCSV(path, result.Combined); err != nil {
			return result, fmt.Errorf("write combined csv: %w", err)
		}
	}

	if len(result.SymbolRows) > 0 {
		observability.DefaultMetrics.LastSuccessfulDownload.SetToCurrentTime()
	}

	return result, nil
}

// downloadSymbol fetches one symbol's bars and persists them.
func (d *Downloader) downloadSymbol(ctx context.Context, symbol string) ([]*domain.Bar, error) {
	start := d.opts.Start

	// Resume after the last stored bar when progress is available
	if d.opts.ProgressStore != nil {
		progress, err := d.opts.ProgressStore.GetProgress(ctx, symbol)
		switch {
		case err == nil:
			resumeFrom := time.UnixMilli(progress.LastTimestampMs).UTC().Add(24 * time.Hour)
			if resumeFrom.After(start) {
				start = resumeFrom
			}
		case errors.Is(err, storage.ErrNotFound):
			// First run for this symbol
		default:
			return nil, fmt.Errorf("get progress: %w", err)
		}
	}

	if !start.Before(d.opts.End) {
		if d.opts.Verbose {
			d.opts.Logger.Printf("symbol %s already up to date", symbol)
		}
		return nil, nil
	}

	bars, err := d.opts.Client.FetchDailyBars(ctx, symbol, start, d.opts.End)
	if err != nil {
		return nil, err
	}
	observability.RecordBarsFetched(symbol, len(bars))

	if d.opts.Verbose {
		d.opts.Logger.Printf("fetched %d bars for %s", len(bars), symbol)
	}

	if d.opts.BarStore != nil && len(bars) > 0 {
		stored, err := d.storeBars(ctx, bars)
		if err != nil {
			return nil, fmt.Errorf("store bars: %w", err)
		}
		observability.RecordBarsStored(symbol, stored)

		if d.opts.ProgressStore != nil {
			var prevRows int64
			if p, err := d.opts.ProgressStore.GetProgress(ctx, symbol); err == nil {
				prevRows = p.RowsStored
			}
			progress := &storage.DownloadProgress{
				Symbol:          symbol,
				LastTimestampMs: bars[len(bars)-1].TimestampMs,
				RowsStored:      prevRows + int64(stored),
			}
			if err := d.opts.ProgressStore.SetProgress(ctx, progress); err != nil {
				return nil, fmt.Errorf("set progress: %w", err)
			}
		}
	}

	return bars, nil
}

// storeBars inserts bars, skipping duplicates individually. Returns the
// number actually stored.
func (d *Downloader) storeBars(ctx context.Context, bars []*domain.Bar) (int, error) {
	// Fast path: the whole batch is new
	err := d.opts.BarStore.InsertBulk(ctx, bars)
	if err == nil {
		return len(bars), nil
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		return 0, err
	}

	// Slow path: insert one by one, skipping duplicates
	stored := 0
	for _, b := range bars {
		err := d.opts.BarStore.Insert(ctx, b)
		if errors.Is(err, storage.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

// csvName converts a symbol to a per-symbol CSV file name,
// e.g. "RELIANCE.NS" -> "RELIANCE_NS.csv".
func csvName(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "_") + ".csv"
}
