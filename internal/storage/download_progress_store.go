package storage

import "context"

// DownloadProgress records the last session persisted for a symbol.
type DownloadProgress struct {
	Symbol          string // NSE symbol
	LastTimestampMs int64  // timestamp of the newest stored bar
	RowsStored      int64  // cumulative bars stored for the symbol
}

// DownloadProgressStore provides persistence for downloader state.
// This enables resumption after restarts without re-fetching or duplicating bars.
type DownloadProgressStore interface {
	// GetProgress returns the saved progress for a symbol.
	// Returns ErrNotFound if no progress has been saved yet.
	GetProgress(ctx context.Context, symbol string) (*DownloadProgress, error)

	// SetProgress saves the progress for a symbol, overwriting any prior value.
	SetProgress(ctx context.Context, progress *DownloadProgress) error

	// ListProgress returns progress for all symbols, sorted by symbol.
	ListProgress(ctx context.Context) ([]*DownloadProgress, error)
}
