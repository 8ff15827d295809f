package storage

import (
	"context"

	"nse-market-lab/internal/domain"
)

// BarStore provides access to raw daily bar storage.
type BarStore interface {
	// Insert adds a new bar. Returns ErrDuplicateKey if (symbol, timestamp_ms) exists.
	Insert(ctx context.Context, b *domain.Bar) error

	// InsertBulk adds multiple bars atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bar, error)

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.Bar, error)

	// ListSymbols returns the distinct symbols present, sorted ascending.
	ListSymbols(ctx context.Context) ([]string, error)
}

// FeatureBarStore provides access to indicator-enriched bar storage.
type FeatureBarStore interface {
	// InsertBulk adds multiple feature bars. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, bars []*domain.FeatureBar) error

	// GetBySymbol retrieves all feature bars for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.FeatureBar, error)

	// GetByTimeRange retrieves feature bars for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.FeatureBar, error)
}
