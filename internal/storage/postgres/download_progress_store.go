package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"nse-market-lab/internal/storage"
)

// DownloadProgressStore is a PostgreSQL implementation of storage.DownloadProgressStore.
// One row per symbol with the newest stored bar timestamp and a running row count.
type DownloadProgressStore struct {
	pool *Pool
}

// NewDownloadProgressStore creates a new PostgreSQL download progress store.
func NewDownloadProgressStore(pool *Pool) *DownloadProgressStore {
	return &DownloadProgressStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DownloadProgressStore = (*DownloadProgressStore)(nil)

// GetProgress returns the saved progress for a symbol.
func (s *DownloadProgressStore) GetProgress(ctx context.Context, symbol string) (*storage.DownloadProgress, error) {
	if symbol == "" {
		return nil, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT symbol, last_timestamp_ms, rows_stored
		FROM download_progress
		WHERE symbol = $1
	`, symbol)

	var progress storage.DownloadProgress
	err := row.Scan(&progress.Symbol, &progress.LastTimestampMs, &progress.RowsStored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &progress, nil
}

// SetProgress saves the progress for a symbol.
// Uses upsert to handle initial insert and subsequent updates.
func (s *DownloadProgressStore) SetProgress(ctx context.Context, progress *storage.DownloadProgress) error {
	if progress == nil || progress.Symbol == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO download_progress (symbol, last_timestamp_ms, rows_stored, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (symbol) DO UPDATE
		SET last_timestamp_ms = EXCLUDED.last_timestamp_ms,
		    rows_stored = EXCLUDED.rows_stored,
		    updated_at = NOW()
	`, progress.Symbol, progress.LastTimestampMs, progress.RowsStored)

	return err
}

// ListProgress returns progress for all symbols, sorted by symbol.
func (s *DownloadProgressStore) ListProgress(ctx context.Context) ([]*storage.DownloadProgress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT symbol, last_timestamp_ms, rows_stored
		FROM download_progress
		ORDER BY symbol ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*storage.DownloadProgress
	for rows.Next() {
		var p storage.DownloadProgress
		if err := rows.Scan(&p.Symbol, &p.LastTimestampMs, &p.RowsStored); err != nil {
			return nil, err
		}
		result = append(result, &p)
	}

	return result, rows.Err()
}
