package clickhouse

import (
	"context"
	"fmt"
	"time"

	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/observability"
	"nse-market-lab/internal/storage"
)

// FeatureBarStore implements storage.FeatureBarStore using ClickHouse.
type FeatureBarStore struct {
	conn *Conn
}

// NewFeatureBarStore creates a new FeatureBarStore.
func NewFeatureBarStore(conn *Conn) *FeatureBarStore {
	return &FeatureBarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureBarStore = (*FeatureBarStore)(nil)

// InsertBulk adds multiple feature bars. Fails entire batch on duplicate (symbol, timestamp_ms).
func (s *FeatureBarStore) InsertBulk(ctx context.Context, bars []*domain.FeatureBar) (err error) {
	if len(bars) == 0 {
		return nil
	}

	begin := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_feature_bars_bulk", time.Since(begin).Seconds(), err)
	}()

	// Check for intra-batch duplicates
	type key struct {
		symbol      string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, b := range bars {
		k := key{b.Symbol, b.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows.
	// MergeTree doesn't enforce uniqueness at insert time.
	for _, b := range bars {
		exists, err := s.exists(ctx, b.Symbol, b.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO feature_bars (
			symbol, timestamp_ms, open, high, low, close, volume,
			sma_5, sma_20, ema_12, ema_26, rsi,
			macd, macd_signal, macd_histogram,
			bb_middle, bb_upper, bb_lower
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, uint64(b.TimestampMs),
			b.Open, b.High, b.Low, b.Close, b.Volume,
			b.SMA5, b.SMA20, b.EMA12, b.EMA26, b.RSI,
			b.MACD, b.MACDSignal, b.MACDHistogram,
			b.BBMiddle, b.BBUpper, b.BBLower,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves all feature bars for a symbol, ordered by timestamp ASC.
func (s *FeatureBarStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.FeatureBar, error) {
	query := `
		SELECT symbol, timestamp_ms, open, high, low, close, volume,
		       sma_5, sma_20, ema_12, ema_26, rsi,
		       macd, macd_signal, macd_histogram,
		       bb_middle, bb_upper, bb_lower
		FROM feature_bars
		WHERE symbol = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanFeatureBars(rows)
}

// GetByTimeRange retrieves feature bars for a symbol within [start, end] (inclusive).
func (s *FeatureBarStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.FeatureBar, error) {
	query := `
		SELECT symbol, timestamp_ms, open, high, low, close, volume,
		       sma_5, sma_20, ema_12, ema_26, rsi,
		       macd, macd_signal, macd_histogram,
		       bb_middle, bb_upper, bb_lower
		FROM feature_bars
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanFeatureBars(rows)
}

// exists checks if a feature bar with the given key exists.
func (s *FeatureBarStore) exists(ctx context.Context, symbol string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM feature_bars
		WHERE symbol = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, symbol, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanFeatureBars scans multiple rows.
func scanFeatureBars(rows chRows) ([]*domain.FeatureBar, error) {
	var bars []*domain.FeatureBar

	for rows.Next() {
		var b domain.FeatureBar
		var timestampMs uint64

		err := rows.Scan(
			&b.Symbol, &timestampMs,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
			&b.SMA5, &b.SMA20, &b.EMA12, &b.EMA26, &b.RSI,
			&b.MACD, &b.MACDSignal, &b.MACDHistogram,
			&b.BBMiddle, &b.BBUpper, &b.BBLower,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature bar row: %w", err)
		}

		b.TimestampMs = int64(timestampMs)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature bar rows: %w", err)
	}

	return bars, nil
}
