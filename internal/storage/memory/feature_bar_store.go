package memory

import (
	"context"
	"sort"
	"sync"

	"nse-market-lab/internal/domain"
	"nse-market-lab/internal/storage"
)

// FeatureBarStore is an in-memory implementation of storage.FeatureBarStore.
type FeatureBarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FeatureBar // keyed by (symbol, timestamp_ms)
}

// NewFeatureBarStore creates a new in-memory feature bar store.
func NewFeatureBarStore() *FeatureBarStore {
	return &FeatureBarStore{
		data: make(map[string]*domain.FeatureBar),
	}
}

// InsertBulk adds multiple feature bars. Fails entire batch on duplicate.
func (s *FeatureBarStore) InsertBulk(_ context.Context, bars []*domain.FeatureBar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(bars))

	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(b.Symbol, b.TimestampMs)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, b := range bars {
		key := barKey(b.Symbol, b.TimestampMs)
		barCopy := *b
		s.data[key] = &barCopy
	}

	return nil
}

// GetBySymbol retrieves all feature bars for a symbol, ordered by timestamp ASC.
func (s *FeatureBarStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.FeatureBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeatureBar
	for _, b := range s.data {
		if b.Symbol == symbol {
			barCopy := *b
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetByTimeRange retrieves feature bars for a symbol within [start, end] (inclusive).
func (s *FeatureBarStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.FeatureBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeatureBar
	for _, b := range s.data {
		if b.Symbol == symbol && b.TimestampMs >= start && b.TimestampMs <= end {
			barCopy := *b
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.FeatureBarStore = (*FeatureBarStore)(nil)
