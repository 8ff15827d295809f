package memory

import (
	"context"
	"sort"
	"sync"

	"nse-market-lab/internal/storage"
)

// DownloadProgressStore is an in-memory implementation of storage.DownloadProgressStore.
type DownloadProgressStore struct {
	mu   sync.RWMutex
	data map[string]*storage.DownloadProgress // keyed by symbol
}

// NewDownloadProgressStore creates a new in-memory download progress store.
func NewDownloadProgressStore() *DownloadProgressStore {
	return &DownloadProgressStore{
		data: make(map[string]*storage.DownloadProgress),
	}
}

// GetProgress returns the saved progress for a symbol.
func (s *DownloadProgressStore) GetProgress(_ context.Context, symbol string) (*storage.DownloadProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[symbol]
	if !ok {
		return nil, storage.ErrNotFound
	}

	progressCopy := *p
	return &progressCopy, nil
}

// SetProgress saves the progress for a symbol, overwriting any prior value.
func (s *DownloadProgressStore) SetProgress(_ context.Context, progress *storage.DownloadProgress) error {
	if progress == nil || progress.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	progressCopy := *progress
	s.data[progress.Symbol] = &progressCopy
	return nil
}

// ListProgress returns progress for all symbols, sorted by symbol.
func (s *DownloadProgressStore) ListProgress(_ context.Context) ([]*storage.DownloadProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*storage.DownloadProgress, 0, len(s.data))
	for _, p := range s.data {
		progressCopy := *p
		result = append(result, &progressCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})

	return result, nil
}

var _ storage.DownloadProgressStore = (*DownloadProgressStore)(nil)
