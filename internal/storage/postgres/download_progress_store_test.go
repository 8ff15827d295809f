package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nse-market-lab/internal/storage"
)

func TestDownloadProgressStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDownloadProgressStore(pool)

	_, err := store.GetProgress(ctx, "TCS.NS")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDownloadProgressStore_SetAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDownloadProgressStore(pool)

	progress := &storage.DownloadProgress{
		Symbol:          "TCS.NS",
		LastTimestampMs: 1700000000000,
		RowsStored:      1234,
	}
	require.NoError(t, store.SetProgress(ctx, progress))

	got, err := store.GetProgress(ctx, "TCS.NS")
	require.NoError(t, err)
	assert.Equal(t, progress.Symbol, got.Symbol)
	assert.Equal(t, progress.LastTimestampMs, got.LastTimestampMs)
	assert.Equal(t, progress.RowsStored, got.RowsStored)
}

func TestDownloadProgressStore_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDownloadProgressStore(pool)

	require.NoError(t, store.SetProgress(ctx, &storage.DownloadProgress{
		Symbol: "TCS.NS", LastTimestampMs: 1000, RowsStored: 1,
	}))
	require.NoError(t, store.SetProgress(ctx, &storage.DownloadProgress{
		Symbol: "TCS.NS", LastTimestampMs: 2000, RowsStored: 2,
	}))

	got, err := store.GetProgress(ctx, "TCS.NS")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.LastTimestampMs)
	assert.Equal(t, int64(2), got.RowsStored)
}

func TestDownloadProgressStore_ListSorted(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDownloadProgressStore(pool)

	require.NoError(t, store.SetProgress(ctx, &storage.DownloadProgress{Symbol: "TCS.NS", LastTimestampMs: 1}))
	require.NoError(t, store.SetProgress(ctx, &storage.DownloadProgress{Symbol: "INFY.NS", LastTimestampMs: 1}))

	list, err := store.ListProgress(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "INFY.NS", list[0].Symbol)
	assert.Equal(t, "TCS.NS", list[1].Symbol)
}

func TestDownloadProgressStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDownloadProgressStore(pool)

	assert.ErrorIs(t, store.SetProgress(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.SetProgress(ctx, &storage.DownloadProgress{}), storage.ErrInvalidInput)

	_, err := store.GetProgress(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
