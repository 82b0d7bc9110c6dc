package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"team-stock-exchange/internal/domain"
	"team-stock-exchange/internal/storage"
)

func newTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	store, err := NewDocumentStore(filepath.Join(t.TempDir(), "market_data"))
	require.NoError(t, err)
	return store
}

func TestDocumentStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	inst := domain.NewInstrument("STMP", "Steam Punks", 100, 0.1, now)
	inst.AppendPrice(105, now.Add(time.Minute), 10)

	require.NoError(t, store.Save(ctx, inst))

	loaded, err := store.Load(ctx, "stmp")
	require.NoError(t, err)
	assert.Equal(t, inst, loaded)
}

func TestDocumentStore_PersistedShape(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inst := domain.NewInstrument("STMP", "Steam Punks", 100, 0.1, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, inst))

	data, err := os.ReadFile(filepath.Join(store.Dir(), "STMP.json"))
	require.NoError(t, err)

	for _, key := range []string{`"display_name"`, `"symbol"`, `"starting_price"`, `"current_price"`, `"volatility"`, `"price_history"`, `"timestamp": "2026-03-01T10:00:00Z"`} {
		assert.Contains(t, string(data), key)
	}
}

func TestDocumentStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "NONE")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = os.Stat(filepath.Join(store.Dir(), "NONE.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDocumentStore_CorruptDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "BAD.json"), []byte("{not json"), 0o644))

	_, err := store.Load(ctx, "BAD")
	assert.ErrorIs(t, err, storage.ErrCorruptDocument)
	assert.True(t, storage.IsAbsent(err))

	_, err = os.Stat(filepath.Join(store.Dir(), "BAD.json"))
	assert.NoError(t, err, "corrupt file still exists on disk")
}

func TestDocumentStore_RejectsPathSymbols(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, symbol := range []string{"", "../etc", "A/B", "A.B"} {
		_, err := store.Load(ctx, symbol)
		assert.ErrorIs(t, err, storage.ErrInvalidInput, symbol)
	}
}

func TestDocumentStore_SaveRejectsInvalidDocument(t *testing.T) {
	store := newTestStore(t)

	err := store.Save(context.Background(), &domain.Instrument{Symbol: "EMPTY"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestDocumentStore_NoTempFilesLeft(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inst := domain.NewInstrument("STMP", "Steam Punks", 100, 0.1, time.Now())
	for i := 0; i < 5; i++ {
		inst.AppendPrice(int64(100+i), time.Now(), 3)
		require.NoError(t, store.Save(ctx, inst))
	}

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "STMP.json", entries[0].Name())
}
