package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"team-stock-exchange/internal/domain"
	"team-stock-exchange/internal/storage"
)

func TestDocumentStore_SaveAndLoad(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	inst := domain.NewInstrument("STMP", "Steam Punks", 100, 0.1, time.Now())

	if err := store.Save(ctx, inst); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, "stmp")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.CurrentPrice != 100 {
		t.Errorf("CurrentPrice mismatch: got %d, want 100", got.CurrentPrice)
	}

	// Mutating the loaded copy must not leak into the store
	got.AppendPrice(1, time.Now(), 10)
	again, _ := store.Load(ctx, "STMP")
	if len(again.PriceHistory) != 1 {
		t.Errorf("Expected stored history to be untouched, got %d samples", len(again.PriceHistory))
	}
}

func TestDocumentStore_NotFound(t *testing.T) {
	store := NewDocumentStore()

	_, err := store.Load(context.Background(), "NONE")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDocumentStore_Corrupt(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	store.PutRaw("BAD", []byte(`{"symbol":"BAD","price_history":[]}`))

	_, err := store.Load(ctx, "BAD")
	if !errors.Is(err, storage.ErrCorruptDocument) {
		t.Errorf("Expected ErrCorruptDocument, got %v", err)
	}

	if _, ok := store.Raw("bad"); !ok {
		t.Errorf("Expected corrupt document to exist")
	}
}

func TestDocumentStore_InvalidSave(t *testing.T) {
	store := NewDocumentStore()

	err := store.Save(context.Background(), nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil document, got %v", err)
	}
}
