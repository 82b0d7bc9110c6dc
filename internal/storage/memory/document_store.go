package memory

import (
	"context"
	"sync"

	"team-stock-exchange/internal/domain"
	"team-stock-exchange/internal/storage"
)

// DocumentStore is an in-memory implementation of storage.DocumentStore.
// Documents are kept encoded, so every Load decodes a private copy exactly
// like the durable backends do.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string][]byte // keyed by symbol
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string][]byte),
	}
}

// Compile-time interface check.
var _ storage.DocumentStore = (*DocumentStore)(nil)

// Load decodes the stored document for a symbol.
func (s *DocumentStore) Load(_ context.Context, symbol string) (*domain.Instrument, error) {
	symbol = domain.NormalizeSymbol(symbol)

	s.mu.RLock()
	data, ok := s.docs[symbol]
	s.mu.RUnlock()

	if !ok {
		return nil, storage.ErrNotFound
	}
	return storage.DecodeDocument(symbol, data)
}

// Save encodes and stores the document.
func (s *DocumentStore) Save(_ context.Context, inst *domain.Instrument) error {
	data, err := storage.EncodeDocument(inst)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[inst.Symbol] = data
	return nil
}

// PutRaw stores raw bytes for a symbol without validation.
// Used to seed corrupt documents in tests.
func (s *DocumentStore) PutRaw(symbol string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[domain.NormalizeSymbol(symbol)] = append([]byte(nil), data...)
}

// Raw returns a copy of the stored bytes for a symbol.
func (s *DocumentStore) Raw(symbol string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[domain.NormalizeSymbol(symbol)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}
