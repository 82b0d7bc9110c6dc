package postgres

import (
	"context"
	"fmt"

	"team-stock-exchange/internal/domain"
	"team-stock-exchange/internal/storage"
)

// DocumentStore implements storage.DocumentStore using PostgreSQL.
// Each instrument is one row of instrument_documents holding the document as JSONB.
type DocumentStore struct {
	pool *Pool
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(pool *Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DocumentStore = (*DocumentStore)(nil)

// Load retrieves and decodes the document for a symbol.
func (s *DocumentStore) Load(ctx context.Context, symbol string) (*domain.Instrument, error) {
	symbol = domain.NormalizeSymbol(symbol)

	query := `
		SELECT document
		FROM instrument_documents
		WHERE symbol = $1
	`

	var data []byte
	err := s.pool.QueryRow(ctx, query, symbol).Scan(&data)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get instrument document %s: %w", symbol, err)
	}

	return storage.DecodeDocument(symbol, data)
}

// Save upserts the whole document.
func (s *DocumentStore) Save(ctx context.Context, inst *domain.Instrument) error {
	data, err := storage.EncodeDocument(inst)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO instrument_documents (symbol, document, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (symbol) DO UPDATE
		SET document = EXCLUDED.document,
		    updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, inst.Symbol, data); err != nil {
		return fmt.Errorf("save instrument document %s: %w", inst.Symbol, err)
	}
	return nil
}
