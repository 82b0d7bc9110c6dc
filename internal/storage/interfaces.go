package storage

import (
	"context"

	"team-stock-exchange/internal/domain"
)

// DocumentStore persists one instrument document per symbol.
// Implementations are not required to serialize read-modify-write cycles;
// market.Store owns that exclusion.
type DocumentStore interface {
	// Load returns the document for a symbol.
	// Returns ErrNotFound if absent and an error wrapping ErrCorruptDocument
	// if the stored bytes cannot be decoded into a valid document.
	Load(ctx context.Context, symbol string) (*domain.Instrument, error)

	// Save durably writes the whole document, replacing any previous version.
	// A successful return means the write reached storage.
	Save(ctx context.Context, inst *domain.Instrument) error
}

// ArchivedSample is a price sample copied out of a document's bounded history
// for long-horizon analytics.
type ArchivedSample struct {
	Symbol      string // instrument symbol
	TimestampMs int64  // Unix timestamp in milliseconds
	Price       int64  // price in spurs
	Source      string // one of the Source* constants
}

// Sample sources.
const (
	SourceSeed     = "seed"
	SourceTick     = "tick"
	SourceOverride = "override"
	SourceReset    = "reset"
)

// SampleArchive is an append-only, unbounded store of price samples.
type SampleArchive interface {
	// InsertBulk appends samples. An empty batch is a no-op.
	InsertBulk(ctx context.Context, samples []*ArchivedSample) error

	// GetByTimeRange retrieves samples for a symbol within [start, end] (inclusive),
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*ArchivedSample, error)
}
