package memory

import (
	"context"
	"sort"
	"sync"

	"team-stock-exchange/internal/storage"
)

// SampleArchive is an in-memory implementation of storage.SampleArchive.
type SampleArchive struct {
	mu   sync.RWMutex
	data map[string][]*storage.ArchivedSample // keyed by symbol
}

// NewSampleArchive creates a new in-memory sample archive.
func NewSampleArchive() *SampleArchive {
	return &SampleArchive{
		data: make(map[string][]*storage.ArchivedSample),
	}
}

// Compile-time interface check.
var _ storage.SampleArchive = (*SampleArchive)(nil)

// InsertBulk appends samples. Fails the entire batch on invalid input.
func (a *SampleArchive) InsertBulk(_ context.Context, samples []*storage.ArchivedSample) error {
	if len(samples) == 0 {
		return nil
	}

	// First pass: validate
	for _, s := range samples {
		if s == nil || s.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Second pass: insert copies
	for _, s := range samples {
		sampleCopy := *s
		a.data[s.Symbol] = append(a.data[s.Symbol], &sampleCopy)
	}

	return nil
}

// GetByTimeRange retrieves samples for a symbol within [start, end] (inclusive).
func (a *SampleArchive) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*storage.ArchivedSample, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []*storage.ArchivedSample
	for _, s := range a.data[symbol] {
		if s.TimestampMs >= start && s.TimestampMs <= end {
			sampleCopy := *s
			result = append(result, &sampleCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// Len returns the number of archived samples for a symbol.
func (a *SampleArchive) Len(symbol string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.data[symbol])
}
