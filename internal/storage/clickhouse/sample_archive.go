package clickhouse

import (
	"context"
	"fmt"

	"team-stock-exchange/internal/storage"
)

// SampleArchive implements storage.SampleArchive using ClickHouse.
// Rows live in price_samples, ordered by (symbol, timestamp_ms).
type SampleArchive struct {
	conn *Conn
}

// NewSampleArchive creates a new SampleArchive.
func NewSampleArchive(conn *Conn) *SampleArchive {
	return &SampleArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.SampleArchive = (*SampleArchive)(nil)

// InsertBulk appends samples in a single batch. Fails the entire batch on invalid input.
// The archive is append-only: the same (symbol, timestamp_ms) may legitimately
// appear twice, e.g. a tick and an override in the same millisecond.
func (a *SampleArchive) InsertBulk(ctx context.Context, samples []*storage.ArchivedSample) error {
	if len(samples) == 0 {
		return nil
	}

	for _, s := range samples {
		if s == nil || s.Symbol == "" || s.TimestampMs < 0 {
			return storage.ErrInvalidInput
		}
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO price_samples (
			symbol, timestamp_ms, price, source
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, s := range samples {
		if err := batch.Append(s.Symbol, uint64(s.TimestampMs), s.Price, s.Source); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves samples for a symbol within [start, end] (inclusive).
func (a *SampleArchive) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*storage.ArchivedSample, error) {
	if start < 0 {
		start = 0
	}
	if end < start {
		return nil, nil
	}

	rows, err := a.conn.Query(ctx, `
		SELECT symbol, timestamp_ms, price, source
		FROM price_samples
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`, symbol, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query price samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// scanSamples scans rows into archived samples.
func scanSamples(rows chRows) ([]*storage.ArchivedSample, error) {
	var samples []*storage.ArchivedSample

	for rows.Next() {
		var (
			s  storage.ArchivedSample
			ts uint64
		)
		if err := rows.Scan(&s.Symbol, &ts, &s.Price, &s.Source); err != nil {
			return nil, fmt.Errorf("scan price sample: %w", err)
		}
		s.TimestampMs = int64(ts)
		samples = append(samples, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price samples: %w", err)
	}

	return samples, nil
}
