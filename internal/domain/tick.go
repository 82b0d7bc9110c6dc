package domain

import (
	"time"

	"github.com/google/uuid"
)

// PriceDelta is the outcome of one tick for one instrument.
type PriceDelta struct {
	Symbol   string `json:"symbol"`
	OldPrice int64  `json:"old_price"`
	NewPrice int64  `json:"new_price"`
}

// Changed reports whether the tick moved the price.
func (d PriceDelta) Changed() bool {
	return d.OldPrice != d.NewPrice
}

// PercentChange returns the relative move in percent.
func (d PriceDelta) PercentChange() float64 {
	if d.OldPrice == 0 {
		return 0
	}
	return float64(d.NewPrice-d.OldPrice) / float64(d.OldPrice) * 100
}

// TickReport is the batch of deltas produced by one tick, delivered once
// to the outbound notifier.
type TickReport struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Deltas    []PriceDelta `json:"deltas"`
}

// NewTickReport creates a report with a fresh ID.
func NewTickReport(at time.Time, deltas []PriceDelta) TickReport {
	return TickReport{
		ID:        uuid.NewString(),
		Timestamp: at.UTC(),
		Deltas:    deltas,
	}
}
