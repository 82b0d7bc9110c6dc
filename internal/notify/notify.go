// Package notify delivers tick reports to the outside world: websocket
// clients, Redis pub/sub, Kafka and the log.
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"team-stock-exchange/internal/domain"
)

// Notifier receives one report per tick. It matches engine.Notifier.
type Notifier interface {
	Notify(ctx context.Context, report domain.TickReport) error
}

// PriceUpdate is the wire message published for one instrument move.
type PriceUpdate struct {
	TickID        string    `json:"tick_id"`
	Symbol        string    `json:"symbol"`
	OldPrice      int64     `json:"old_price"`
	NewPrice      int64     `json:"new_price"`
	PriceCogs     string    `json:"price_cogs"`
	PercentChange float64   `json:"percent_change"`
	Timestamp     time.Time `json:"timestamp"`
}

// Updates flattens a report into per-symbol messages.
func Updates(report domain.TickReport) []PriceUpdate {
	updates := make([]PriceUpdate, 0, len(report.Deltas))
	for _, d := range report.Deltas {
		updates = append(updates, PriceUpdate{
			TickID:        report.ID,
			Symbol:        d.Symbol,
			OldPrice:      d.OldPrice,
			NewPrice:      d.NewPrice,
			PriceCogs:     domain.FormatCogs(d.NewPrice),
			PercentChange: d.PercentChange(),
			Timestamp:     report.Timestamp,
		})
	}
	return updates
}

// Multi fans a report out to every notifier. One failing notifier does not
// starve the others; all failures are joined.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, report domain.TickReport) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes each move to the log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notify")}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, report domain.TickReport) error {
	for _, u := range Updates(report) {
		n.logger.Info("price update",
			zap.String("tick_id", u.TickID),
			zap.String("symbol", u.Symbol),
			zap.Int64("old_price", u.OldPrice),
			zap.Int64("new_price", u.NewPrice),
			zap.String("cogs", u.PriceCogs),
			zap.Float64("change_pct", u.PercentChange),
		)
	}
	return nil
}
