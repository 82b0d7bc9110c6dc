// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	TicksTotal         *prometheus.CounterVec
	TickDuration       prometheus.Histogram
	SymbolUpdateErrors *prometheus.CounterVec
	LastSuccessfulTick prometheus.Gauge

	// Market metrics
	InstrumentPrice *prometheus.GaugeVec
	ActivityScore   *prometheus.GaugeVec
	ActivitySignals *prometheus.CounterVec

	// Storage metrics
	StoreOperationDuration *prometheus.HistogramVec
	StoreOperationErrors   *prometheus.CounterVec
	CorruptDocuments       *prometheus.CounterVec
	ArchiveErrors          prometheus.Counter

	// Notification metrics
	NotificationsSent    *prometheus.CounterVec
	NotificationsDropped prometheus.Counter
	WSClients            prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "team_stock_exchange"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TicksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "ticks_total",
			Help:      "Total number of price ticks by status",
		}, []string{"status"}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tick_duration_seconds",
			Help:      "Price tick duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SymbolUpdateErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "symbol_update_errors_total",
			Help:      "Total number of per-symbol tick failures by stage",
		}, []string{"symbol", "stage"}),
		LastSuccessfulTick: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_tick_timestamp",
			Help:      "Unix timestamp of last tick without per-symbol failures",
		}),

		InstrumentPrice: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "instrument_price_spurs",
			Help:      "Current instrument price in spurs",
		}, []string{"symbol"}),
		ActivityScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "activity_score",
			Help:      "Activity score observed by the latest tick",
		}, []string{"symbol"}),
		ActivitySignals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "activity_signals_total",
			Help:      "Total number of accepted activity signals",
		}, []string{"symbol"}),

		StoreOperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Instrument store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		StoreOperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_errors_total",
			Help:      "Total number of instrument store errors",
		}, []string{"operation"}),
		CorruptDocuments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "corrupt_documents_total",
			Help:      "Total number of corrupt documents encountered",
		}, []string{"symbol"}),
		ArchiveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "archive_errors_total",
			Help:      "Total number of failed sample archive writes",
		}),

		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total number of tick reports delivered by status",
		}, []string{"status"}),
		NotificationsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Total number of tick reports dropped because the dispatcher was full",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "ws_clients",
			Help:      "Number of connected websocket clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordTick records a finished tick.
func RecordTick(status string, durationSeconds float64, finishedUnix int64) {
	DefaultMetrics.TicksTotal.WithLabelValues(status).Inc()
	DefaultMetrics.TickDuration.Observe(durationSeconds)
	if status == "ok" {
		DefaultMetrics.LastSuccessfulTick.Set(float64(finishedUnix))
	}
}

// RecordSymbolError records a per-symbol tick failure.
func RecordSymbolError(symbol, stage string) {
	DefaultMetrics.SymbolUpdateErrors.WithLabelValues(symbol, stage).Inc()
}

// UpdatePrice sets the price gauge for a symbol.
func UpdatePrice(symbol string, price int64) {
	DefaultMetrics.InstrumentPrice.WithLabelValues(symbol).Set(float64(price))
}

// UpdateActivity sets the activity gauge for a symbol.
func UpdateActivity(symbol string, score float64) {
	DefaultMetrics.ActivityScore.WithLabelValues(symbol).Set(score)
}

// RecordActivitySignal counts an accepted activity signal.
func RecordActivitySignal(symbol string) {
	DefaultMetrics.ActivitySignals.WithLabelValues(symbol).Inc()
}

// RecordStoreOperation records instrument store metrics.
func RecordStoreOperation(operation string, seconds float64, err error) {
	DefaultMetrics.StoreOperationDuration.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.StoreOperationErrors.WithLabelValues(operation).Inc()
	}
}

// RecordCorruptDocument counts a corrupt document read.
func RecordCorruptDocument(symbol string) {
	DefaultMetrics.CorruptDocuments.WithLabelValues(symbol).Inc()
}

// RecordArchiveError counts a failed archive write.
func RecordArchiveError() {
	DefaultMetrics.ArchiveErrors.Inc()
}

// RecordNotification records a delivered (or failed) tick report.
func RecordNotification(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.NotificationsSent.WithLabelValues(status).Inc()
}

// RecordNotificationDropped counts a report dropped by a full dispatcher.
func RecordNotificationDropped() {
	DefaultMetrics.NotificationsDropped.Inc()
}

// UpdateWSClients sets the connected websocket client gauge.
func UpdateWSClients(n int) {
	DefaultMetrics.WSClients.Set(float64(n))
}
