// Package engine runs the recurring price tick.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"team-stock-exchange/internal/config"
	"team-stock-exchange/internal/domain"
	"team-stock-exchange/internal/observability"
)

// State is the scheduler state.
type State string

// Scheduler states.
const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// Market is the part of market.Store the engine reads and writes.
type Market interface {
	Symbols() []string
	GetInfo(ctx context.Context, symbol string) (*domain.Instrument, error)
	UpdatePrice(ctx context.Context, symbol string, newPrice int64) (bool, error)
}

// Activity is the part of activity.Tracker the engine consumes.
type Activity interface {
	Get(symbol string) float64
	Apply(policy string)
}

// Notifier receives one report per tick.
type Notifier interface {
	Notify(ctx context.Context, report domain.TickReport) error
}

// TickResult is the outcome of one tick.
type TickResult struct {
	Report   domain.TickReport
	Skipped  []string         // symbols that could not be read
	Failed   map[string]error // symbols whose write failed
	Duration time.Duration
}

// Err joins the per-symbol failures, or returns nil.
func (r TickResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	symbols := make([]string, 0, len(r.Failed))
	for s := range r.Failed {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	errs := make([]error, 0, len(symbols))
	for _, s := range symbols {
		errs = append(errs, fmt.Errorf("update %s: %w", s, r.Failed[s]))
	}
	return errors.Join(errs...)
}

// Stats is a snapshot of engine activity.
type Stats struct {
	State                State     `json:"state"`
	Interval             string    `json:"interval"`
	Ticks                uint64    `json:"ticks"`
	LastTickID           string    `json:"last_tick_id,omitempty"`
	LastTickAt           time.Time `json:"last_tick_at,omitempty"`
	LastUpdated          int       `json:"last_updated"`
	LastSkipped          int       `json:"last_skipped"`
	LastFailed           int       `json:"last_failed"`
	NotificationsDropped uint64    `json:"notifications_dropped"`
}

// Engine drives the price tick on a fixed interval.
type Engine struct {
	market         Market
	activity       Activity
	model          *PriceModel
	notifier       Notifier
	interval       time.Duration
	activityPolicy string
	skipUnchanged  bool
	concurrency    int
	writeTimeout   time.Duration
	notifyTimeout  time.Duration
	logger         *zap.Logger
	now            func() time.Time

	// lifecycle
	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	closeMu sync.RWMutex
	closed  bool

	// tickMu serializes scheduled and manual ticks.
	tickMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats

	queue          chan domain.TickReport
	dispatcherDone chan struct{}
}

// Options contains configuration for creating an Engine.
type Options struct {
	Market   Market   // required
	Activity Activity // required
	Model    *PriceModel
	Notifier Notifier // optional

	Interval       time.Duration // Default: config.DefaultTickInterval
	ActivityPolicy string        // Default: config.ActivityPolicyDecay
	SkipUnchanged  bool          // skip writes when the price did not move
	Concurrency    int           // Default: 4 concurrent symbol writes
	WriteTimeout   time.Duration // Default: 30s per tick, detached from Stop
	NotifyTimeout  time.Duration // Default: 10s per report
	NotifyBuffer   int           // Default: 16 pending reports
	Logger         *zap.Logger
	Clock          func() time.Time
}

// New creates a stopped engine.
func New(opts Options) (*Engine, error) {
	if opts.Market == nil {
		return nil, errors.New("engine: nil market")
	}
	if opts.Activity == nil {
		return nil, errors.New("engine: nil activity tracker")
	}

	model := opts.Model
	if model == nil {
		model = NewPriceModel(ModelOptions{})
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = config.DefaultTickInterval
	}

	policy := opts.ActivityPolicy
	if policy == "" {
		policy = config.ActivityPolicyDecay
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	notifyTimeout := opts.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}

	buffer := opts.NotifyBuffer
	if buffer <= 0 {
		buffer = 16
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		market:         opts.Market,
		activity:       opts.Activity,
		model:          model,
		notifier:       opts.Notifier,
		interval:       interval,
		activityPolicy: policy,
		skipUnchanged:  opts.SkipUnchanged,
		concurrency:    concurrency,
		writeTimeout:   writeTimeout,
		notifyTimeout:  notifyTimeout,
		logger:         logger.Named("engine"),
		now:            clock,
		state:          StateStopped,
	}
	e.stats.State = StateStopped
	e.stats.Interval = interval.String()

	if e.notifier != nil {
		e.queue = make(chan domain.TickReport, buffer)
		e.dispatcherDone = make(chan struct{})
		go e.dispatch()
	}

	return e, nil
}

// Start begins ticking every interval. Starting a running engine is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.state = StateRunning
	e.setState(StateRunning)

	go e.loop(ctx, e.done)

	e.logger.Info("engine started", zap.Duration("interval", e.interval))
}

// Stop halts the schedule and waits for an in-flight tick to finish.
// Stopping a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateStopped {
		return
	}

	e.cancel()
	<-e.done
	e.cancel = nil
	e.done = nil
	e.state = StateStopped
	e.setState(StateStopped)

	e.logger.Info("engine stopped")
}

// Close stops the engine and drains pending notifications.
// The engine cannot be restarted after Close.
func (e *Engine) Close() {
	e.Stop()

	e.closeMu.Lock()
	if e.closed {
		e.closeMu.Unlock()
		return
	}
	e.closed = true
	if e.queue != nil {
		close(e.queue)
	}
	e.closeMu.Unlock()

	if e.dispatcherDone != nil {
		<-e.dispatcherDone
	}
}

// State returns the scheduler state.
func (e *Engine) State() State {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats.State
}

// Stats returns a snapshot of engine activity.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			result := e.Tick(ctx)
			if err := result.Err(); err != nil {
				e.logger.Warn("tick finished with failures", zap.Error(err))
			}
		}
	}
}

// pending is one symbol's computed move awaiting its write.
type pending struct {
	symbol string
	old    int64
	next   int64
}

// Tick runs one price cycle. It is safe to call while the schedule is running;
// ticks never overlap.
func (e *Engine) Tick(ctx context.Context) TickResult {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	start := time.Now()
	result := TickResult{Failed: make(map[string]error)}

	// Read and compute in catalog order so a seeded model is reproducible.
	var moves []pending
	for _, symbol := range e.market.Symbols() {
		inst, err := e.market.GetInfo(ctx, symbol)
		if err != nil {
			result.Skipped = append(result.Skipped, symbol)
			observability.RecordSymbolError(symbol, "read")
			e.logger.Warn("skipping unreadable instrument", zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		score := e.activity.Get(symbol)
		observability.UpdateActivity(symbol, score)

		next := e.model.Next(inst.CurrentPrice, inst.Volatility, score)
		if e.skipUnchanged && next == inst.CurrentPrice {
			continue
		}
		moves = append(moves, pending{symbol: symbol, old: inst.CurrentPrice, next: next})
	}

	// Writes must land even if Stop cancels ctx mid-tick.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.writeTimeout)
	defer cancel()

	applied := make([]bool, len(moves))
	var failedMu sync.Mutex

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, mv := range moves {
		g.Go(func() error {
			ok, err := e.market.UpdatePrice(writeCtx, mv.symbol, mv.next)
			if err != nil {
				failedMu.Lock()
				result.Failed[mv.symbol] = err
				failedMu.Unlock()
				observability.RecordSymbolError(mv.symbol, "write")
				e.logger.Error("price update failed", zap.String("symbol", mv.symbol), zap.Error(err))
				return nil
			}
			applied[i] = ok
			return nil
		})
	}
	_ = g.Wait()

	e.activity.Apply(e.activityPolicy)

	deltas := make([]domain.PriceDelta, 0, len(moves))
	for i, mv := range moves {
		if applied[i] {
			deltas = append(deltas, domain.PriceDelta{Symbol: mv.symbol, OldPrice: mv.old, NewPrice: mv.next})
		}
	}

	finished := e.now()
	result.Report = domain.NewTickReport(finished, deltas)
	result.Duration = time.Since(start)

	status := "ok"
	if len(result.Failed) > 0 || len(result.Skipped) > 0 {
		status = "partial"
	}
	observability.RecordTick(status, result.Duration.Seconds(), finished.Unix())
	e.recordStats(result)

	e.logger.Info("tick complete",
		zap.String("tick_id", result.Report.ID),
		zap.Int("updated", len(deltas)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
		zap.Duration("duration", result.Duration),
	)

	e.enqueue(result.Report)
	return result
}

func (e *Engine) recordStats(result TickResult) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	e.stats.Ticks++
	e.stats.LastTickID = result.Report.ID
	e.stats.LastTickAt = result.Report.Timestamp
	e.stats.LastUpdated = len(result.Report.Deltas)
	e.stats.LastSkipped = len(result.Skipped)
	e.stats.LastFailed = len(result.Failed)
}

func (e *Engine) setState(state State) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.stats.State = state
}

// enqueue hands a report to the dispatcher without blocking.
// Reports are dropped when the queue is full or the engine is closed.
func (e *Engine) enqueue(report domain.TickReport) {
	if e.queue == nil {
		return
	}

	e.closeMu.RLock()
	defer e.closeMu.RUnlock()
	if e.closed {
		return
	}

	select {
	case e.queue <- report:
	default:
		observability.RecordNotificationDropped()
		e.statsMu.Lock()
		e.stats.NotificationsDropped++
		e.statsMu.Unlock()
		e.logger.Warn("notification queue full, dropping report", zap.String("tick_id", report.ID))
	}
}

func (e *Engine) dispatch() {
	defer close(e.dispatcherDone)

	for report := range e.queue {
		ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
		err := e.notifier.Notify(ctx, report)
		cancel()

		observability.RecordNotification(err)
		if err != nil {
			e.logger.Warn("notify failed", zap.String("tick_id", report.ID), zap.Error(err))
		}
	}
}
