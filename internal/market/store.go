// Package market owns the authoritative instrument documents.
//
// Store serializes every read-modify-write cycle on a symbol behind that
// symbol's lock, so concurrent updates from the price engine and
// administrative callers never lose writes or expose a half-written document.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"team-stock-exchange/internal/config"
	"team-stock-exchange/internal/domain"
	"team-stock-exchange/internal/observability"
	"team-stock-exchange/internal/storage"
)

// Store is the instrument store.
type Store struct {
	docs       storage.DocumentStore
	catalog    *config.Catalog
	archive    storage.SampleArchive
	historyCap int
	logger     *zap.Logger
	now        func() time.Time

	// One lock per configured symbol. The key set is fixed at construction.
	locks map[string]*sync.RWMutex
}

// Options contains configuration for creating a Store.
type Options struct {
	Docs       storage.DocumentStore // required
	Catalog    *config.Catalog       // required
	HistoryCap int                   // Default: config.DefaultHistoryCap
	Archive    storage.SampleArchive // optional; receives every appended sample
	Logger     *zap.Logger
	Clock      func() time.Time // Default: time.Now
}

// NewStore creates a new instrument store.
func NewStore(opts Options) (*Store, error) {
	if opts.Docs == nil {
		return nil, errors.New("market store: nil document store")
	}
	if opts.Catalog == nil {
		return nil, errors.New("market store: nil catalog")
	}

	historyCap := opts.HistoryCap
	if historyCap <= 0 {
		historyCap = config.DefaultHistoryCap
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	symbols := opts.Catalog.Symbols()
	locks := make(map[string]*sync.RWMutex, len(symbols))
	for _, symbol := range symbols {
		locks[symbol] = &sync.RWMutex{}
	}

	return &Store{
		docs:       opts.Docs,
		catalog:    opts.Catalog,
		archive:    opts.Archive,
		historyCap: historyCap,
		logger:     logger.Named("market"),
		now:        clock,
		locks:      locks,
	}, nil
}

// Symbols returns the configured symbols in catalog order.
func (s *Store) Symbols() []string {
	return s.catalog.Symbols()
}

// HistoryCap returns the configured history bound.
func (s *Store) HistoryCap() int {
	return s.historyCap
}

// Initialize creates a seeded document for every configured symbol that lacks one.
// Existing well-formed documents are left untouched; corrupt ones are recreated.
// A failure on one symbol does not stop the others.
func (s *Store) Initialize(ctx context.Context) error {
	start := time.Now()
	var (
		errs    []error
		samples []*storage.ArchivedSample
	)

	for _, cfg := range s.catalog.Instruments() {
		created, err := s.ensure(ctx, cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if created != nil {
			samples = append(samples, archived(created, storage.SourceSeed))
		}
	}

	err := errors.Join(errs...)
	observability.RecordStoreOperation("initialize", time.Since(start).Seconds(), err)
	s.archiveSamples(ctx, samples)
	return err
}

// ensure creates the document for cfg if it is missing or corrupt.
// Returns the created document, or nil when a usable one already existed.
func (s *Store) ensure(ctx context.Context, cfg config.InstrumentConfig) (*domain.Instrument, error) {
	mu := s.locks[cfg.Symbol]
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.docs.Load(ctx, cfg.Symbol)
	switch {
	case err == nil:
		observability.UpdatePrice(existing.Symbol, existing.CurrentPrice)
		return nil, nil
	case errors.Is(err, storage.ErrCorruptDocument):
		observability.RecordCorruptDocument(cfg.Symbol)
		s.logger.Warn("recreating corrupt document", zap.String("symbol", cfg.Symbol), zap.Error(err))
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("load %s: %w", cfg.Symbol, err)
	}

	inst := domain.NewInstrument(cfg.Symbol, cfg.Name, cfg.StartingPrice, cfg.Volatility, s.now())
	if err := s.docs.Save(ctx, inst); err != nil {
		return nil, fmt.Errorf("create %s: %w", cfg.Symbol, err)
	}

	s.logger.Info("created instrument",
		zap.String("symbol", inst.Symbol),
		zap.Int64("starting_price", inst.StartingPrice),
	)
	observability.UpdatePrice(inst.Symbol, inst.CurrentPrice)
	return inst, nil
}

// GetPrice returns the current price of an instrument.
func (s *Store) GetPrice(ctx context.Context, symbol string) (int64, error) {
	inst, err := s.read(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return inst.CurrentPrice, nil
}

// GetInfo returns a full copy of an instrument document.
func (s *Store) GetInfo(ctx context.Context, symbol string) (*domain.Instrument, error) {
	return s.read(ctx, symbol)
}

// GetAllInfo returns every readable document in catalog order.
// Unreadable symbols are logged and skipped.
func (s *Store) GetAllInfo(ctx context.Context) []*domain.Instrument {
	symbols := s.catalog.Symbols()
	out := make([]*domain.Instrument, 0, len(symbols))

	for _, symbol := range symbols {
		inst, err := s.read(ctx, symbol)
		if err != nil {
			s.logger.Debug("skipping unreadable instrument", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		out = append(out, inst)
	}
	return out
}

// GetAllPrices returns the current price of every readable instrument.
func (s *Store) GetAllPrices(ctx context.Context) map[string]int64 {
	infos := s.GetAllInfo(ctx)
	prices := make(map[string]int64, len(infos))
	for _, inst := range infos {
		prices[inst.Symbol] = inst.CurrentPrice
	}
	return prices
}

// GetPriceHistory returns the most recent limit samples, oldest first.
// limit <= 0 returns the whole retained history.
func (s *Store) GetPriceHistory(ctx context.Context, symbol string, limit int) ([]domain.PriceSample, error) {
	inst, err := s.read(ctx, symbol)
	if err != nil {
		return nil, err
	}

	history := inst.PriceHistory
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

// UpdatePrice sets the current price and appends a history sample.
//
// An instrument without a document is a no-op: it returns (false, nil).
// A corrupt document is rebuilt from the catalog before the price is applied.
// Negative prices are rejected with storage.ErrInvalidInput, and a failed
// persist is returned to the caller.
func (s *Store) UpdatePrice(ctx context.Context, symbol string, newPrice int64) (bool, error) {
	_, err := s.setPrice(ctx, "update_price", symbol, newPrice, storage.SourceTick)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetPrice is the administrative override. It behaves like UpdatePrice but
// reports storage.ErrNotFound when the instrument has no document.
func (s *Store) SetPrice(ctx context.Context, symbol string, price int64) (*domain.Instrument, error) {
	return s.setPrice(ctx, "set_price", symbol, price, storage.SourceOverride)
}

func (s *Store) setPrice(ctx context.Context, op, symbol string, price int64, source string) (*domain.Instrument, error) {
	if price < 0 {
		return nil, fmt.Errorf("price %d for %s: %w", price, symbol, storage.ErrInvalidInput)
	}

	start := time.Now()
	inst, err := s.mutate(ctx, symbol, func(inst *domain.Instrument) error {
		inst.AppendPrice(price, s.now(), s.historyCap)
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		observability.RecordStoreOperation(op, time.Since(start).Seconds(), nil)
		return nil, err
	}
	observability.RecordStoreOperation(op, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}

	observability.UpdatePrice(inst.Symbol, inst.CurrentPrice)
	s.archiveSamples(ctx, []*storage.ArchivedSample{archived(inst, source)})
	return inst, nil
}

// ResetPrices sets every instrument back to its starting price and records
// the reset as a history sample. Failures are collected per symbol.
func (s *Store) ResetPrices(ctx context.Context) error {
	start := time.Now()
	var (
		errs    []error
		samples []*storage.ArchivedSample
	)

	for _, symbol := range s.catalog.Symbols() {
		inst, err := s.mutate(ctx, symbol, func(inst *domain.Instrument) error {
			inst.AppendPrice(inst.StartingPrice, s.now(), s.historyCap)
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("reset %s: %w", symbol, err))
			continue
		}
		observability.UpdatePrice(inst.Symbol, inst.CurrentPrice)
		samples = append(samples, archived(inst, storage.SourceReset))
	}

	err := errors.Join(errs...)
	observability.RecordStoreOperation("reset_prices", time.Since(start).Seconds(), err)
	s.archiveSamples(ctx, samples)

	s.logger.Info("market reset", zap.Int("reset", len(samples)), zap.Int("failed", len(errs)))
	return err
}

// SetDisplayName edits the human-readable team name.
func (s *Store) SetDisplayName(ctx context.Context, symbol, name string) (*domain.Instrument, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty display name for %s: %w", symbol, storage.ErrInvalidInput)
	}

	start := time.Now()
	inst, err := s.mutate(ctx, symbol, func(inst *domain.Instrument) error {
		inst.DisplayName = name
		return nil
	})
	observability.RecordStoreOperation("set_display_name", time.Since(start).Seconds(), err)
	return inst, err
}

// read loads a document under the symbol's read lock.
// Corrupt documents are logged and reported as storage.ErrNotFound.
func (s *Store) read(ctx context.Context, symbol string) (*domain.Instrument, error) {
	symbol = domain.NormalizeSymbol(symbol)
	mu, ok := s.locks[symbol]
	if !ok {
		return nil, storage.ErrNotFound
	}

	mu.RLock()
	inst, err := s.docs.Load(ctx, symbol)
	mu.RUnlock()

	if err != nil {
		return nil, s.absent(symbol, err)
	}
	return inst, nil
}

// mutate runs fn on a freshly loaded document and persists the result,
// all under the symbol's write lock. fn's changes are discarded if it errors.
// A missing document is storage.ErrNotFound; a corrupt one is rebuilt first.
func (s *Store) mutate(ctx context.Context, symbol string, fn func(*domain.Instrument) error) (*domain.Instrument, error) {
	symbol = domain.NormalizeSymbol(symbol)
	mu, ok := s.locks[symbol]
	if !ok {
		return nil, storage.ErrNotFound
	}

	mu.Lock()
	defer mu.Unlock()

	inst, err := s.docs.Load(ctx, symbol)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrCorruptDocument):
		inst, err = s.rebuild(symbol, err)
		if err != nil {
			return nil, err
		}
	default:
		return nil, s.absent(symbol, err)
	}

	if err := fn(inst); err != nil {
		return nil, err
	}

	if err := s.docs.Save(ctx, inst); err != nil {
		return nil, fmt.Errorf("persist %s: %w", symbol, err)
	}
	return inst.Clone(), nil
}

// rebuild replaces a corrupt document with a fresh one seeded from the
// catalog, so the write that follows leaves a well-formed document behind.
func (s *Store) rebuild(symbol string, loadErr error) (*domain.Instrument, error) {
	cfg, ok := s.catalog.Lookup(symbol)
	if !ok {
		return nil, storage.ErrNotFound
	}

	observability.RecordCorruptDocument(symbol)
	s.logger.Warn("recreating corrupt document before write", zap.String("symbol", symbol), zap.Error(loadErr))
	return domain.NewInstrument(cfg.Symbol, cfg.Name, cfg.StartingPrice, cfg.Volatility, s.now()), nil
}

// absent maps a load error to the caller-facing error.
func (s *Store) absent(symbol string, err error) error {
	switch {
	case errors.Is(err, storage.ErrCorruptDocument):
		observability.RecordCorruptDocument(symbol)
		s.logger.Warn("corrupt document treated as missing", zap.String("symbol", symbol), zap.Error(err))
		return storage.ErrNotFound
	case errors.Is(err, storage.ErrNotFound):
		return storage.ErrNotFound
	default:
		return fmt.Errorf("load %s: %w", symbol, err)
	}
}

// archiveSamples hands samples to the archive. Failures are logged only.
func (s *Store) archiveSamples(ctx context.Context, samples []*storage.ArchivedSample) {
	if s.archive == nil || len(samples) == 0 {
		return
	}
	if err := s.archive.InsertBulk(ctx, samples); err != nil {
		observability.RecordArchiveError()
		s.logger.Warn("archive samples failed", zap.Int("count", len(samples)), zap.Error(err))
	}
}

func archived(inst *domain.Instrument, source string) *storage.ArchivedSample {
	last, _ := inst.LastSample()
	return &storage.ArchivedSample{
		Symbol:      inst.Symbol,
		TimestampMs: last.Timestamp.UnixMilli(),
		Price:       last.Price,
		Source:      source,
	}
}
