// Package main runs the team stock exchange: the instrument store, the price
// tick engine, the activity tracker and the admin HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"team-stock-exchange/internal/activity"
	"team-stock-exchange/internal/api"
	"team-stock-exchange/internal/config"
	"team-stock-exchange/internal/engine"
	"team-stock-exchange/internal/market"
	"team-stock-exchange/internal/notify"
	"team-stock-exchange/internal/storage"
	chstore "team-stock-exchange/internal/storage/clickhouse"
	"team-stock-exchange/internal/storage/file"
	"team-stock-exchange/internal/storage/memory"
	"team-stock-exchange/internal/storage/migrations"
	pgstore "team-stock-exchange/internal/storage/postgres"
)

type flags struct {
	configPath    string
	dataDir       string
	useMemory     bool
	postgresDSN   string
	clickhouseDSN string
	redisAddr     string
	snapshotTTL   time.Duration
	kafkaBrokers  string
	kafkaTopic    string
	httpAddr      string
	noTicker      bool
}

func main() {
	os.Exit(realMain())
}

// realMain returns the process exit code so deferred cleanup runs before exit.
func realMain() int {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	var f flags
	flag.StringVar(&f.configPath, "config", envOr("MARKET_CONFIG", "configs/market.yaml"), "Market configuration file")
	flag.StringVar(&f.dataDir, "data-dir", envOr("MARKET_DATA_DIR", "market_data"), "Directory for instrument documents")
	flag.BoolVar(&f.useMemory, "use-memory", false, "Keep instrument documents in memory only")
	flag.StringVar(&f.postgresDSN, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (replaces the file store)")
	flag.StringVar(&f.clickhouseDSN, "clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the price archive")
	flag.StringVar(&f.redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for price snapshots and pub/sub")
	flag.DurationVar(&f.snapshotTTL, "snapshot-ttl", 0, "TTL of Redis price snapshots (0 keeps them)")
	flag.StringVar(&f.kafkaBrokers, "kafka-brokers", os.Getenv("KAFKA_BROKERS"), "Comma-separated Kafka brokers for price events")
	flag.StringVar(&f.kafkaTopic, "kafka-topic", envOr("KAFKA_TOPIC", notify.DefaultKafkaTopic), "Kafka topic for price events")
	flag.StringVar(&f.httpAddr, "http-addr", envOr("HTTP_ADDR", ":8080"), "Admin HTTP address")
	flag.BoolVar(&f.noTicker, "no-ticker", false, "Do not start the scheduled tick (manual ticks only)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f, logger); err != nil {
		logger.Error("exchange stopped", zap.Error(err))
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}

func run(ctx context.Context, f flags, logger *zap.Logger) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	catalog := cfg.Catalog()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	docs, closeDocs, err := openDocumentStore(ctx, f, logger)
	if err != nil {
		return err
	}
	closers = append(closers, closeDocs)

	var archive storage.SampleArchive
	if f.clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, f.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		archive = chstore.NewSampleArchive(conn)
		logger.Info("price archive enabled", zap.String("backend", "clickhouse"))
	}

	store, err := market.NewStore(market.Options{
		Docs:       docs,
		Catalog:    catalog,
		HistoryCap: cfg.Market.HistoryCap,
		Archive:    archive,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	if err := store.Initialize(ctx); err != nil {
		// Symbols that failed stay absent; the rest of the market still runs.
		logger.Error("market initialization incomplete", zap.Error(err))
	}

	tracker := activity.NewTracker(catalog.Symbols(), *cfg.Market.DecayFactor)

	hub := notify.NewHub(logger)
	notifiers := notify.Multi{notify.NewLogNotifier(logger), hub}

	if f.redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: f.redisAddr})
		closers = append(closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis %s: %w", f.redisAddr, err)
		}
		notifiers = append(notifiers, notify.NewRedisPublisher(client, f.snapshotTTL))
		logger.Info("redis publisher enabled", zap.String("addr", f.redisAddr))
	}

	if f.kafkaBrokers != "" {
		kp, err := notify.NewKafkaPublisher(notify.KafkaOptions{
			Brokers: splitList(f.kafkaBrokers),
			Topic:   f.kafkaTopic,
		})
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = kp.Close() })
		notifiers = append(notifiers, kp)
		logger.Info("kafka publisher enabled", zap.String("topic", f.kafkaTopic))
	}

	model := engine.NewPriceModel(engine.ModelOptions{
		ActivityBias:       cfg.Market.ActivityBias,
		ActivitySaturation: cfg.Market.ActivitySaturation,
		MinPrice:           cfg.Market.MinPrice,
	})

	eng, err := engine.New(engine.Options{
		Market:         store,
		Activity:       tracker,
		Model:          model,
		Notifier:       notifiers,
		Interval:       cfg.Market.TickInterval,
		ActivityPolicy: cfg.Market.ActivityPolicy,
		SkipUnchanged:  !*cfg.Market.RecordUnchanged,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	// Close stops the ticker and drains pending notifications before the
	// hub and publishers shut down.
	closers = append(closers, hub.Close, eng.Close)

	if !f.noTicker {
		eng.Start()
	}

	srv := api.NewServer(api.Options{
		Market:  store,
		Tracker: tracker,
		Catalog: catalog,
		Engine:  eng,
		WS:      hub,
		Logger:  logger,
	})
	httpServer := &http.Server{
		Addr:              f.httpAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", f.httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}

// openDocumentStore selects the document backend: PostgreSQL when a DSN is
// given, memory when requested, the JSON file directory otherwise.
func openDocumentStore(ctx context.Context, f flags, logger *zap.Logger) (storage.DocumentStore, func(), error) {
	switch {
	case f.postgresDSN != "":
		pool, err := pgstore.NewPool(ctx, f.postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Info("document store", zap.String("backend", "postgres"))
		return pgstore.NewDocumentStore(pool), pool.Close, nil

	case f.useMemory:
		logger.Info("document store", zap.String("backend", "memory"))
		return memory.NewDocumentStore(), func() {}, nil

	default:
		docs, err := file.NewDocumentStore(f.dataDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("document store", zap.String("backend", "file"), zap.String("dir", docs.Dir()))
		return docs, func() {}, nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
