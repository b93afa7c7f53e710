package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dairyline/milk-distributor/internal/cache"
	"github.com/dairyline/milk-distributor/internal/config"
	"github.com/dairyline/milk-distributor/internal/date"
	"github.com/dairyline/milk-distributor/internal/db"
	"github.com/dairyline/milk-distributor/internal/kafka"
	"github.com/dairyline/milk-distributor/internal/ledger"
	"github.com/dairyline/milk-distributor/internal/logger"
	"github.com/dairyline/milk-distributor/internal/repository/postgresql"
	"github.com/dairyline/milk-distributor/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	envPath, envLoaded := config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if envLoaded {
		log.Info("loaded env file", zap.String("path", envPath))
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
			return err
		}
	}

	database, err := db.NewDb(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	orderCache, closeCache, err := newOrderCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	clock := date.NewSystemClock(cfg.Location)
	capacities := ledger.NewCapacityLedger(
		database,
		postgresql.NewCapacityRepo(database),
		clock,
		ledger.Config{MaxCapacity: cfg.MaxCapacity, UnitPrice: cfg.UnitPrice},
		log.Named("capacity"),
	)

	outboxRepo := postgresql.NewOutboxTaskRepo()
	orders := ledger.NewOrderLedger(ledger.OrderLedgerDeps{
		DB:          database,
		Capacities:  capacities,
		Orders:      postgresql.NewOrderRepo(database),
		History:     postgresql.NewHistoryRepo(database),
		Outbox:      outboxRepo,
		Cache:       orderCache,
		Clock:       clock,
		EventsTopic: cfg.Kafka.Topic,
		Logger:      log.Named("orders"),
	})

	var producer kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewWriterProducer(cfg.Kafka.Brokers, log.Named("kafka"))
	} else {
		producer = kafka.NewConsoleProducer(log.Named("kafka"))
	}
	publisher := kafka.NewPublisher(database, outboxRepo, producer, kafka.PublisherConfig{
		PollInterval:    cfg.Kafka.PollInterval,
		BatchSize:       cfg.Kafka.BatchSize,
		MaxAttempts:     cfg.Kafka.MaxAttempts,
		ProcessingLease: cfg.Kafka.ProcessingLease,
	}, log.Named("outbox"))

	srv := server.New(server.Deps{
		Capacities: capacities,
		Orders:     orders,
		Clock:      clock,
		Logger:     log.Named("http"),
		Production: cfg.IsProduction(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Port)
	})
	g.Go(func() error {
		return publisher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", zap.Error(err))
		}
		publisher.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	log.Info("server gracefully stopped")
	return nil
}

// newOrderCache picks Redis when REDIS_ADDR is set and an in-process map
// otherwise.
func newOrderCache(ctx context.Context, cfg config.Config, log *zap.Logger) (ledger.OrderCache, func(), error) {
	if cfg.Redis.Addr == "" {
		return cache.NewMemoryOrderCache(log.Named("cache")), func() {}, nil
	}

	rdb, err := cache.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	return cache.NewRedisOrderCache(rdb, log.Named("cache")), func() { _ = rdb.Close() }, nil
}
