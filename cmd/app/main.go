package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/restaurantapi/orders-service/internal/application/service"
	"github.com/restaurantapi/orders-service/internal/cache"
	"github.com/restaurantapi/orders-service/internal/config"
	"github.com/restaurantapi/orders-service/internal/database"
	"github.com/restaurantapi/orders-service/internal/httpapi"
	"github.com/restaurantapi/orders-service/internal/kafka"
	"github.com/restaurantapi/orders-service/internal/migrate"
	"github.com/restaurantapi/orders-service/internal/observability"
	"github.com/restaurantapi/orders-service/internal/pkg/breaker"
	"github.com/restaurantapi/orders-service/internal/pkg/retry"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	retryPolicy := retry.Policy{
		Attempts:     cfg.Retry.Attempts,
		Base:         cfg.Retry.Base,
		Max:          cfg.Retry.Max,
		JitterFactor: cfg.Retry.JitterFactor,
	}

	// Postgres may still be starting up, so both the migration and the
	// first connection go through the retry policy.
	if err := retry.Do(ctx, retryPolicy, func() error {
		return migrate.Up(cfg.DSN())
	}); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	var pool *pgxpool.Pool
	if err := retry.Do(ctx, retryPolicy, func() error {
		var err error
		pool, err = database.Connect(ctx, cfg.DSN(), logger)
		return err
	}); err != nil {
		logger.Fatal("connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	orderCache := newCache(ctx, cfg, logger)
	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()

	metrics := observability.NewInmem(1000)

	svc := service.New(
		database.NewOrderRepository(pool),
		orderCache,
		publisher,
		logger,
		metrics,
		service.Config{
			OrderTTL: cfg.Cache.OrderTTL,
			ListTTL:  cfg.Cache.ListTTL,
		},
	)

	server := httpapi.New(svc, logger, metrics)

	logger.Info("server starting", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

// newCache picks the configured backend. A Redis that is down at boot
// is tolerated: the breaker opens and reads degrade to cache misses.
func newCache(ctx context.Context, cfg config.Config, logger *zap.Logger) service.Cache {
	if cfg.Cache.Backend != "redis" {
		return cache.NewMemory(cfg.Cache.Cap, cfg.Cache.OrderTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	brk := breaker.New(breaker.Config{
		Threshold:   cfg.Breaker.Threshold,
		OpenTimeout: cfg.Breaker.OpenTimeout,
		MaxHalfOpen: cfg.Breaker.MaxHalfOpen,
	})

	redisCache := cache.NewRedis(client, brk)
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, serving cache misses until it recovers", zap.Error(err))
	}
	return redisCache
}

func newPublisher(cfg config.Config, logger *zap.Logger) (service.Publisher, func()) {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("no kafka brokers configured, events will be dropped")
		return kafka.NoopPublisher{}, func() {}
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	return producer, func() {
		if err := producer.Close(); err != nil {
			logger.Warn("close kafka producer", zap.Error(err))
		}
	}
}
