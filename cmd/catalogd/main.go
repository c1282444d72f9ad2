package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/vehicle-catalog/internal/adapter/api"
	"github.com/user/vehicle-catalog/internal/adapter/catalog"
	"github.com/user/vehicle-catalog/internal/adapter/metrics"
	filestore "github.com/user/vehicle-catalog/internal/adapter/repository/file"
	"github.com/user/vehicle-catalog/internal/adapter/repository/memory"
	"github.com/user/vehicle-catalog/internal/adapter/repository/postgres"
	redisstore "github.com/user/vehicle-catalog/internal/adapter/repository/redis"
	"github.com/user/vehicle-catalog/internal/domain"
	"github.com/user/vehicle-catalog/internal/pkg/config"
	"github.com/user/vehicle-catalog/internal/pkg/logger"
	"github.com/user/vehicle-catalog/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

const (
	vehiclesKey = "catalog:vehicles"
	bucketsKey  = "catalog:buckets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewCatalogMetrics()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Shared Cache Stores ---
	vehicles, buckets, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize cache backend", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// --- Use Cases ---
	gateway := catalog.NewClient(cfg.CatalogBaseURL, logger, m)
	fetcher := metrics.NewInstrumentedFetcher(usecase.NewFetchCatalogUseCase(gateway, logger), m)

	chunked := usecase.NewChunkedStrategy(cfg.AggregateChunkSize, cfg.BucketVehicleIDCap, logger)
	offload := usecase.NewOffloadStrategy(chunked, cfg.BucketVehicleIDCap, logger)

	coordinator := usecase.NewCoordinator(
		vehicles, buckets, fetcher,
		metrics.NewInstrumentedStrategy(chunked, "chunked", m),
		metrics.NewInstrumentedStrategy(offload, "offload", m),
		logger,
		usecase.CoordinatorOptions{
			RefreshOnMount:   cfg.RefreshOnMount,
			FetchIfEmpty:     cfg.FetchIfEmpty,
			StaleTTL:         cfg.CatalogTTL,
			OffloadThreshold: cfg.OffloadThreshold,
			Query: domain.CatalogQuery{
				Filter:   cfg.CatalogFilter,
				Sort:     cfg.CatalogSort,
				PageSize: cfg.CatalogPageSize,
			},
		},
	)

	unsubGauges := coordinator.Subscribe(func(view usecase.View) {
		m.VehiclesCached.Set(float64(len(view.Vehicles)))
		m.BucketsComputed.Set(float64(len(view.Buckets)))
	})
	defer unsubGauges()

	coordinator.Start(ctx)
	defer coordinator.Close()

	// --- Admin and Metrics Server ---
	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: api.NewAdminRouter(coordinator),
	}
	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Catalog Server ---
	router, stream := api.NewRouter(coordinator, logger, m)
	defer stream.Close()

	catalogServer := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     router,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 15 * time.Second,
	}
	go func() {
		logger.Info("starting catalog server", "addr", catalogServer.Addr)
		if err := catalogServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("catalog server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}
	if err := catalogServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("catalog server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}

// buildStores creates the vehicle and bucket stores on the configured
// backend. The returned cleanup closes whatever connections were opened.
func buildStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.VehicleStore, domain.BucketStore, func(), error) {
	switch cfg.CacheBackend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			return nil, nil, nil, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("could not connect to redis, cache degrades to in-process only", "error", err)
		}
		vehicles := redisstore.NewStore[domain.VehicleSet](ctx, client, vehiclesKey, logger)
		buckets := redisstore.NewStore[domain.BucketSet](ctx, client, bucketsKey, logger)
		return vehicles, buckets, func() { client.Close() }, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			logger.Warn("could not prepare cache schema, cache degrades to in-process only", "error", err)
		}
		vehicles := postgres.NewStore[domain.VehicleSet](ctx, db, cfg.PostgresURL, vehiclesKey, logger)
		buckets := postgres.NewStore[domain.BucketSet](ctx, db, cfg.PostgresURL, bucketsKey, logger)
		return vehicles, buckets, func() { db.Close() }, nil

	case "file":
		vehicles := filestore.NewStore[domain.VehicleSet](ctx, filepath.Join(cfg.CacheDir, "vehicles.json"), cfg.FilePollInterval, logger)
		buckets := filestore.NewStore[domain.BucketSet](ctx, filepath.Join(cfg.CacheDir, "buckets.json"), cfg.FilePollInterval, logger)
		return vehicles, buckets, func() {}, nil

	default:
		vehicles := memory.NewStore[domain.VehicleSet]()
		buckets := memory.NewStore[domain.BucketSet]()
		return vehicles, buckets, func() {}, nil
	}
}
