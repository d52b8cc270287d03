package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/custody-ledger/internal/api"
	"github.com/ayo6706/custody-ledger/internal/api/handler"
	"github.com/ayo6706/custody-ledger/internal/api/middleware"
	"github.com/ayo6706/custody-ledger/internal/config"
	"github.com/ayo6706/custody-ledger/internal/db"
	"github.com/ayo6706/custody-ledger/internal/events"
	"github.com/ayo6706/custody-ledger/internal/gateway"
	"github.com/ayo6706/custody-ledger/internal/idempotency"
	"github.com/ayo6706/custody-ledger/internal/observability"
	"github.com/ayo6706/custody-ledger/internal/oracle"
	"github.com/ayo6706/custody-ledger/internal/repository"
	"github.com/ayo6706/custody-ledger/internal/service"
	"github.com/ayo6706/custody-ledger/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds the wired ledger components for one process.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	pool  *pgxpool.Pool
	redis *redis.Client

	store          repository.Store
	normalizer     *service.Normalizer
	idempotency    *idempotency.Store
	access         *service.AccessControl
	assets         *service.AssetRegistry
	ledger         *service.Ledger
	reconciliation *service.ReconciliationService
}

// Setup loads configuration and initialises logging and metrics.
func Setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)
	return cfg, logger, nil
}

// New connects to the configured backends and builds the service graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.pool = pool
		a.store = repository.NewPostgresStore(pool)
	default:
		logger.Warn("using in-memory store; state is lost on restart")
		a.store = repository.NewMemoryStore()
	}

	publishers := events.MultiPublisher{events.NewLogPublisher(logger)}
	if cfg.RedisURL != "" {
		client, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		publishers = append(publishers, events.NewRedisStreamPublisher(client, cfg.EventStream, cfg.EventStreamMaxLen))
	}

	var backend idempotency.Backend = idempotency.NewMemoryBackend()
	if a.pool != nil {
		backend = idempotency.NewPostgresBackend(a.pool)
	}
	var cache redis.Cmdable
	if a.redis != nil {
		cache = a.redis
	}
	a.idempotency = idempotency.NewStore(cache, backend, cfg.IdempotencyTTL)

	client, err := newOracle(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	normalizer, err := service.NewNormalizer(client, cfg.OracleMaxAge)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.normalizer = normalizer

	custody := gateway.NewMockAdapter()
	custody.FailureRate = cfg.CustodyFailureRate

	a.access = service.NewAccessControl(a.store, publishers)
	a.assets = service.NewAssetRegistry(a.store, publishers)
	a.ledger, err = service.NewLedger(a.store, normalizer, custody, publishers, cfg.CapUSD6)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.reconciliation = service.NewReconciliationService(a.store, normalizer, cfg.CapUSD6)
	return a, nil
}

// Close releases backend connections.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// Serve runs the HTTP server and reconciliation worker until ctx is canceled
// or a termination signal arrives.
func (a *App) Serve(ctx context.Context) error {
	if a.pool != nil {
		if err := db.Migrate(ctx, a.pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if err := a.access.Bootstrap(ctx, a.cfg.BootstrapAdmin); err != nil {
		return fmt.Errorf("bootstrap roles: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reconWorker := worker.NewReconciliationWorker(a.reconciliation).WithInterval(a.cfg.ReconciliationInterval)
	stopWorker := reconWorker.Run(ctx)

	// A typed nil pool must not reach the readiness check as a non-nil Pinger.
	var dbPing handler.Pinger
	if a.pool != nil {
		dbPing = a.pool
	}
	var cache redis.Cmdable
	if a.redis != nil {
		cache = a.redis
	}
	router, err := api.NewRouter(a.cfg, a.logger, dbPing, cache, a.idempotency, api.Services{
		Access:  a.access,
		Assets:  a.assets,
		Ledger:  a.ledger,
		Reports: reconWorker,
		Prices:  a.normalizer,
	})
	if err != nil {
		stopWorker()
		return fmt.Errorf("build router: %w", err)
	}

	server := &http.Server{
		Addr:         ":" + a.cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting",
			zap.String("port", a.cfg.HTTPPort),
			zap.String("store", a.cfg.StoreDriver),
			zap.String("cap_usd6", a.cfg.CapUSD6.String()),
		)
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		a.logger.Info("shutdown signal received")
	case <-ctx.Done():
		a.logger.Info("context canceled")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			stopWorker()
			return fmt.Errorf("server error: %w", err)
		}
	}

	a.logger.Info("stopping reconciliation worker")
	stopWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown failed", zap.Error(err))
	}

	a.logger.Info("shutdown complete")
	return nil
}

// Migrate applies the embedded schema.
func (a *App) Migrate(ctx context.Context) error {
	if a.pool == nil {
		return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.StoreDriverPostgres)
	}
	return db.Migrate(ctx, a.pool)
}

// Reconcile runs a single reconciliation pass.
func (a *App) Reconcile(ctx context.Context) (service.ReconciliationReport, error) {
	return a.reconciliation.Run(ctx)
}

func newOracle(cfg *config.Config) (oracle.Client, error) {
	if cfg.OracleURL != "" {
		c, err := oracle.NewHTTPClient(cfg.OracleURL, cfg.OracleTimeout)
		if err != nil {
			return nil, fmt.Errorf("oracle: %w", err)
		}
		return c, nil
	}
	c, err := oracle.NewStaticClient(cfg.OracleSource, cfg.OraclePrice)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}
	return c, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
