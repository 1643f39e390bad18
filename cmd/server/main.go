package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rafaelspotto/helthgo/internal/adapter/httpserver"
	"github.com/rafaelspotto/helthgo/internal/adapter/memory"
	"github.com/rafaelspotto/helthgo/internal/adapter/metrics"
	"github.com/rafaelspotto/helthgo/internal/adapter/postgres"
	"github.com/rafaelspotto/helthgo/internal/adapter/redis"
	"github.com/rafaelspotto/helthgo/internal/adapter/websocket"
	"github.com/rafaelspotto/helthgo/internal/app"
	"github.com/rafaelspotto/helthgo/internal/broadcast"
	"github.com/rafaelspotto/helthgo/internal/domain"
	"github.com/rafaelspotto/helthgo/internal/ingest"
	"github.com/rafaelspotto/helthgo/internal/platform/config"
	"github.com/rafaelspotto/helthgo/internal/platform/logging"
	"github.com/rafaelspotto/helthgo/internal/platform/retry"
	"github.com/rafaelspotto/helthgo/internal/platform/version"
	"github.com/rafaelspotto/helthgo/internal/session"
	goredis "github.com/redis/go-redis/v9"
)

const (
	maxConnectionsPerIP   = 50
	connectionsPerSecond  = 10
	connectionBurst       = 20
	shutdownTimeout       = 10 * time.Second
	startupConnectTimeout = 60 * time.Second
)

var connectPolicy = retry.Policy{
	MaxAttempts:    8,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     8 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Dependency not reachable yet, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(ctx context.Context, cfg *config.Config, storageMetrics *metrics.StorageMetrics) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(ctx, startupConnectTimeout)
	defer cancel()

	tracer := postgres.NewMetricsTracer(storageMetrics)
	pool, err := retry.Do(ctx, connectPolicy, retry.Transient, func(ctx context.Context) (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL, tracer)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config, relayMetrics *metrics.RelayMetrics) *goredis.Client {
	ctx, cancel := context.WithTimeout(ctx, startupConnectTimeout)
	defer cancel()

	client, err := retry.Do(ctx, connectPolicy, retry.Transient, func(ctx context.Context) (*goredis.Client, error) {
		return redis.NewClient(ctx, cfg.RedisURL, redis.NewMetricsHook(relayMetrics))
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

// setupStore returns the record store and the readiness check for it.
func setupStore(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (domain.VitalSignRepository, []httpserver.HealthCheck, func()) {
	if cfg.Store == config.StoreMemory {
		slog.Warn("Using in-memory record store, records are lost on restart")
		return memory.NewStore(), nil, func() {}
	}

	storageMetrics := metrics.NewStorageMetrics(reg)
	pool := setupDB(ctx, cfg, storageMetrics)
	repo := postgres.NewGuardedRepo(
		postgres.NewVitalSignRepo(pool),
		cfg.StorageBreakerFailures,
		cfg.StorageBreakerOpenDuration,
		storageMetrics,
	)
	checks := []httpserver.HealthCheck{{Name: "postgres", Check: pool.Ping}}
	return repo, checks, pool.Close
}

func runGracefulShutdown(srv *httpserver.Server, registry *session.Registry, stopBackground context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		// Close sessions first: hijacked WebSocket connections are not
		// tracked by the HTTP server's shutdown.
		registry.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopBackground()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logCloser := logging.InitLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	defer func() { _ = logCloser.Close() }()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "store", cfg.Store, "version", version.Version)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	reg := metrics.NewRegistry()

	store, healthChecks, closeStore := setupStore(bgCtx, cfg, reg)
	defer closeStore()

	registry := session.NewRegistry()
	broadcaster := broadcast.NewBroadcaster(registry, clock,
		broadcast.WithSendTimeout(cfg.BroadcastSendTimeout),
		broadcast.WithConcurrency(cfg.BroadcastConcurrency),
		broadcast.WithMetrics(metrics.NewBroadcastMetrics(reg)),
	)

	publishers := []domain.RecordPublisher{broadcaster}
	if cfg.RedisURL != "" {
		relayMetrics := metrics.NewRelayMetrics(reg)
		redisClient := setupRedis(bgCtx, cfg, relayMetrics)
		defer func() { _ = redisClient.Close() }()

		relay := redis.NewRelay(redisClient, uuid.NewString(), broadcaster, relayMetrics)
		go relay.Run(bgCtx)
		publishers = append(publishers, relay)
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	pipeline := ingest.NewPipeline(store, clock, metrics.NewIngestMetrics(reg), publishers...)

	wsMetrics := metrics.NewWebSocketMetrics(reg)
	reaper := session.NewReaper(registry, clock, cfg.SessionSweepInterval, cfg.SessionIdleTimeout, func(session.Session) {
		wsMetrics.IdleDisconnects.Inc()
	})
	go reaper.Run(bgCtx)

	wsHandler := websocket.NewHandler(websocket.HandlerConfig{
		Classifier:  session.NewClassifier(cfg.ProducerSignatureList()),
		Registry:    registry,
		Ingest:      pipeline,
		Limits:      websocket.NewLimits(int64(cfg.MaxWebSocketConnections), maxConnectionsPerIP, connectionsPerSecond, connectionBurst),
		CheckOrigin: websocket.NewCheckOrigin(cfg.AllowedOriginList(), !cfg.IsProduction()),
		Clock:       clock,
		Metrics:     wsMetrics,
	})

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		App:              app.NewService(store, pipeline),
		Sessions:         registry,
		WebSocketHandler: wsHandler,
		MetricsHandler:   metrics.Handler(reg),
		HTTPMetrics:      metrics.NewHTTPMetrics(reg),
		HealthChecks:     healthChecks,
	})

	done := runGracefulShutdown(srv, registry, stopBackground)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
