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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/signboard/internal/adapter/httpserver"
	"github.com/pscheid92/signboard/internal/adapter/metrics"
	"github.com/pscheid92/signboard/internal/adapter/postgres"
	"github.com/pscheid92/signboard/internal/adapter/redis"
	"github.com/pscheid92/signboard/internal/adapter/websocket"
	"github.com/pscheid92/signboard/internal/dataset"
	"github.com/pscheid92/signboard/internal/hub"
	"github.com/pscheid92/signboard/internal/platform/config"
	"github.com/pscheid92/signboard/internal/platform/logging"
	"github.com/pscheid92/signboard/internal/platform/version"
	"github.com/pscheid92/signboard/internal/registry"
)

const startupTimeout = 30 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, tracer pgx.QueryTracer) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, tracer)
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

func setupRedis(cfg *config.Config, hook *redis.MetricsHook) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL, hook)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

type shutdownDeps struct {
	server      *httpserver.Server
	wsHandler   *websocket.Handler
	stopRelay   context.CancelFunc
	relayDone   <-chan struct{}
	gracePeriod time.Duration
}

func runGracefulShutdown(deps shutdownDeps) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		slog.Info("Shutdown signal received, cleaning up...", "signal", sig.String())

		// Hijacked websocket connections are invisible to echo's Shutdown.
		deps.wsHandler.Shutdown("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), deps.gracePeriod)
		defer cancel()
		if err := deps.server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		if deps.stopRelay != nil {
			deps.stopRelay()
			select {
			case <-deps.relayDone:
			case <-shutdownCtx.Done():
				slog.Warn("Update relay did not stop in time")
			}
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting",
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"instance_id", cfg.InstanceID,
		"build", version.Get(),
	)

	promRegistry := metrics.NewRegistry()
	hubMetrics := metrics.NewHubMetrics(promRegistry)
	cacheMetrics := metrics.NewCacheMetrics(promRegistry)
	gatewayMetrics := metrics.NewGatewayMetrics(promRegistry)
	wsMetrics := metrics.NewWebSocketMetrics(promRegistry)
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)

	pool := setupDB(cfg, postgres.NewQueryTracer(metrics.NewDBMetrics(promRegistry), clock))
	defer pool.Close()
	store := postgres.NewGateway(pool)

	gateway := postgres.NewBreakingGateway(store, postgres.BreakerSettings{
		ConsecutiveFailures: cfg.DBBreakerFailures,
		OpenFor:             cfg.DBBreakerOpenFor,
	}, gatewayMetrics)

	state := hub.NewState(
		registry.New(registry.WithMetrics(hubMetrics)),
		dataset.NewCache(gateway, clock, cacheMetrics),
	)

	healthChecks := []httpserver.HealthCheck{
		{Name: "postgres", Check: store.Ping},
	}
	hubOpts := []hub.Option{hub.WithMetrics(hubMetrics), hub.WithClock(clock)}

	var relay *redis.UpdateRelay
	if cfg.RelayEnabled() {
		redisClient := setupRedis(cfg, redis.NewMetricsHook(metrics.NewRedisMetrics(promRegistry), clock))
		defer func() { _ = redisClient.Close() }()

		relay = redis.NewUpdateRelay(redisClient, cfg.InstanceID, metrics.NewRelayMetrics(promRegistry))
		hubOpts = append(hubOpts, hub.WithRelay(relay))
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	} else {
		slog.Info("REDIS_URL not set, running as a single instance")
	}

	h := hub.New(state, gateway, hubOpts...)

	var (
		stopRelay context.CancelFunc
		relayDone = make(chan struct{})
	)
	if relay != nil {
		var relayCtx context.Context
		relayCtx, stopRelay = context.WithCancel(context.Background())
		go func() {
			defer close(relayDone)
			relay.Start(relayCtx, h)
		}()
	}

	wsHandler := websocket.NewHandler(
		h,
		websocket.NewCheckOrigin(cfg.AllowedOrigin, cfg.IsDevelopment()),
		websocket.NewConnectionLimiter(int64(cfg.MaxWebSocketConnections)),
		clock,
		wsMetrics,
	)

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		Hub:            wsHandler,
		Breaker:        gateway,
		MetricsHandler: metrics.Handler(promRegistry),
		HTTPMetrics:    httpMetrics,
		HealthChecks:   healthChecks,
		Clock:          clock,
	})

	done := runGracefulShutdown(shutdownDeps{
		server:      srv,
		wsHandler:   wsHandler,
		stopRelay:   stopRelay,
		relayDone:   relayDone,
		gracePeriod: cfg.ShutdownTimeout,
	})

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Shutdown complete")
}
