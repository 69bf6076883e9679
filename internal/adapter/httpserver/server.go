package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/signboard/internal/adapter/metrics"
	"github.com/pscheid92/signboard/internal/platform/config"
	"github.com/sony/gobreaker"
)

// hubEndpoints are the websocket entry points of the hub.
type hubEndpoints interface {
	HandleOpen(c echo.Context) error
	HandleResume(c echo.Context) error
}

// breaker exposes the state of the persistence circuit breaker.
type breaker interface {
	State() gobreaker.State
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	hub            hubEndpoints
	breaker        breaker
	metricsHandler http.Handler
	httpMetrics    *metrics.HTTPMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

// Deps groups the collaborators served over HTTP. Breaker, MetricsHandler and
// HTTPMetrics may be nil.
type Deps struct {
	Hub            hubEndpoints
	Breaker        breaker
	MetricsHandler http.Handler
	HTTPMetrics    *metrics.HTTPMetrics
	HealthChecks   []HealthCheck
	Clock          clockwork.Clock
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	srv := &Server{
		echo:           e,
		config:         cfg,
		clock:          clock,
		hub:            deps.Hub,
		breaker:        deps.Breaker,
		metricsHandler: deps.MetricsHandler,
		httpMetrics:    deps.HTTPMetrics,
		healthChecks:   deps.HealthChecks,
		startTime:      clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router for tests and embedding.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
