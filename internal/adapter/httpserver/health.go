package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/signboard/internal/platform/version"
	"github.com/sony/gobreaker"
)

const (
	startupCheckTimeout   = 2 * time.Second
	readinessCheckTimeout = 5 * time.Second
)

// HealthCheck is a named dependency check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type livenessReport struct {
	Status     string  `json:"status"`
	InstanceID string  `json:"instance_id"`
	Uptime     float64 `json:"uptime_seconds"`
}

// healthReport lists every check. Gateway carries the breaker state; an open
// breaker means board reads and updates fail fast, so the instance is not ready.
type healthReport struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Gateway string            `json:"gateway,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

// handleStartup only checks dependencies; the breaker starts closed.
func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupCheckTimeout)
	defer cancel()

	return s.writeReport(c, s.runChecks(ctx, false))
}

func (s *Server) handleLiveness(c echo.Context) error {
	report := livenessReport{
		Status:     "ok",
		InstanceID: s.config.InstanceID,
		Uptime:     s.clock.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, report); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessCheckTimeout)
	defer cancel()

	return s.writeReport(c, s.runChecks(ctx, true))
}

func (s *Server) runChecks(ctx context.Context, withBreaker bool) healthReport {
	report := healthReport{Status: "ready", Checks: make(map[string]string, len(s.healthChecks))}

	for _, hc := range s.healthChecks {
		if err := hc.Check(ctx); err != nil {
			slog.WarnContext(ctx, "Health check failed", "check", hc.Name, "error", err)
			report.Checks[hc.Name] = err.Error()
			report.Status = "unhealthy"
			continue
		}
		report.Checks[hc.Name] = "ok"
	}

	if withBreaker && s.breaker != nil {
		state := s.breaker.State()
		report.Gateway = state.String()
		if state == gobreaker.StateOpen {
			report.Status = "unhealthy"
		}
	}
	return report
}

func (s *Server) writeReport(c echo.Context, report healthReport) error {
	status := http.StatusOK
	if report.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	if err := c.JSON(status, report); err != nil {
		return fmt.Errorf("failed to write health response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
