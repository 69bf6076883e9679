package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/signboard/internal/adapter/metrics"
	"github.com/pscheid92/signboard/internal/domain"
	"github.com/sony/gobreaker"
)

// BreakerSettings configures the circuit breaker in front of the gateway.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenFor is how long calls fail fast before a trial call is let through.
	OpenFor time.Duration
}

// BreakingGateway guards a domain.Gateway with a circuit breaker. While the
// breaker is open every call fails immediately with domain.ErrGatewayUnavailable.
// Rejected updates (unknown employee or location, invalid status) are answers,
// not faults, and never trip it.
type BreakingGateway struct {
	next    domain.Gateway
	cb      *gobreaker.CircuitBreaker
	metrics *metrics.GatewayMetrics
}

var _ domain.Gateway = (*BreakingGateway)(nil)

// NewBreakingGateway wraps next. m may be nil.
func NewBreakingGateway(next domain.Gateway, settings BreakerSettings, m *metrics.GatewayMetrics) *BreakingGateway {
	g := &BreakingGateway{next: next, metrics: m}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "postgres",
		MaxRequests: 1,
		Timeout:     settings.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful:  isSuccessful,
		OnStateChange: g.onStateChange,
	})
	return g
}

func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, domain.ErrEmployeeNotFound) ||
		errors.Is(err, domain.ErrLocationNotFound) ||
		errors.Is(err, domain.ErrInvalidUpdate) ||
		errors.Is(err, context.Canceled)
}

func (g *BreakingGateway) onStateChange(name string, from, to gobreaker.State) {
	slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
	if g.metrics != nil {
		g.metrics.BreakerChanges.WithLabelValues(to.String()).Inc()
		g.metrics.BreakerState.Set(stateToFloat(to))
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (g *BreakingGateway) LoadAll(ctx context.Context) ([]domain.Employee, error) {
	res, err := g.execute("load_all", func() (any, error) {
		return g.next.LoadAll(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]domain.Employee), nil
}

func (g *BreakingGateway) ApplyUpdates(ctx context.Context, updates []domain.EmployeeStatusUpdate) error {
	_, err := g.execute("apply_updates", func() (any, error) {
		return nil, g.next.ApplyUpdates(ctx, updates)
	})
	return err
}

func (g *BreakingGateway) LoadLocations(ctx context.Context) (domain.LocationMap, error) {
	res, err := g.execute("load_locations", func() (any, error) {
		return g.next.LoadLocations(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(domain.LocationMap), nil
}

// State returns the current breaker state.
func (g *BreakingGateway) State() gobreaker.State {
	return g.cb.State()
}

func (g *BreakingGateway) execute(operation string, fn func() (any, error)) (any, error) {
	res, err := g.cb.Execute(fn)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.count(operation, "rejected")
		return nil, fmt.Errorf("%w: %w", domain.ErrGatewayUnavailable, err)
	case err != nil:
		g.count(operation, "error")
		return nil, err
	default:
		g.count(operation, "ok")
		return res, nil
	}
}

func (g *BreakingGateway) count(operation, result string) {
	if g.metrics != nil {
		g.metrics.Calls.WithLabelValues(operation, result).Inc()
	}
}
