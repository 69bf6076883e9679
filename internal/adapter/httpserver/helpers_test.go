package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/signboard/internal/platform/config"
	"github.com/sony/gobreaker"
)

type mockHub struct {
	openCalls   int
	resumeCalls int
}

func (m *mockHub) HandleOpen(c echo.Context) error {
	m.openCalls++
	return c.String(http.StatusOK, "open")
}

func (m *mockHub) HandleResume(c echo.Context) error {
	m.resumeCalls++
	return c.String(http.StatusOK, "resume")
}

type mockBreaker struct {
	state gobreaker.State
}

func (m *mockBreaker) State() gobreaker.State { return m.state }

type serverOption func(*Deps)

func withHealthChecks(checks ...HealthCheck) serverOption {
	return func(d *Deps) { d.HealthChecks = checks }
}

func withHub(h hubEndpoints) serverOption {
	return func(d *Deps) { d.Hub = h }
}

func withBreaker(b breaker) serverOption {
	return func(d *Deps) { d.Breaker = b }
}

func withClock(c clockwork.Clock) serverOption {
	return func(d *Deps) { d.Clock = c }
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "test",
		InstanceID:         "board-test",
		Port:               "0",
		WebSocketRateLimit: 10,
		WebSocketRateBurst: 20,
		ShutdownTimeout:    time.Second,
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *Server {
	t.Helper()
	deps := Deps{Clock: clockwork.NewFakeClock()}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewServer(testConfig(), deps)
}
