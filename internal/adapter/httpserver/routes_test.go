package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/signboard/internal/adapter/metrics"
	"github.com/stretchr/testify/assert"
)

func TestRoutes_HubEndpoints(t *testing.T) {
	hub := &mockHub{}
	srv := newTestServer(t, withHub(hub))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hub?id=7", nil))
	assert.Equal(t, "open", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hub/reconnect?id=7", nil))
	assert.Equal(t, "resume", rec.Body.String())

	assert.Equal(t, 1, hub.openCalls)
	assert.Equal(t, 1, hub.resumeCalls)
}

func TestRoutes_HubUpgradesAreRateLimited(t *testing.T) {
	hub := &mockHub{}
	cfg := testConfig()
	cfg.WebSocketRateLimit = 0.01
	cfg.WebSocketRateBurst = 1
	srv := NewServer(cfg, Deps{Hub: hub})

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/hub", nil)
		req.RemoteAddr = testRemoteAddr
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1, hub.openCalls)
}

func TestRoutes_UnknownRouteCountsNotFound(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	srv := NewServer(testConfig(), Deps{HTTPMetrics: httpMetrics})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(httpMetrics.Errors.WithLabelValues("not_found")), 0)
}

func TestRoutes_MetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	srv := NewServer(testConfig(), Deps{MetricsHandler: metrics.Handler(reg)})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRoutes_OptionalRoutesAbsent(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/hub", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestRoutes_RegistryContentsNotExposed(t *testing.T) {
	srv := newTestServer(t, withHub(&mockHub{}), withBreaker(&mockBreaker{}))

	for _, path := range []string{"/presence", "/hub/online", "/clients"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
