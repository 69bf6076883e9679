// Package metrics defines the Prometheus instruments of every signboard
// component. Each component gets its own struct, registered on a shared
// registry at startup.
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signboard"

// NewRegistry creates a registry with the Go runtime, process and build info
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	return reg
}

// Handler serves reg. Collection errors are logged and the remaining metrics
// are still served.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      slogAdapter{},
		ErrorHandling: promhttp.ContinueOnError,
		Registry:      reg,
	})
}

type slogAdapter struct{}

func (slogAdapter) Println(v ...any) {
	slog.Error("Metrics collection failed", "detail", v)
}
