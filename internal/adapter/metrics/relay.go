package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics holds Prometheus metrics for cross-instance update relay.
type RelayMetrics struct {
	Published *prometheus.CounterVec
	Received  *prometheus.CounterVec
}

// NewRelayMetrics creates and registers relay metrics on the given registry.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "published_total",
			Help:      "Total number of update batches published to other instances, by result.",
		}, []string{"result"}),
		Received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "received_total",
			Help:      "Total number of relayed update batches, by outcome (applied, own, invalid).",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.Published, m.Received)
	return m
}

// GatewayMetrics holds Prometheus metrics for the persistence gateway.
type GatewayMetrics struct {
	BreakerState   prometheus.Gauge
	BreakerChanges *prometheus.CounterVec
	Calls          *prometheus.CounterVec
}

// NewGatewayMetrics creates and registers gateway metrics on the given registry.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "circuit_breaker_state",
			Help:      "Persistence circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		BreakerChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions, by target state.",
		}, []string{"to"}),
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Total number of persistence calls, by operation and result.",
		}, []string{"operation", "result"}),
	}

	reg.MustRegister(m.BreakerState, m.BreakerChanges, m.Calls)
	return m
}
