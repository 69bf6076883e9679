package metrics

import "github.com/prometheus/client_golang/prometheus"

// HubMetrics holds Prometheus metrics for the hub core: presence, updates and fan-out.
type HubMetrics struct {
	RegisteredClients    prometheus.Gauge
	Updates              *prometheus.CounterVec
	Broadcasts           *prometheus.CounterVec
	DeliveryFaults       prometheus.Counter
	UnauthorizedCommands *prometheus.CounterVec
	RPCDuration          *prometheus.HistogramVec
}

// NewHubMetrics creates and registers hub metrics on the given registry.
func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	m := &HubMetrics{
		RegisteredClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "registered_clients",
			Help:      "Number of client identities currently registered.",
		}),
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "update_submissions_total",
			Help:      "Total number of update submissions, by result (accepted, rejected, null, remote).",
		}, []string{"result"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "broadcasts_total",
			Help:      "Total number of fan-outs, by notification method.",
		}, []string{"method"}),
		DeliveryFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "delivery_faults_total",
			Help:      "Total number of notifications that could not be handed to a session.",
		}),
		UnauthorizedCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "unauthorized_commands_total",
			Help:      "Total number of controller-only commands invoked by clients, by command.",
		}, []string{"command"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "rpc_duration_seconds",
			Help:      "Duration of client-invoked hub methods.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(m.RegisteredClients, m.Updates, m.Broadcasts, m.DeliveryFaults, m.UnauthorizedCommands, m.RPCDuration)
	return m
}
