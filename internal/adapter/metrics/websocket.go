package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics holds Prometheus metrics for hub sessions.
type WebSocketMetrics struct {
	ActiveConnections   prometheus.Gauge
	SessionEvents       *prometheus.CounterVec
	RejectedConnections *prometheus.CounterVec
	NotificationsSent   prometheus.Counter
	SendDuration        prometheus.Histogram
	PingFailures        prometheus.Counter
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket sessions, controller included.",
		}),
		SessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "session_events_total",
			Help:      "Total number of session lifecycle events, by event (open, resume, close).",
		}, []string{"event"}),
		RejectedConnections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rejected_connections_total",
			Help:      "Total number of refused WebSocket upgrades, by reason.",
		}, []string{"reason"}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "frames_sent_total",
			Help:      "Total number of frames written to WebSocket sessions.",
		}),
		SendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "frame_send_duration_seconds",
			Help:      "Time spent writing a single frame to a WebSocket session.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "ping_failures_total",
			Help:      "Total number of failed keepalive pings.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.SessionEvents, m.RejectedConnections, m.NotificationsSent, m.SendDuration, m.PingFailures)
	return m
}
