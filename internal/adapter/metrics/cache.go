package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics holds Prometheus metrics for the dataset cache.
type CacheMetrics struct {
	Hits          prometheus.Counter
	Reloads       *prometheus.CounterVec
	ReloadTime    prometheus.Histogram
	Invalidations prometheus.Counter
	Employees     prometheus.Gauge
}

// NewCacheMetrics creates and registers cache metrics on the given registry.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset_cache",
			Name:      "hits_total",
			Help:      "Total number of reads served from the cached snapshot.",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset_cache",
			Name:      "reloads_total",
			Help:      "Total number of dataset reload attempts, by result.",
		}, []string{"result"}),
		ReloadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dataset_cache",
			Name:      "reload_duration_seconds",
			Help:      "Duration of dataset reloads from persistence.",
			Buckets:   prometheus.DefBuckets,
		}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset_cache",
			Name:      "invalidations_total",
			Help:      "Total number of dataset cache invalidations.",
		}),
		Employees: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset_cache",
			Name:      "employees",
			Help:      "Number of employee records in the cached snapshot.",
		}),
	}

	reg.MustRegister(m.Hits, m.Reloads, m.ReloadTime, m.Invalidations, m.Employees)
	return m
}
