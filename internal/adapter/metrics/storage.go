package metrics

import "github.com/prometheus/client_golang/prometheus"

// StorageMetrics holds Prometheus metrics for the record store.
type StorageMetrics struct {
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
	BreakerState      prometheus.Gauge
	BreakerRejections prometheus.Counter
}

// NewStorageMetrics creates and registers storage metrics on the given registry.
func NewStorageMetrics(reg prometheus.Registerer) *StorageMetrics {
	m := &StorageMetrics{
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Duration of record store operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_errors_total",
			Help:      "Total number of failed record store operations.",
		}, []string{"operation"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		BreakerRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "circuit_breaker_rejections_total",
			Help:      "Total number of operations refused while the breaker was open.",
		}),
	}

	reg.MustRegister(m.OperationDuration, m.OperationErrors, m.BreakerState, m.BreakerRejections)
	return m
}
