package metrics

import "github.com/prometheus/client_golang/prometheus"

// IngestMetrics holds Prometheus metrics for the reading ingest pipeline.
type IngestMetrics struct {
	Readings           *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	ReadingsByStatus   *prometheus.CounterVec
}

// NewIngestMetrics creates and registers ingest pipeline metrics on the given registry.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	m := &IngestMetrics{
		Readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "readings_total",
			Help:      "Total number of readings handled, by result.",
		}, []string{"result"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "processing_duration_seconds",
			Help:      "Duration from decode to broadcast hand-off in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		ReadingsByStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "readings_by_status_total",
			Help:      "Total number of stored readings, by clinical status.",
		}, []string{"status"}),
	}

	reg.MustRegister(m.Readings, m.ProcessingDuration, m.ReadingsByStatus)
	return m
}
