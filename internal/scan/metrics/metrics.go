package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ScansTotal          *prometheus.CounterVec
	ClassifierFallbacks prometheus.Counter
	ClassifierLatency   prometheus.Histogram
	AnchorJobsEnqueued  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pageguard_scan_total",
			Help: "Total number of completed scans by kind, verdict and action",
		}, []string{"kind", "verdict", "action"}),
		ClassifierFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pageguard_scan_classifier_fallbacks_total",
			Help: "Total number of scans resolved with the fallback verdict",
		}),
		ClassifierLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pageguard_scan_classifier_latency_seconds",
			Help:    "Latency of classifier calls",
			Buckets: prometheus.DefBuckets,
		}),
		AnchorJobsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pageguard_scan_anchor_jobs_enqueued_total",
			Help: "Total number of verdicts handed to the audit anchor",
		}),
	}
}

func (m *Metrics) ObserveScan(kind, verdict, action string) {
	m.ScansTotal.WithLabelValues(kind, verdict, action).Inc()
}

func (m *Metrics) IncrementFallbacks() {
	m.ClassifierFallbacks.Inc()
}

func (m *Metrics) ObserveClassifierLatency(d time.Duration) {
	m.ClassifierLatency.Observe(d.Seconds())
}

func (m *Metrics) IncrementAnchorJobs() {
	m.AnchorJobsEnqueued.Inc()
}
