package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/podreach/publisher/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	RepliesPublished prometheus.Counter
	RepliesFailed    *prometheus.CounterVec
	BatchHalts       *prometheus.CounterVec
	PostLatency      prometheus.Histogram
	QueueDepth       *prometheus.GaugeVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RepliesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replies_published_total",
			Help: "Total number of replies successfully posted (duplicates included).",
		}),

		RepliesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replies_failed_total",
			Help: "Total number of failed posting attempts by error category.",
		}, []string{"category"}),

		BatchHalts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "publish_batch_halts_total",
			Help: "Total number of publish runs halted early, by reason.",
		}, []string{"reason"}),

		PostLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reply_post_seconds",
			Help:    "Posting call latency from request to provider ack.",
			Buckets: prometheus.DefBuckets,
		}),

		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "publish_queue_depth",
			Help: "Current number of queue items by status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.RepliesPublished,
		m.RepliesFailed,
		m.BatchHalts,
		m.PostLatency,
		m.QueueDepth,
	)

	return m
}

// DispatcherHooks returns the metric callback functions expected by
// dispatch.Hooks. Centralises the prometheus observation calls so the
// dispatcher stays import-free.
func (m *Metrics) DispatcherHooks() (
	onPosted func(time.Duration),
	onFailed func(domain.ErrorCategory),
	onHalt func(domain.HaltReason),
) {
	onPosted = func(latency time.Duration) {
		m.RepliesPublished.Inc()
		m.PostLatency.Observe(latency.Seconds())
	}
	onFailed = func(category domain.ErrorCategory) {
		m.RepliesFailed.WithLabelValues(string(category)).Inc()
	}
	onHalt = func(reason domain.HaltReason) {
		m.BatchHalts.WithLabelValues(string(reason)).Inc()
	}
	return
}

// SetQueueDepths updates the per-status depth gauges from a CountByStatus
// snapshot. Absent statuses reset to zero.
func (m *Metrics) SetQueueDepths(counts map[domain.Status]int) {
	for _, status := range []domain.Status{
		domain.StatusPending,
		domain.StatusProcessing,
		domain.StatusCompleted,
		domain.StatusFailed,
	} {
		m.QueueDepth.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
