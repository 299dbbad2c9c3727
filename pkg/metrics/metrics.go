package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Send attempts by outcome (sent, failed, rate_limited).
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notification send attempts",
		},
		[]string{"path", "outcome"}, // path: rule, queue, alert
	)

	// Recipients skipped by the dedup guard.
	DedupSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_dedup_skipped_total",
			Help: "Recipients suppressed by the dedup window",
		},
	)

	// Duration of one full rule-processing run.
	RuleRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rule_run_duration_seconds",
			Help:    "Duration of a processRules invocation",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	// Duration of one queue drain batch.
	QueueDrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queue_drain_duration_seconds",
			Help:    "Duration of a drainQueue invocation",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	// Pending queue depth observed at the last drain/health check.
	QueuePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "queue_pending_items",
			Help: "Queue items pending delivery",
		},
	)

	// Health checks by derived status.
	HealthChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_checks_total",
			Help: "Health check runs by derived status",
		},
		[]string{"status"},
	)
)

// RecordSend records one send attempt outcome for a pipeline path.
func RecordSend(path, outcome string) {
	NotificationsTotal.WithLabelValues(path, outcome).Inc()
}

// RecordRuleRun records the duration of a rule-processing run.
func RecordRuleRun(d time.Duration) {
	RuleRunDuration.Observe(d.Seconds())
}

// RecordQueueDrain records the duration of a queue drain batch.
func RecordQueueDrain(d time.Duration) {
	QueueDrainDuration.Observe(d.Seconds())
}
