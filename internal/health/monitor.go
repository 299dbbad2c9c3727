// Package health derives a pipeline status from recent send outcomes and
// alerts the operator when thresholds are breached.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khamis1992/rental-notify/internal/mailer"
	"github.com/khamis1992/rental-notify/internal/model"
	"github.com/khamis1992/rental-notify/pkg/metrics"
)

const (
	StatusHealthy  = "healthy"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Fixed thresholds below the configurable failure-rate alert threshold.
const (
	rateLimitRateThreshold = 0.10
	pendingQueueThreshold  = 100
	recentFailureThreshold = 10
	alertSuppressionWindow = time.Hour
	alertSendTimeout       = 15 * time.Second
)

// MetricsSource reads the most recent persisted per-day aggregate.
type MetricsSource interface {
	Latest(ctx context.Context) (*model.MetricsSnapshot, error)
}

// QueueStats exposes the live pending-queue depth.
type QueueStats interface {
	PendingCount(ctx context.Context) (int, error)
}

// LogStats counts failed send attempts since a point in time.
type LogStats interface {
	RecentFailureCount(ctx context.Context, since time.Time) (int, error)
}

// AlertStore persists alerts and answers the suppression-window lookup.
type AlertStore interface {
	Insert(ctx context.Context, alert *model.SystemAlert) error
	ExistsRecent(ctx context.Context, status string, window time.Duration) (bool, error)
}

// Report is the structured result of one health check.
type Report struct {
	Status          string                `json:"status"`
	Message         string                `json:"message"`
	FailureRate     float64               `json:"failure_rate"`
	RateLimitRate   float64               `json:"rate_limit_rate"`
	PendingQueue    int                   `json:"pending_queue"`
	RecentFailures  int                   `json:"recent_failures"`
	Metrics         model.MetricsSnapshot `json:"metrics"`
	Alerted         bool                  `json:"alerted"`
	AlertSuppressed bool                  `json:"alert_suppressed"`
	CheckedAt       time.Time             `json:"checked_at"`
}

type Monitor struct {
	metrics        MetricsSource
	queue          QueueStats
	logs           LogStats
	alerts         AlertStore
	mailer         mailer.Mailer
	from           string
	alertEmail     string
	alertThreshold float64 // failure-rate fraction, e.g. 0.20
	logger         *zap.Logger
}

func NewMonitor(
	ms MetricsSource,
	queue QueueStats,
	logs LogStats,
	alerts AlertStore,
	m mailer.Mailer,
	from, alertEmail string,
	alertThresholdPercent int,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		metrics:        ms,
		queue:          queue,
		logs:           logs,
		alerts:         alerts,
		mailer:         m,
		from:           from,
		alertEmail:     alertEmail,
		alertThreshold: float64(alertThresholdPercent) / 100,
		logger:         logger,
	}
}

// Check evaluates current pipeline health and alerts the operator on a
// non-healthy status. The report is returned regardless of the alerting
// outcome; only an evaluation failure produces an error.
func (m *Monitor) Check(ctx context.Context, now time.Time) (*Report, error) {
	snapshot, err := m.metrics.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("read metrics snapshot: %w", err)
	}
	if snapshot == nil {
		snapshot = &model.MetricsSnapshot{Date: now}
	}

	pending, err := m.queue.PendingCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending queue items: %w", err)
	}

	failures, err := m.logs.RecentFailureCount(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("count recent failures: %w", err)
	}

	report := &Report{
		PendingQueue:   pending,
		RecentFailures: failures,
		Metrics:        *snapshot,
		CheckedAt:      now,
	}
	if snapshot.TotalSent > 0 {
		report.FailureRate = float64(snapshot.FailedSent) / float64(snapshot.TotalSent)
		report.RateLimitRate = float64(snapshot.RateLimitedCount) / float64(snapshot.TotalSent)
	}

	report.Status, report.Message = m.derive(report)

	metrics.HealthChecksTotal.WithLabelValues(report.Status).Inc()
	metrics.QueuePending.Set(float64(pending))

	if report.Status != StatusHealthy {
		m.alert(ctx, report)
	}
	return report, nil
}

// derive applies the threshold ladder, first match wins.
func (m *Monitor) derive(r *Report) (string, string) {
	switch {
	case r.FailureRate > m.alertThreshold:
		return StatusCritical, fmt.Sprintf(
			"failure rate %.1f%% exceeds %.0f%% threshold", r.FailureRate*100, m.alertThreshold*100)
	case r.RateLimitRate > rateLimitRateThreshold:
		return StatusWarning, fmt.Sprintf(
			"rate limit rate %.1f%% exceeds %.0f%% threshold", r.RateLimitRate*100, rateLimitRateThreshold*100)
	case r.PendingQueue > pendingQueueThreshold:
		return StatusWarning, fmt.Sprintf(
			"%d queue items pending exceeds backlog threshold %d", r.PendingQueue, pendingQueueThreshold)
	case r.RecentFailures > recentFailureThreshold:
		return StatusWarning, fmt.Sprintf(
			"%d failures in the last 24h exceeds threshold %d", r.RecentFailures, recentFailureThreshold)
	default:
		return StatusHealthy, "all checks passed"
	}
}

// alert notifies the operator and persists the SystemAlert. Re-alerting for
// the same status is suppressed within a trailing window, mirroring the send
// dedup guard. Any failure here is logged and swallowed.
func (m *Monitor) alert(ctx context.Context, report *Report) {
	suppressed, err := m.alerts.ExistsRecent(ctx, report.Status, alertSuppressionWindow)
	if err != nil {
		m.logger.Warn("Alert suppression lookup failed, alerting anyway", zap.Error(err))
	} else if suppressed {
		report.AlertSuppressed = true
		m.logger.Info("Alert suppressed, identical status alerted recently",
			zap.String("status", report.Status),
		)
		return
	}

	alert := &model.SystemAlert{
		ID:        uuid.NewString(),
		Status:    report.Status,
		Message:   report.Message,
		Metrics:   report.Metrics,
		Resolved:  false,
		CreatedAt: time.Now(),
	}
	if err := m.alerts.Insert(ctx, alert); err != nil {
		m.logger.Error("Failed to persist system alert", zap.Error(err))
	}

	if m.alertEmail == "" {
		return
	}

	msg := &mailer.Message{
		From:    m.from,
		To:      m.alertEmail,
		Subject: fmt.Sprintf("[%s] notification pipeline alert", report.Status),
		HTML: fmt.Sprintf(
			"<p>%s</p><p>failure rate: %.1f%%<br>rate limit rate: %.1f%%<br>pending queue: %d<br>failures (24h): %d</p>",
			report.Message,
			report.FailureRate*100,
			report.RateLimitRate*100,
			report.PendingQueue,
			report.RecentFailures,
		),
	}

	sendCtx, cancel := context.WithTimeout(ctx, alertSendTimeout)
	defer cancel()
	if _, err := m.mailer.Send(sendCtx, msg); err != nil {
		m.logger.Error("Failed to send alert email", zap.Error(err))
		return
	}

	report.Alerted = true
	metrics.RecordSend("alert", "sent")
}
