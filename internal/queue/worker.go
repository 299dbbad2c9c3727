// Package queue drains the persisted notification queue: due pending items
// are claimed in batches, sent, and on failure rescheduled with exponential
// backoff until the retry ceiling marks them permanently failed.
package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/khamis1992/rental-notify/internal/mailer"
	"github.com/khamis1992/rental-notify/internal/model"
	"github.com/khamis1992/rental-notify/internal/render"
	"github.com/khamis1992/rental-notify/pkg/metrics"
)

const defaultSendTimeout = 15 * time.Second

// Store is the persisted queue. ClaimDue must be a single conditional
// statement so two overlapping workers never hand out the same item.
type Store interface {
	ClaimDue(ctx context.Context, limit int, now time.Time) ([]model.QueueItem, error)
	MarkSent(ctx context.Context, id int64, now time.Time) error
	MarkFailed(ctx context.Context, id int64, retryCount int, errMsg string) error
	Reschedule(ctx context.Context, id int64, retryCount int, scheduledFor, lastRetryAt time.Time, errMsg string) error
	PendingCount(ctx context.Context) (int, error)
}

// TemplateSource resolves a queue item's template.
type TemplateSource interface {
	ByID(ctx context.Context, id int64) (*model.Template, error)
}

// LogSink appends the audit record for terminal outcomes.
type LogSink interface {
	Append(ctx context.Context, entry *model.NotificationLog) error
}

// Counter is the persisted atomic metric increment.
type Counter interface {
	Increment(ctx context.Context, metricType string, count int) error
}

// Config bounds one drain invocation.
type Config struct {
	BatchSize   int
	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:   50,
		MaxRetries:  5,
		BackoffBase: 200 * time.Millisecond,
		BackoffCap:  30 * time.Second,
	}
}

// Result summarizes one drain invocation.
type Result struct {
	Claimed     int `json:"claimed"`
	Sent        int `json:"sent"`
	Failed      int `json:"failed"` // permanent failures this run
	Rescheduled int `json:"rescheduled"`
}

type Worker struct {
	store       Store
	templates   TemplateSource
	logs        LogSink
	counter     Counter
	mailer      mailer.Mailer
	from        string
	cfg         Config
	sendTimeout time.Duration
	logger      *zap.Logger
}

func NewWorker(
	store Store,
	templates TemplateSource,
	logs LogSink,
	counter Counter,
	m mailer.Mailer,
	from string,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		store:       store,
		templates:   templates,
		logs:        logs,
		counter:     counter,
		mailer:      m,
		from:        from,
		cfg:         cfg,
		sendTimeout: defaultSendTimeout,
		logger:      logger,
	}
}

// WithSendTimeout overrides the per-send timeout.
func (w *Worker) WithSendTimeout(d time.Duration) *Worker {
	w.sendTimeout = d
	return w
}

// Drain processes one batch of due items. Every outcome is persisted before
// the next item so the following cycle always sees authoritative state.
func (w *Worker) Drain(ctx context.Context, now time.Time) Result {
	start := time.Now()
	defer func() { metrics.RecordQueueDrain(time.Since(start)) }()

	var res Result

	items, err := w.store.ClaimDue(ctx, w.cfg.BatchSize, now)
	if err != nil {
		w.logger.Error("Failed to claim due queue items", zap.Error(err))
		return res
	}
	res.Claimed = len(items)
	if len(items) == 0 {
		w.observePending(ctx)
		return res
	}

	w.logger.Debug("Draining queue batch", zap.Int("count", len(items)))

	for _, item := range items {
		w.processItem(ctx, item, now, &res)
	}

	w.observePending(ctx)

	w.logger.Info("Queue drain finished",
		zap.Int("claimed", res.Claimed),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("rescheduled", res.Rescheduled),
	)
	return res
}

func (w *Worker) processItem(ctx context.Context, item model.QueueItem, now time.Time, res *Result) {
	log := w.logger.With(
		zap.Int64("item_id", item.ID),
		zap.String("recipient", item.RecipientEmail),
		zap.Int("retry_count", item.RetryCount),
	)

	sendErr := w.send(ctx, item)
	if sendErr == nil {
		if err := w.store.MarkSent(ctx, item.ID, now); err != nil {
			log.Error("Failed to mark item sent", zap.Error(err))
		}
		w.record(ctx, item, model.LogStatusSent, "", log)
		w.increment(ctx, model.MetricSuccessfulSent, log)
		metrics.RecordSend("queue", "sent")
		res.Sent++
		log.Info("Queued notification delivered")
		return
	}

	log.Warn("Queued notification send failed", zap.Error(sendErr))

	metricType := model.MetricFailedSent
	outcome := "failed"
	if mailer.IsRateLimit(sendErr) {
		metricType = model.MetricRateLimitedCount
		outcome = "rate_limited"
	}
	w.increment(ctx, metricType, log)
	metrics.RecordSend("queue", outcome)

	retryCount := item.RetryCount + 1
	if retryCount >= w.cfg.MaxRetries {
		if err := w.store.MarkFailed(ctx, item.ID, retryCount, sendErr.Error()); err != nil {
			log.Error("Failed to mark item failed", zap.Error(err))
		}
		w.record(ctx, item, model.LogStatusFailed, sendErr.Error(), log)
		res.Failed++
		log.Error("Retry ceiling reached, item permanently failed",
			zap.Int("retries", retryCount),
		)
		return
	}

	delay := Backoff(retryCount, w.cfg.BackoffBase, w.cfg.BackoffCap)
	if err := w.store.Reschedule(ctx, item.ID, retryCount, now.Add(delay), now, sendErr.Error()); err != nil {
		log.Error("Failed to reschedule item", zap.Error(err))
	}
	res.Rescheduled++
	log.Info("Item rescheduled",
		zap.Int("retry_count", retryCount),
		zap.Duration("delay", delay),
	)
}

func (w *Worker) send(ctx context.Context, item model.QueueItem) error {
	tmpl, err := w.templates.ByID(ctx, item.TemplateID)
	if err != nil {
		return err
	}

	// Queue items carry no entity bundle; templates meant for queued
	// delivery use static bodies and any leftover tokens render empty.
	msg := &mailer.Message{
		From:    w.from,
		To:      item.RecipientEmail,
		Subject: render.Render(tmpl.Subject, nil),
		HTML:    render.Render(tmpl.Content, nil),
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	_, err = w.mailer.Send(sendCtx, msg)
	return err
}

func (w *Worker) record(ctx context.Context, item model.QueueItem, status, errMsg string, log *zap.Logger) {
	entry := &model.NotificationLog{
		TemplateID:     item.TemplateID,
		RecipientEmail: item.RecipientEmail,
		Status:         status,
		ErrorMessage:   errMsg,
		CreatedAt:      time.Now(),
	}
	if err := w.logs.Append(ctx, entry); err != nil {
		log.Error("Failed to append notification log", zap.Error(err))
	}
}

func (w *Worker) increment(ctx context.Context, metricType string, log *zap.Logger) {
	if err := w.counter.Increment(ctx, metricType, 1); err != nil {
		log.Error("Failed to increment metric",
			zap.String("metric", metricType),
			zap.Error(err),
		)
	}
}

func (w *Worker) observePending(ctx context.Context) {
	n, err := w.store.PendingCount(ctx)
	if err != nil {
		w.logger.Warn("Failed to count pending queue items", zap.Error(err))
		return
	}
	metrics.QueuePending.Set(float64(n))
}
