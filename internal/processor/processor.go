package processor

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

// Result summarizes one processing run.
type Result struct {
	Processed int `json:"processed"` // rules evaluated
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"` // dedup suppressions
}

type Processor struct {
	rules       RuleSource
	templates   TemplateSource
	selector    RecipientSelector
	guard       Guard
	bundles     BundleSource
	attachments AttachmentSource
	flags       FlagStore
	logs        LogSink
	counter     Counter
	mailer      mailer.Mailer
	from        string
	sendTimeout time.Duration
	logger      *zap.Logger
}

func New(
	rules RuleSource,
	templates TemplateSource,
	sel RecipientSelector,
	guard Guard,
	bundles BundleSource,
	attachments AttachmentSource,
	flags FlagStore,
	logs LogSink,
	counter Counter,
	m mailer.Mailer,
	from string,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		rules:       rules,
		templates:   templates,
		selector:    sel,
		guard:       guard,
		bundles:     bundles,
		attachments: attachments,
		flags:       flags,
		logs:        logs,
		counter:     counter,
		mailer:      m,
		from:        from,
		sendTimeout: defaultSendTimeout,
		logger:      logger,
	}
}

// WithSendTimeout overrides the per-send timeout.
func (p *Processor) WithSendTimeout(d time.Duration) *Processor {
	p.sendTimeout = d
	return p
}

// Process runs every active rule once. A failure in one rule or for one
// recipient never aborts the rest of the run; sends in this path are
// fire-and-forget per run and get retried naturally on the next invocation
// while the recipient still matches and is not deduped.
func (p *Processor) Process(ctx context.Context, now time.Time) Result {
	start := time.Now()
	defer func() { metrics.RecordRuleRun(time.Since(start)) }()

	var res Result

	rules, err := p.rules.Active(ctx)
	if err != nil {
		p.logger.Error("Failed to load active rules", zap.Error(err))
		return res
	}

	for _, rule := range rules {
		res.Processed++
		p.processRule(ctx, rule, now, &res)
	}

	p.logger.Info("Rule processing run finished",
		zap.Int("processed", res.Processed),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	return res
}

func (p *Processor) processRule(ctx context.Context, rule model.NotificationRule, now time.Time, res *Result) {
	log := p.logger.With(
		zap.Int64("rule_id", rule.ID),
		zap.String("trigger", string(rule.TriggerType)),
	)

	tmpl, err := p.templates.ByID(ctx, rule.TemplateID)
	if err != nil {
		log.Error("Failed to resolve rule template, skipping rule", zap.Error(err))
		return
	}

	recipients, err := p.selector.Select(ctx, rule, now)
	if err != nil {
		log.Error("Recipient selection failed, skipping rule", zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		return
	}

	log.Debug("Rule matched recipients", zap.Int("count", len(recipients)))

	for _, r := range recipients {
		if p.guard.AlreadyNotified(ctx, rule.ID, r.ID) {
			res.Skipped++
			metrics.DedupSkippedTotal.Inc()
			continue
		}
		if p.sendToRecipient(ctx, rule, tmpl, r, log) {
			res.Sent++
		} else {
			res.Failed++
		}
	}
}

// sendToRecipient performs one immediate send and records the outcome.
// Returns true when the transport accepted the message.
func (p *Processor) sendToRecipient(ctx context.Context, rule model.NotificationRule, tmpl *model.Template, r model.Recipient, log *zap.Logger) bool {
	log = log.With(zap.Int64("recipient_id", r.ID))

	bundle, err := p.bundles.EntityBundle(ctx, r.ID)
	if err != nil {
		// Render on a bare customer projection rather than dropping the send.
		log.Warn("Entity bundle resolution failed, using minimal bundle", zap.Error(err))
		bundle = render.Bundle{
			"customer": {"full_name": r.FullName, "email": r.Email},
		}
	}

	attachments, err := p.attachments.Resolve(ctx, rule.TriggerType, r.ID)
	if err != nil {
		log.Warn("Attachment resolution failed, sending without attachments", zap.Error(err))
		attachments = nil
	}

	msg := &mailer.Message{
		From:        p.from,
		To:          r.Email,
		Subject:     render.Render(tmpl.Subject, bundle),
		HTML:        render.Render(tmpl.Content, bundle),
		Attachments: attachments,
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	messageID, sendErr := p.mailer.Send(sendCtx, msg)
	cancel()

	entry := &model.NotificationLog{
		RuleID:         rule.ID,
		TemplateID:     tmpl.ID,
		RecipientID:    r.ID,
		RecipientEmail: r.Email,
		CreatedAt:      time.Now(),
	}

	if sendErr != nil {
		log.Error("Notification send failed", zap.Error(sendErr))
		entry.Status = model.LogStatusFailed
		entry.ErrorMessage = sendErr.Error()
		p.record(ctx, entry, model.MetricFailedSent, log)
		metrics.RecordSend("rule", "failed")
		p.guard.MarkNotified(ctx, rule.ID, r.ID)
		return false
	}

	entry.Status = model.LogStatusSent
	entry.MessageID = messageID
	p.record(ctx, entry, model.MetricSuccessfulSent, log)
	metrics.RecordSend("rule", "sent")
	p.guard.MarkNotified(ctx, rule.ID, r.ID)
	p.setCompletionFlag(ctx, rule.TriggerType, r.ID, log)

	log.Info("Notification sent", zap.String("message_id", messageID))
	return true
}

// record appends the audit entry and bumps the persisted counter. Neither
// failure propagates: the send already happened.
func (p *Processor) record(ctx context.Context, entry *model.NotificationLog, metricType string, log *zap.Logger) {
	if err := p.logs.Append(ctx, entry); err != nil {
		log.Error("Failed to append notification log", zap.Error(err))
	}
	if err := p.counter.Increment(ctx, metricType, 1); err != nil {
		log.Error("Failed to increment metric",
			zap.String("metric", metricType),
			zap.Error(err),
		)
	}
}

// setCompletionFlag marks the one-shot triggers done so the recipient drops
// out of the candidate filter on the next run. Only set after a successful
// send.
func (p *Processor) setCompletionFlag(ctx context.Context, trigger model.TriggerType, recipientID int64, log *zap.Logger) {
	var err error
	switch trigger {
	case model.TriggerWelcome:
		err = p.flags.MarkWelcomeEmailSent(ctx, recipientID)
	case model.TriggerContractConfirmation:
		err = p.flags.MarkConfirmationEmailSent(ctx, recipientID)
	default:
		return
	}
	if err != nil {
		log.Error("Failed to set completion flag",
			zap.String("trigger", string(trigger)),
			zap.Error(err),
		)
	}
}
