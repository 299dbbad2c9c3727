// Package processor orchestrates one rule-processing run: recipient
// selection, dedup, rendering, attachment resolution, sending and outcome
// recording.
package processor

import (
	"context"
	"time"

	"github.com/khamis1992/rental-notify/internal/mailer"
	"github.com/khamis1992/rental-notify/internal/model"
	"github.com/khamis1992/rental-notify/internal/render"
)

// RuleSource lists the active notification rules.
type RuleSource interface {
	Active(ctx context.Context) ([]model.NotificationRule, error)
}

// TemplateSource resolves a rule's template.
type TemplateSource interface {
	ByID(ctx context.Context, id int64) (*model.Template, error)
}

// RecipientSelector computes the candidate set for one rule.
type RecipientSelector interface {
	Select(ctx context.Context, rule model.NotificationRule, now time.Time) ([]model.Recipient, error)
}

// Guard is the trailing-window dedup check.
type Guard interface {
	AlreadyNotified(ctx context.Context, ruleID, recipientID int64) bool
	MarkNotified(ctx context.Context, ruleID, recipientID int64)
}

// BundleSource joins a recipient to its most recent agreement and vehicle.
type BundleSource interface {
	EntityBundle(ctx context.Context, recipientID int64) (render.Bundle, error)
}

// AttachmentSource resolves trigger-specific attachments. Failures here are
// swallowed by the processor: a send goes out with an empty attachment list
// rather than being blocked.
type AttachmentSource interface {
	Resolve(ctx context.Context, trigger model.TriggerType, recipientID int64) ([]mailer.Attachment, error)
}

// LogSink appends one audit record per send attempt.
type LogSink interface {
	Append(ctx context.Context, entry *model.NotificationLog) error
}

// FlagStore sets the one-shot completion flags that keep welcome and
// contract-confirmation sends idempotent across runs.
type FlagStore interface {
	MarkWelcomeEmailSent(ctx context.Context, recipientID int64) error
	MarkConfirmationEmailSent(ctx context.Context, recipientID int64) error
}

// Counter is the persisted atomic metric increment.
type Counter interface {
	Increment(ctx context.Context, metricType string, count int) error
}
