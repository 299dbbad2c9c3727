package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/khamis1992/rental-notify/internal/mailer"
	"github.com/khamis1992/rental-notify/internal/model"
	"github.com/khamis1992/rental-notify/internal/render"
)

type fakeRules struct {
	rules []model.NotificationRule
	err   error
}

func (f *fakeRules) Active(ctx context.Context) ([]model.NotificationRule, error) {
	return f.rules, f.err
}

type fakeTemplates struct {
	templates map[int64]*model.Template
	err       error
}

func (f *fakeTemplates) ByID(ctx context.Context, id int64) (*model.Template, error) {
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.templates[id]; ok {
		return t, nil
	}
	return &model.Template{ID: id, Subject: "subject", Content: "body"}, nil
}

type fakeSelector struct {
	byRule map[int64][]model.Recipient
	errFor map[int64]error
	calls  []int64
}

func (f *fakeSelector) Select(ctx context.Context, rule model.NotificationRule, now time.Time) ([]model.Recipient, error) {
	f.calls = append(f.calls, rule.ID)
	if err := f.errFor[rule.ID]; err != nil {
		return nil, err
	}
	return f.byRule[rule.ID], nil
}

type fakeGuard struct {
	notified map[string]bool
	marked   []string
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{notified: make(map[string]bool)}
}

func guardKey(ruleID, recipientID int64) string {
	return fmt.Sprintf("%d:%d", ruleID, recipientID)
}

func (f *fakeGuard) AlreadyNotified(ctx context.Context, ruleID, recipientID int64) bool {
	return f.notified[guardKey(ruleID, recipientID)]
}

func (f *fakeGuard) MarkNotified(ctx context.Context, ruleID, recipientID int64) {
	f.notified[guardKey(ruleID, recipientID)] = true
	f.marked = append(f.marked, guardKey(ruleID, recipientID))
}

type fakeBundles struct {
	bundle render.Bundle
	err    error
}

func (f *fakeBundles) EntityBundle(ctx context.Context, recipientID int64) (render.Bundle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bundle, nil
}

type fakeAttachments struct {
	attachments []mailer.Attachment
	err         error
}

func (f *fakeAttachments) Resolve(ctx context.Context, trigger model.TriggerType, recipientID int64) ([]mailer.Attachment, error) {
	return f.attachments, f.err
}

type fakeFlags struct {
	welcome      []int64
	confirmation []int64
	err          error
}

func (f *fakeFlags) MarkWelcomeEmailSent(ctx context.Context, recipientID int64) error {
	if f.err != nil {
		return f.err
	}
	f.welcome = append(f.welcome, recipientID)
	return nil
}

func (f *fakeFlags) MarkConfirmationEmailSent(ctx context.Context, recipientID int64) error {
	if f.err != nil {
		return f.err
	}
	f.confirmation = append(f.confirmation, recipientID)
	return nil
}

type fakeLogs struct {
	entries []model.NotificationLog
	err     error
}

func (f *fakeLogs) Append(ctx context.Context, entry *model.NotificationLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

type fakeCounter struct {
	counts map[string]int
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int)}
}

func (f *fakeCounter) Increment(ctx context.Context, metricType string, count int) error {
	if f.err != nil {
		return f.err
	}
	f.counts[metricType] += count
	return nil
}

type fakeMailer struct {
	sent      []mailer.Message
	err       error
	errFor    map[string]error // keyed by recipient email
	messageID string
}

func (f *fakeMailer) Send(ctx context.Context, msg *mailer.Message) (string, error) {
	if err := f.errFor[msg.To]; err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, *msg)
	if f.messageID != "" {
		return f.messageID, nil
	}
	return "msg-1", nil
}
