package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/khamis1992/rental-notify/internal/model"
	"github.com/khamis1992/rental-notify/internal/render"
)

type fixture struct {
	rules       *fakeRules
	templates   *fakeTemplates
	selector    *fakeSelector
	guard       *fakeGuard
	bundles     *fakeBundles
	attachments *fakeAttachments
	flags       *fakeFlags
	logs        *fakeLogs
	counter     *fakeCounter
	mailer      *fakeMailer
	proc        *Processor
}

func newFixture(rules ...model.NotificationRule) *fixture {
	f := &fixture{
		rules:       &fakeRules{rules: rules},
		templates:   &fakeTemplates{},
		selector:    &fakeSelector{byRule: map[int64][]model.Recipient{}, errFor: map[int64]error{}},
		guard:       newFakeGuard(),
		bundles:     &fakeBundles{bundle: render.Bundle{"customer": {"full_name": "Ahmed"}}},
		attachments: &fakeAttachments{},
		flags:       &fakeFlags{},
		logs:        &fakeLogs{},
		counter:     newFakeCounter(),
		mailer:      &fakeMailer{errFor: map[string]error{}},
	}
	f.proc = New(
		f.rules, f.templates, f.selector, f.guard, f.bundles, f.attachments,
		f.flags, f.logs, f.counter, f.mailer, "noreply@rental.example", zap.NewNop(),
	)
	return f
}

func welcomeRule(id int64) model.NotificationRule {
	return model.NotificationRule{ID: id, TriggerType: model.TriggerWelcome, TemplateID: 1, IsActive: true}
}

func recipient(id int64, email string) model.Recipient {
	return model.Recipient{ID: id, Email: email, FullName: "Ahmed"}
}

func TestProcessSendsAndRecords(t *testing.T) {
	f := newFixture(welcomeRule(1))
	f.selector.byRule[1] = []model.Recipient{recipient(10, "a@example.com")}

	res := f.proc.Process(context.Background(), time.Now())

	if res.Processed != 1 || res.Sent != 1 || res.Failed != 0 || res.Skipped != 0 {
		t.Fatalf("Process() = %+v", res)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("mailer got %d messages, want 1", len(f.mailer.sent))
	}
	if len(f.logs.entries) != 1 || f.logs.entries[0].Status != model.LogStatusSent {
		t.Errorf("log entries = %+v", f.logs.entries)
	}
	if f.logs.entries[0].MessageID != "msg-1" {
		t.Errorf("log message_id = %q", f.logs.entries[0].MessageID)
	}
	if f.counter.counts[model.MetricSuccessfulSent] != 1 {
		t.Errorf("successful_sent = %d, want 1", f.counter.counts[model.MetricSuccessfulSent])
	}
	if len(f.flags.welcome) != 1 || f.flags.welcome[0] != 10 {
		t.Errorf("welcome flags = %v", f.flags.welcome)
	}
}

func TestProcessDedupSkips(t *testing.T) {
	f := newFixture(welcomeRule(1))
	f.selector.byRule[1] = []model.Recipient{recipient(10, "a@example.com")}
	f.guard.notified[guardKey(1, 10)] = true

	res := f.proc.Process(context.Background(), time.Now())

	if res.Skipped != 1 || res.Sent != 0 {
		t.Fatalf("Process() = %+v", res)
	}
	if len(f.mailer.sent) != 0 {
		t.Errorf("deduped recipient was sent to: %+v", f.mailer.sent)
	}
	if len(f.logs.entries) != 0 {
		t.Errorf("deduped recipient produced a log entry: %+v", f.logs.entries)
	}
}

// A second run over the same state must not re-send: the first run marks the
// pair and the guard suppresses it afterwards, whatever the first outcome was.
func TestProcessSecondRunDeduped(t *testing.T) {
	f := newFixture(welcomeRule(1))
	f.selector.byRule[1] = []model.Recipient{recipient(10, "a@example.com")}

	first := f.proc.Process(context.Background(), time.Now())
	second := f.proc.Process(context.Background(), time.Now())

	if first.Sent != 1 {
		t.Fatalf("first run = %+v", first)
	}
	if second.Sent != 0 || second.Skipped != 1 {
		t.Fatalf("second run = %+v", second)
	}
	if len(f.mailer.sent) != 1 {
		t.Errorf("mailer got %d messages across two runs, want 1", len(f.mailer.sent))
	}
}

func TestProcessFailedSendStillDeduped(t *testing.T) {
	f := newFixture(welcomeRule(1))
	f.selector.byRule[1] = []model.Recipient{recipient(10, "a@example.com")}
	f.mailer.errFor["a@example.com"] = errors.New("smtp 550")

	first := f.proc.Process(context.Background(), time.Now())
	if first.Failed != 1 {
		t.Fatalf("first run = %+v", first)
	}
	if len(f.logs.entries) != 1 || f.logs.entries[0].Status != model.LogStatusFailed {
		t.Fatalf("log entries = %+v", f.logs.entries)
	}
	if f.logs.entries[0].ErrorMessage == "" {
		t.Error("failed log entry has no error message")
	}
	if f.counter.counts[model.MetricFailedSent] != 1 {
		t.Errorf("failed_sent = %d, want 1", f.counter.counts[model.MetricFailedSent])
	}
	if len(f.flags.welcome) != 0 {
		t.Errorf("completion flag set on failed send: %v", f.flags.welcome)
	}

	// The failed attempt still suppresses the pair within the window.
	second := f.proc.Process(context.Background(), time.Now())
	if second.Skipped != 1 || second.Failed != 0 {
		t.Fatalf("second run = %+v", second)
	}
}

func TestProcessRuleIsolation(t *testing.T) {
	f := newFixture(welcomeRule(1), welcomeRule(2))
	f.selector.errFor[1] = errors.New("query failed")
	f.selector.byRule[2] = []model.Recipient{recipient(20, "b@example.com")}

	res := f.proc.Process(context.Background(), time.Now())

	if res.Processed != 2 {
		t.Errorf("Processed = %d, want 2", res.Processed)
	}
	if res.Sent != 1 {
		t.Errorf("Sent = %d, want 1 (rule 2 must still run)", res.Sent)
	}
	if len(f.selector.calls) != 2 {
		t.Errorf("selector calls = %v, want both rules", f.selector.calls)
	}
}

func TestProcessRecipientIsolation(t *testing.T) {
	f := newFixture(welcomeRule(1))
	f.selector.byRule[1] = []model.Recipient{
		recipient(10, "bad@example.com"),
		recipient(11, "good@example.com"),
	}
	f.mailer.errFor["bad@example.com"] = errors.New("mailbox unavailable")

	res := f.proc.Process(context.Background(), time.Now())

	if res.Failed != 1 || res.Sent != 1 {
		t.Fatalf("Process() = %+v", res)
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].To != "good@example.com" {
		t.Errorf("sent = %+v", f.mailer.sent)
	}
}

func TestProcessAttachmentFailureSwallowed(t *testing.T) {
	f := newFixture(model.NotificationRule{
		ID: 1, TriggerType: model.TriggerContractConfirmation, TemplateID: 1, IsActive: true,
	})
	f.selector.byRule[1] = []model.Recipient{recipient(10, "a@example.com")}
	f.attachments.err = errors.New("storage unavailable")

	res := f.proc.Process(context.Background(), time.Now())

	if res.Sent != 1 {
		t.Fatalf("Process() = %+v, want send despite attachment failure", res)
	}
	if len(f.mailer.sent[0].Attachments) != 0 {
		t.Errorf("attachments = %+v, want empty", f.mailer.sent[0].Attachments)
	}
	if len(f.flags.confirmation) != 1 {
		t.Errorf("confirmation flags = %v", f.flags.confirmation)
	}
}

func TestProcessBundleFailureFallsBack(t *testing.T) {
	f := newFixture(welcomeRule(1))
	f.templates.templates = map[int64]*model.Template{
		1: {ID: 1, Subject: "Welcome {{customer.full_name}}", Content: "Hello {{customer.full_name}}"},
	}
	f.selector.byRule[1] = []model.Recipient{recipient(10, "a@example.com")}
	f.bundles.err = errors.New("join failed")

	res := f.proc.Process(context.Background(), time.Now())

	if res.Sent != 1 {
		t.Fatalf("Process() = %+v", res)
	}
	if got := f.mailer.sent[0].HTML; got != "Hello Ahmed" {
		t.Errorf("rendered body = %q, want minimal-bundle render", got)
	}
}

func TestProcessTemplateFailureSkipsRule(t *testing.T) {
	f := newFixture(welcomeRule(1))
	f.templates.err = errors.New("template missing")
	f.selector.byRule[1] = []model.Recipient{recipient(10, "a@example.com")}

	res := f.proc.Process(context.Background(), time.Now())

	if res.Sent != 0 || res.Failed != 0 {
		t.Fatalf("Process() = %+v", res)
	}
	if len(f.selector.calls) != 0 {
		t.Errorf("selector consulted for rule with missing template")
	}
}

func TestProcessRuleSourceFailure(t *testing.T) {
	f := newFixture()
	f.rules.err = errors.New("db down")
	res := f.proc.Process(context.Background(), time.Now())
	if res.Processed != 0 {
		t.Errorf("Process() = %+v", res)
	}
}

func TestProcessLogAppendFailureDoesNotAbort(t *testing.T) {
	f := newFixture(welcomeRule(1))
	f.selector.byRule[1] = []model.Recipient{
		recipient(10, "a@example.com"),
		recipient(11, "b@example.com"),
	}
	f.logs.err = errors.New("insert failed")

	res := f.proc.Process(context.Background(), time.Now())
	if res.Sent != 2 {
		t.Fatalf("Process() = %+v, want both sends despite log failures", res)
	}
}
