package selector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/khamis1992/rental-notify/internal/model"
)

type fakeSource struct {
	recipients []model.Recipient
	err        error

	welcomeSince time.Time
	reminderFrom time.Time
	reminderTo   time.Time
	lateNow      time.Time
	insuranceTo  time.Time
	calls        []string
}

func (f *fakeSource) WelcomeCandidates(ctx context.Context, since time.Time) ([]model.Recipient, error) {
	f.calls = append(f.calls, "welcome")
	f.welcomeSince = since
	return f.recipients, f.err
}

func (f *fakeSource) ContractConfirmationCandidates(ctx context.Context) ([]model.Recipient, error) {
	f.calls = append(f.calls, "contract_confirmation")
	return f.recipients, f.err
}

func (f *fakeSource) PaymentReminderCandidates(ctx context.Context, from, to time.Time) ([]model.Recipient, error) {
	f.calls = append(f.calls, "payment_reminder")
	f.reminderFrom, f.reminderTo = from, to
	return f.recipients, f.err
}

func (f *fakeSource) LatePaymentCandidates(ctx context.Context, now time.Time) ([]model.Recipient, error) {
	f.calls = append(f.calls, "late_payment")
	f.lateNow = now
	return f.recipients, f.err
}

func (f *fakeSource) InsuranceRenewalCandidates(ctx context.Context, from, to time.Time) ([]model.Recipient, error) {
	f.calls = append(f.calls, "insurance_renewal")
	f.insuranceTo = to
	return f.recipients, f.err
}

func (f *fakeSource) LegalNoticeCandidates(ctx context.Context) ([]model.Recipient, error) {
	f.calls = append(f.calls, "legal_notice")
	return f.recipients, f.err
}

func rule(trigger model.TriggerType) model.NotificationRule {
	return model.NotificationRule{ID: 1, TriggerType: trigger, IsActive: true}
}

func TestSelectDispatch(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		rule     model.NotificationRule
		wantCall string
	}{
		{"welcome", rule(model.TriggerWelcome), "welcome"},
		{"contract confirmation", rule(model.TriggerContractConfirmation), "contract_confirmation"},
		{"late payment", rule(model.TriggerLatePayment), "late_payment"},
		{"insurance renewal", rule(model.TriggerInsuranceRenewal), "insurance_renewal"},
		{"legal notice", rule(model.TriggerLegalNotice), "legal_notice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{recipients: []model.Recipient{{ID: 10}}}
			got, err := New(src).Select(context.Background(), tt.rule, now)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if len(got) != 1 || got[0].ID != 10 {
				t.Errorf("Select() = %v", got)
			}
			if len(src.calls) != 1 || src.calls[0] != tt.wantCall {
				t.Errorf("dispatched to %v, want [%s]", src.calls, tt.wantCall)
			}
		})
	}
}

func TestSelectWelcomeWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{}
	if _, err := New(src).Select(context.Background(), rule(model.TriggerWelcome), now); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if want := now.Add(-24 * time.Hour); !src.welcomeSince.Equal(want) {
		t.Errorf("welcome since = %v, want %v", src.welcomeSince, want)
	}
}

func TestSelectPaymentReminderTiming(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := rule(model.TriggerPaymentReminder)
	r.TimingType = model.TimingBefore
	r.TimingValue = 3

	src := &fakeSource{}
	if _, err := New(src).Select(context.Background(), r, now); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if !src.reminderFrom.Equal(now) {
		t.Errorf("reminder from = %v, want %v", src.reminderFrom, now)
	}
	if want := now.AddDate(0, 0, 3); !src.reminderTo.Equal(want) {
		t.Errorf("reminder to = %v, want %v", src.reminderTo, want)
	}
}

func TestSelectPaymentReminderWrongTiming(t *testing.T) {
	r := rule(model.TriggerPaymentReminder)
	r.TimingType = model.TimingAfter

	src := &fakeSource{recipients: []model.Recipient{{ID: 1}}}
	got, err := New(src).Select(context.Background(), r, time.Now())
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if got != nil {
		t.Errorf("Select() = %v, want nil for non-before timing", got)
	}
	if len(src.calls) != 0 {
		t.Errorf("source queried for non-before payment reminder: %v", src.calls)
	}
}

func TestSelectInsuranceRenewalWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{}
	if _, err := New(src).Select(context.Background(), rule(model.TriggerInsuranceRenewal), now); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if want := now.Add(30 * 24 * time.Hour); !src.insuranceTo.Equal(want) {
		t.Errorf("insurance to = %v, want %v", src.insuranceTo, want)
	}
}

func TestSelectQueryError(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	_, err := New(src).Select(context.Background(), rule(model.TriggerLegalNotice), time.Now())
	if err == nil {
		t.Fatal("Select() error = nil, want query error")
	}
}

func TestSelectUnknownTrigger(t *testing.T) {
	_, err := New(&fakeSource{}).Select(context.Background(), rule("made_up"), time.Now())
	if err == nil {
		t.Fatal("Select() error = nil, want unknown trigger error")
	}
}

func TestSelectEmptyMatch(t *testing.T) {
	src := &fakeSource{}
	got, err := New(src).Select(context.Background(), rule(model.TriggerWelcome), time.Now())
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Select() = %v, want empty", got)
	}
}
