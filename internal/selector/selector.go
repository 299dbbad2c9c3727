// Package selector computes the candidate recipient set for a notification
// rule. Each trigger type maps to one read-only filter over current entity
// state; nothing here mutates.
package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/khamis1992/rental-notify/internal/model"
)

// insuranceRenewalWindow is how far ahead expiring policies are matched.
const insuranceRenewalWindow = 30 * 24 * time.Hour

// Source is the read side of the entity store, one query per trigger type.
type Source interface {
	// WelcomeCandidates: customers created after since with the welcome
	// flag still unset.
	WelcomeCandidates(ctx context.Context, since time.Time) ([]model.Recipient, error)
	// ContractConfirmationCandidates: customers on an active lease with the
	// confirmation flag still unset.
	ContractConfirmationCandidates(ctx context.Context) ([]model.Recipient, error)
	// PaymentReminderCandidates: customers with a pending installment due
	// inside [from, to].
	PaymentReminderCandidates(ctx context.Context, from, to time.Time) ([]model.Recipient, error)
	// LatePaymentCandidates: customers with a pending installment already
	// past due at now.
	LatePaymentCandidates(ctx context.Context, now time.Time) ([]model.Recipient, error)
	// InsuranceRenewalCandidates: customers on vehicles whose insurance
	// ends inside [from, to].
	InsuranceRenewalCandidates(ctx context.Context, from, to time.Time) ([]model.Recipient, error)
	// LegalNoticeCandidates: customers with an open legal case in
	// pending_reminder status.
	LegalNoticeCandidates(ctx context.Context) ([]model.Recipient, error)
}

type Selector struct {
	source Source
}

func New(source Source) *Selector {
	return &Selector{source: source}
}

// Select returns the recipients the rule currently matches. An empty slice
// is a normal outcome; an error means the underlying query failed and the
// caller should skip this rule for the run.
func (s *Selector) Select(ctx context.Context, rule model.NotificationRule, now time.Time) ([]model.Recipient, error) {
	switch rule.TriggerType {
	case model.TriggerWelcome:
		return s.source.WelcomeCandidates(ctx, now.Add(-24*time.Hour))

	case model.TriggerContractConfirmation:
		return s.source.ContractConfirmationCandidates(ctx)

	case model.TriggerPaymentReminder:
		if rule.TimingType != model.TimingBefore {
			// Only advance reminders are defined for this trigger.
			return nil, nil
		}
		to := now.AddDate(0, 0, rule.TimingValue)
		return s.source.PaymentReminderCandidates(ctx, now, to)

	case model.TriggerLatePayment:
		return s.source.LatePaymentCandidates(ctx, now)

	case model.TriggerInsuranceRenewal:
		return s.source.InsuranceRenewalCandidates(ctx, now, now.Add(insuranceRenewalWindow))

	case model.TriggerLegalNotice:
		return s.source.LegalNoticeCandidates(ctx)

	default:
		return nil, fmt.Errorf("unknown trigger type: %q", rule.TriggerType)
	}
}
