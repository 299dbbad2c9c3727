package model

import (
	"fmt"
	"time"
)

// TriggerType identifies the business event a notification rule fires on.
type TriggerType string

const (
	TriggerWelcome              TriggerType = "welcome"
	TriggerContractConfirmation TriggerType = "contract_confirmation"
	TriggerPaymentReminder      TriggerType = "payment_reminder"
	TriggerLatePayment          TriggerType = "late_payment"
	TriggerInsuranceRenewal     TriggerType = "insurance_renewal"
	TriggerLegalNotice          TriggerType = "legal_notice"
)

// TimingType says how TimingValue relates to the trigger's reference date.
type TimingType string

const (
	TimingBefore TimingType = "before"
	TimingAfter  TimingType = "after"
	TimingOn     TimingType = "on"
)

// ParseTriggerType validates an operator-supplied trigger type string.
func ParseTriggerType(s string) (TriggerType, error) {
	switch t := TriggerType(s); t {
	case TriggerWelcome, TriggerContractConfirmation, TriggerPaymentReminder,
		TriggerLatePayment, TriggerInsuranceRenewal, TriggerLegalNotice:
		return t, nil
	}
	return "", fmt.Errorf("unknown trigger type: %q", s)
}

// NotificationRule is operator-authored matching config. Read-only to the
// pipeline.
type NotificationRule struct {
	ID          int64
	Name        string
	TriggerType TriggerType
	TemplateID  int64
	TimingType  TimingType
	TimingValue int // days, non-negative
	IsActive    bool
	CreatedAt   time.Time
}
