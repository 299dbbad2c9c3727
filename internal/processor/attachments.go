package processor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/khamis1992/rental-notify/internal/mailer"
	"github.com/khamis1992/rental-notify/internal/model"
)

// AttachmentStore is the read side used to build trigger-specific
// attachments.
type AttachmentStore interface {
	LatestAgreement(ctx context.Context, customerID int64) (*model.Agreement, error)
	PendingSchedule(ctx context.Context, customerID int64) ([]model.PaymentScheduleEntry, error)
	OpenLegalCase(ctx context.Context, customerID int64) (*model.LegalCase, error)
}

// AttachmentResolver maps a trigger type to the documents that accompany it:
// the signed contract for confirmations, the installment plan for payment
// mail, the case summary for legal notices.
type AttachmentResolver struct {
	store AttachmentStore
}

func NewAttachmentResolver(store AttachmentStore) *AttachmentResolver {
	return &AttachmentResolver{store: store}
}

func (r *AttachmentResolver) Resolve(ctx context.Context, trigger model.TriggerType, recipientID int64) ([]mailer.Attachment, error) {
	switch trigger {
	case model.TriggerContractConfirmation:
		agreement, err := r.store.LatestAgreement(ctx, recipientID)
		if err != nil {
			return nil, fmt.Errorf("resolve agreement document: %w", err)
		}
		if agreement.DocumentURL == "" {
			return nil, nil
		}
		return []mailer.Attachment{{
			Filename: fmt.Sprintf("agreement-%s.pdf", agreement.AgreementNumber),
			Path:     agreement.DocumentURL,
		}}, nil

	case model.TriggerPaymentReminder, model.TriggerLatePayment:
		entries, err := r.store.PendingSchedule(ctx, recipientID)
		if err != nil {
			return nil, fmt.Errorf("resolve payment schedule: %w", err)
		}
		if len(entries) == 0 {
			return nil, nil
		}
		return []mailer.Attachment{{
			Filename: "payment_schedule.csv",
			Content:  scheduleCSV(entries),
		}}, nil

	case model.TriggerLegalNotice:
		c, err := r.store.OpenLegalCase(ctx, recipientID)
		if err != nil {
			return nil, fmt.Errorf("resolve legal case: %w", err)
		}
		summary := fmt.Sprintf(
			"Case %d (%s)\nStatus: %s\nAmount owed: %.2f\n\n%s\n",
			c.ID, c.CaseType, c.Status, c.AmountOwed, c.Description,
		)
		return []mailer.Attachment{{
			Filename: "case_summary.txt",
			Content:  []byte(summary),
		}}, nil

	default:
		// welcome and insurance_renewal carry no attachments
		return nil, nil
	}
}

func scheduleCSV(entries []model.PaymentScheduleEntry) []byte {
	var buf bytes.Buffer
	buf.WriteString("due_date,amount,status\n")
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s,%.2f,%s\n", e.DueDate.Format("2006-01-02"), e.Amount, e.Status)
	}
	return buf.Bytes()
}
