package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ResendMailer sends email through the Resend API.
type ResendMailer struct {
	client *resend.Client
	logger *zap.Logger
}

func NewResendMailer(apiKey string, logger *zap.Logger) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		logger: logger,
	}
}

func (m *ResendMailer) Send(ctx context.Context, msg *Message) (string, error) {
	if msg.To == "" {
		return "", fmt.Errorf("no recipient specified")
	}

	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	for _, a := range msg.Attachments {
		att := &resend.Attachment{Filename: a.Filename}
		if a.Path != "" {
			att.Path = a.Path
		} else {
			att.Content = a.Content
		}
		params.Attachments = append(params.Attachments, att)
	}

	result, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		m.logger.Error("Resend send failed",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return "", fmt.Errorf("resend send failed: %w", err)
	}

	m.logger.Debug("Email sent via Resend",
		zap.String("message_id", result.Id),
		zap.String("to", msg.To),
	)
	return result.Id, nil
}
