// Package mailer abstracts the outbound email transport. The pipeline only
// ever sees the Mailer interface; the concrete transport is Resend behind a
// circuit breaker.
package mailer

import (
	"context"

	"github.com/khamis1992/rental-notify/pkg/circuitbreaker"
)

// Attachment is a file included with a message, either by URL or inline.
type Attachment struct {
	Filename string
	Path     string // remote URL, preferred when set
	Content  []byte
}

// Message is one outbound email.
type Message struct {
	From        string
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer sends a message and returns the transport's message ID. The caller
// supplies the timeout through ctx; a timed-out send is a normal failure.
type Mailer interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// BreakerMailer wraps a Mailer with a circuit breaker so a failing transport
// is backed off at the process level, independent of per-item retry state.
// Only transient failures count against the breaker: a rejected address says
// nothing about transport health.
type BreakerMailer struct {
	inner   Mailer
	breaker *circuitbreaker.CircuitBreaker
}

func WithBreaker(inner Mailer, cb *circuitbreaker.CircuitBreaker) *BreakerMailer {
	return &BreakerMailer{inner: inner, breaker: cb}
}

func (m *BreakerMailer) Send(ctx context.Context, msg *Message) (string, error) {
	var id string
	var sendErr error
	err := m.breaker.Execute(func() error {
		id, sendErr = m.inner.Send(ctx, msg)
		if sendErr != nil && !IsTransient(sendErr) {
			return nil
		}
		return sendErr
	})
	if err != nil {
		return "", err
	}
	return id, sendErr
}
