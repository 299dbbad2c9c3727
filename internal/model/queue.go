package model

import "time"

// Queue item statuses. pending -> sent and pending -> failed are terminal;
// a retry keeps the item pending with a bumped retry_count.
const (
	QueueStatusPending = "pending"
	QueueStatusSent    = "sent"
	QueueStatusFailed  = "failed"
)

// QueueItem is a notification scheduled for future delivery, drained in
// batches by the queue worker.
type QueueItem struct {
	ID             int64
	TemplateID     int64
	RecipientEmail string
	ScheduledFor   time.Time
	Status         string
	RetryCount     int
	LastRetryAt    *time.Time
	ClaimedAt      *time.Time
	ProcessedAt    *time.Time
	ErrorMessage   string
	CreatedAt      time.Time
}
