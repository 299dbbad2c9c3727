package model

import "time"

// Send outcomes recorded in the notification log.
const (
	LogStatusSent   = "sent"
	LogStatusFailed = "failed"
)

// NotificationLog is one append-only record per send attempt. It doubles as
// the audit trail and the dedup lookup source. RuleID is zero for queue-based
// sends, which are not rule-scoped.
type NotificationLog struct {
	ID             int64
	RuleID         int64
	TemplateID     int64
	RecipientID    int64
	RecipientEmail string
	Status         string
	MessageID      string
	ErrorMessage   string
	CreatedAt      time.Time
}
