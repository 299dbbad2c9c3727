package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khamis1992/rental-notify/internal/model"
)

type NotificationLogRepository struct {
	db *pgxpool.Pool
}

func NewNotificationLogRepository(db *pgxpool.Pool) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// Append records one send attempt. The log is append-only.
func (r *NotificationLogRepository) Append(ctx context.Context, entry *model.NotificationLog) error {
	query := `
        INSERT INTO notification_logs
            (rule_id, template_id, recipient_id, recipient_email, status, message_id, error_message, created_at)
        VALUES (NULLIF($1, 0), $2, NULLIF($3, 0), $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
        RETURNING id
    `
	err := r.db.QueryRow(ctx, query,
		entry.RuleID,
		entry.TemplateID,
		entry.RecipientID,
		entry.RecipientEmail,
		entry.Status,
		entry.MessageID,
		entry.ErrorMessage,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append notification log: %w", err)
	}
	return nil
}

// ExistsRecent is the dedup lookup: any attempt for the pair inside the
// trailing window counts, whatever its status.
func (r *NotificationLogRepository) ExistsRecent(ctx context.Context, ruleID, recipientID int64, window time.Duration) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM notification_logs
            WHERE rule_id = $1
              AND recipient_id = $2
              AND created_at >= $3
        )
    `
	var found bool
	err := r.db.QueryRow(ctx, query, ruleID, recipientID, time.Now().Add(-window)).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to check notification log: %w", err)
	}
	return found, nil
}

// RecentFailureCount feeds the health monitor.
func (r *NotificationLogRepository) RecentFailureCount(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
        SELECT COUNT(*) FROM notification_logs
        WHERE status = $1 AND created_at >= $2
    `, model.LogStatusFailed, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent failures: %w", err)
	}
	return n, nil
}
