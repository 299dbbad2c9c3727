package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khamis1992/rental-notify/internal/model"
)

// claimLease is how long a claim shields an item from other workers. A
// worker that dies mid-batch releases its items after this expires.
const claimLease = 2 * time.Minute

type QueueRepository struct {
	db *pgxpool.Pool
}

func NewQueueRepository(db *pgxpool.Pool) *QueueRepository {
	return &QueueRepository{db: db}
}

// Enqueue schedules a notification for future delivery.
func (r *QueueRepository) Enqueue(ctx context.Context, item *model.QueueItem) error {
	query := `
        INSERT INTO notification_queue (template_id, recipient_email, scheduled_for, status, retry_count)
        VALUES ($1, $2, $3, $4, 0)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		item.TemplateID,
		item.RecipientEmail,
		item.ScheduledFor,
		model.QueueStatusPending,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// ClaimDue atomically claims up to limit due pending items. The single
// statement with SKIP LOCKED guarantees two overlapping workers never claim
// the same row; claimed_at is only a lease marker and leaves the
// pending/sent/failed state machine untouched.
func (r *QueueRepository) ClaimDue(ctx context.Context, limit int, now time.Time) ([]model.QueueItem, error) {
	query := `
        WITH due AS (
            SELECT id
            FROM notification_queue
            WHERE status = $1
              AND scheduled_for <= $2
              AND (claimed_at IS NULL OR claimed_at < $3)
            ORDER BY scheduled_for
            LIMIT $4
            FOR UPDATE SKIP LOCKED
        )
        UPDATE notification_queue q
        SET claimed_at = $2
        FROM due
        WHERE q.id = due.id
        RETURNING q.id, q.template_id, q.recipient_email, q.scheduled_for, q.status,
                  q.retry_count, q.last_retry_at, q.claimed_at, q.processed_at,
                  COALESCE(q.error_message, ''), q.created_at
    `
	rows, err := r.db.Query(ctx, query,
		model.QueueStatusPending, now, now.Add(-claimLease), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due queue items: %w", err)
	}
	defer rows.Close()

	var items []model.QueueItem
	for rows.Next() {
		var item model.QueueItem
		if err := rows.Scan(
			&item.ID, &item.TemplateID, &item.RecipientEmail, &item.ScheduledFor,
			&item.Status, &item.RetryCount, &item.LastRetryAt, &item.ClaimedAt,
			&item.ProcessedAt, &item.ErrorMessage, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkSent moves a pending item to its sent terminal state. The status guard
// makes the transition a compare-and-set: a second worker's late update is a
// no-op.
func (r *QueueRepository) MarkSent(ctx context.Context, id int64, now time.Time) error {
	query := `
        UPDATE notification_queue
        SET status = $1, processed_at = $2, error_message = NULL
        WHERE id = $3 AND status = $4
    `
	_, err := r.db.Exec(ctx, query, model.QueueStatusSent, now, id, model.QueueStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark queue item %d sent: %w", id, err)
	}
	return nil
}

// MarkFailed moves a pending item to its failed terminal state after the
// retry ceiling.
func (r *QueueRepository) MarkFailed(ctx context.Context, id int64, retryCount int, errMsg string) error {
	query := `
        UPDATE notification_queue
        SET status = $1, retry_count = $2, error_message = $3
        WHERE id = $4 AND status = $5
    `
	_, err := r.db.Exec(ctx, query,
		model.QueueStatusFailed, retryCount, errMsg, id, model.QueueStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark queue item %d failed: %w", id, err)
	}
	return nil
}

// Reschedule pushes a pending item to its next backoff slot and releases the
// claim.
func (r *QueueRepository) Reschedule(ctx context.Context, id int64, retryCount int, scheduledFor, lastRetryAt time.Time, errMsg string) error {
	query := `
        UPDATE notification_queue
        SET scheduled_for = $1, retry_count = $2, last_retry_at = $3,
            error_message = $4, claimed_at = NULL
        WHERE id = $5 AND status = $6
    `
	_, err := r.db.Exec(ctx, query,
		scheduledFor, retryCount, lastRetryAt, errMsg, id, model.QueueStatusPending)
	if err != nil {
		return fmt.Errorf("failed to reschedule queue item %d: %w", id, err)
	}
	return nil
}

func (r *QueueRepository) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notification_queue WHERE status = $1`,
		model.QueueStatusPending,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending queue items: %w", err)
	}
	return n, nil
}
