package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khamis1992/rental-notify/internal/model"
)

// MetricsRepository owns the per-day send aggregates. All mutation goes
// through Increment, a single atomic statement, so two overlapping runs can
// never lose an update the way a read-modify-write would.
type MetricsRepository struct {
	db *pgxpool.Pool
}

func NewMetricsRepository(db *pgxpool.Pool) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// Increment bumps one counter for today's bucket. successful_sent and
// failed_sent also count toward total_sent; rate_limited_count does not,
// since the underlying attempt is already counted by its failure.
func (r *MetricsRepository) Increment(ctx context.Context, metricType string, count int) error {
	var column string
	switch metricType {
	case model.MetricSuccessfulSent:
		column = "successful_sent"
	case model.MetricFailedSent:
		column = "failed_sent"
	case model.MetricRateLimitedCount:
		column = "rate_limited_count"
	default:
		return fmt.Errorf("unknown metric type: %q", metricType)
	}

	totalDelta := count
	if metricType == model.MetricRateLimitedCount {
		totalDelta = 0
	}

	// Column names come from the switch above, never from input.
	query := fmt.Sprintf(`
        INSERT INTO notification_metrics (date, total_sent, %s, updated_at)
        VALUES (CURRENT_DATE, $1, $2, NOW())
        ON CONFLICT (date) DO UPDATE
        SET total_sent = notification_metrics.total_sent + EXCLUDED.total_sent,
            %s = notification_metrics.%s + EXCLUDED.%s,
            updated_at = NOW()
    `, column, column, column, column)

	if _, err := r.db.Exec(ctx, query, totalDelta, count); err != nil {
		return fmt.Errorf("failed to increment %s: %w", metricType, err)
	}
	return nil
}

// Latest returns the most recent bucket, or nil when nothing was recorded
// yet. Just after midnight this is yesterday's full bucket rather than an
// empty one for today.
func (r *MetricsRepository) Latest(ctx context.Context) (*model.MetricsSnapshot, error) {
	var s model.MetricsSnapshot
	err := r.db.QueryRow(ctx, `
        SELECT date, total_sent, successful_sent, failed_sent, rate_limited_count, updated_at
        FROM notification_metrics
        ORDER BY date DESC
        LIMIT 1
    `).Scan(
		&s.Date, &s.TotalSent, &s.SuccessfulSent, &s.FailedSent,
		&s.RateLimitedCount, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics snapshot: %w", err)
	}
	return &s, nil
}
