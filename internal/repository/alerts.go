package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khamis1992/rental-notify/internal/model"
)

type AlertRepository struct {
	db *pgxpool.Pool
}

func NewAlertRepository(db *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Insert(ctx context.Context, alert *model.SystemAlert) error {
	metrics, err := json.Marshal(alert.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode alert metrics: %w", err)
	}

	query := `
        INSERT INTO system_alerts (id, status, message, metrics, resolved, created_at)
        VALUES ($1, $2, $3, $4, FALSE, $5)
    `
	if _, err := r.db.Exec(ctx, query,
		alert.ID, alert.Status, alert.Message, metrics, alert.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert system alert: %w", err)
	}
	return nil
}

// ExistsRecent backs alert suppression: an unresolved alert with the same
// status inside the window means the operator was already told.
func (r *AlertRepository) ExistsRecent(ctx context.Context, status string, window time.Duration) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM system_alerts
            WHERE status = $1
              AND resolved = FALSE
              AND created_at >= $2
        )
    `
	var found bool
	if err := r.db.QueryRow(ctx, query, status, time.Now().Add(-window)).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to check recent alerts: %w", err)
	}
	return found, nil
}
