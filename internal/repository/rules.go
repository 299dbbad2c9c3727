package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khamis1992/rental-notify/internal/model"
)

type RuleRepository struct {
	db *pgxpool.Pool
}

func NewRuleRepository(db *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{db: db}
}

// Active returns the rules the pipeline should evaluate this run.
func (r *RuleRepository) Active(ctx context.Context) ([]model.NotificationRule, error) {
	query := `
        SELECT id, name, trigger_type, template_id, timing_type, timing_value, is_active, created_at
        FROM notification_rules
        WHERE is_active = TRUE
        ORDER BY id
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active rules: %w", err)
	}
	defer rows.Close()

	var rules []model.NotificationRule
	for rows.Next() {
		var rule model.NotificationRule
		if err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.TriggerType,
			&rule.TemplateID,
			&rule.TimingType,
			&rule.TimingValue,
			&rule.IsActive,
			&rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// Save persists an operator-authored rule. Trigger and timing validation
// happens at the HTTP boundary before this is reached.
func (r *RuleRepository) Save(ctx context.Context, rule *model.NotificationRule) error {
	if rule.ID == 0 {
		query := `
            INSERT INTO notification_rules (name, trigger_type, template_id, timing_type, timing_value, is_active)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING id, created_at
        `
		return r.db.QueryRow(ctx, query,
			rule.Name, rule.TriggerType, rule.TemplateID,
			rule.TimingType, rule.TimingValue, rule.IsActive,
		).Scan(&rule.ID, &rule.CreatedAt)
	}

	query := `
        UPDATE notification_rules
        SET name = $1, trigger_type = $2, template_id = $3, timing_type = $4, timing_value = $5, is_active = $6
        WHERE id = $7
    `
	_, err := r.db.Exec(ctx, query,
		rule.Name, rule.TriggerType, rule.TemplateID,
		rule.TimingType, rule.TimingValue, rule.IsActive, rule.ID,
	)
	return err
}
