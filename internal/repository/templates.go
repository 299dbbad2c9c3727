package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khamis1992/rental-notify/internal/model"
	"github.com/khamis1992/rental-notify/internal/render"
)

type TemplateRepository struct {
	db *pgxpool.Pool
}

func NewTemplateRepository(db *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) ByID(ctx context.Context, id int64) (*model.Template, error) {
	query := `
        SELECT id, name, subject, content, variable_mappings, is_active, created_at, updated_at
        FROM notification_templates
        WHERE id = $1
    `
	var (
		t        model.Template
		mappings []byte
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Subject,
		&t.Content,
		&mappings,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get template %d: %w", id, err)
	}
	if len(mappings) > 0 {
		if err := json.Unmarshal(mappings, &t.VariableMappings); err != nil {
			return nil, fmt.Errorf("failed to decode variable mappings: %w", err)
		}
	}
	return &t, nil
}

// Save persists an operator-authored template. The body passes the strict
// placeholder validation here even though delivery-time rendering is lenient.
func (r *TemplateRepository) Save(ctx context.Context, t *model.Template) error {
	if err := render.Validate(t.Content); err != nil {
		return err
	}
	if err := render.Validate(t.Subject); err != nil {
		return err
	}

	mappings, err := json.Marshal(t.VariableMappings)
	if err != nil {
		return fmt.Errorf("failed to encode variable mappings: %w", err)
	}

	if t.ID == 0 {
		query := `
            INSERT INTO notification_templates (name, subject, content, variable_mappings, is_active)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING id, created_at, updated_at
        `
		return r.db.QueryRow(ctx, query, t.Name, t.Subject, t.Content, mappings, t.IsActive).
			Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	}

	query := `
        UPDATE notification_templates
        SET name = $1, subject = $2, content = $3, variable_mappings = $4, is_active = $5, updated_at = NOW()
        WHERE id = $6
    `
	_, err = r.db.Exec(ctx, query, t.Name, t.Subject, t.Content, mappings, t.IsActive, t.ID)
	return err
}

func (r *TemplateRepository) List(ctx context.Context) ([]model.Template, error) {
	query := `
        SELECT id, name, subject, content, variable_mappings, is_active, created_at, updated_at
        FROM notification_templates
        ORDER BY id
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []model.Template
	for rows.Next() {
		var (
			t        model.Template
			mappings []byte
		)
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Subject, &t.Content, &mappings,
			&t.IsActive, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		if len(mappings) > 0 {
			if err := json.Unmarshal(mappings, &t.VariableMappings); err != nil {
				return nil, fmt.Errorf("failed to decode variable mappings: %w", err)
			}
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}
