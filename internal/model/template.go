package model

import "time"

// Template is an email template with {{category.field}} placeholders.
// Immutable during a processing run.
type Template struct {
	ID      int64
	Name    string
	Subject string
	Content string
	// VariableMappings lists the placeholders the author declared valid,
	// keyed by category.
	VariableMappings map[string][]string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
