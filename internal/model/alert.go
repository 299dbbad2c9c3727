package model

import "time"

// SystemAlert is created by the health monitor when a check breaches a
// threshold. Resolution happens outside the pipeline.
type SystemAlert struct {
	ID        string // uuid
	Status    string // warning, critical
	Message   string
	Metrics   MetricsSnapshot
	Resolved  bool
	CreatedAt time.Time
}
