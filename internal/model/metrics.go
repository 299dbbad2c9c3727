package model

import "time"

// Metric types accepted by the atomic increment operation.
const (
	MetricSuccessfulSent   = "successful_sent"
	MetricFailedSent       = "failed_sent"
	MetricRateLimitedCount = "rate_limited_count"
)

// MetricsSnapshot is the per-day aggregate of send outcomes. Mutated only
// through atomic increments, never read-modify-write.
type MetricsSnapshot struct {
	Date             time.Time
	TotalSent        int64
	SuccessfulSent   int64
	FailedSent       int64
	RateLimitedCount int64
	UpdatedAt        time.Time
}
