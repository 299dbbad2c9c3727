package queue

import "time"

// Backoff computes the delay before retry attempt n (1-based):
// min(base * 2^n, cap). Doubling with a ceiling keeps the schedule
// monotonically non-decreasing in n.
func Backoff(n int, base, cap time.Duration) time.Duration {
	if n < 0 {
		n = 0
	}
	d := base
	for i := 0; i < n; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	if d > cap {
		return cap
	}
	return d
}
