package worker

import (
	"math"
	"time"
)

// Policy decides whether and when a failed job runs again. Attempt numbers
// are 1-based: attempt 1 is the first execution.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	MaxDelay    time.Duration
}

// Exhausted reports whether attempt consumed the retry budget.
func (p Policy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}

// Delay returns the backoff before re-running a job that just failed its
// attempt-th execution: base * factor^(attempt-1), capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt-1)))
	if d > p.MaxDelay || d < 0 {
		return p.MaxDelay
	}
	return d
}
