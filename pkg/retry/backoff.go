package retry

import "time"

// Backoff computes the delay before the next retry attempt.
type Backoff interface {
	Next(attempt int) time.Duration
}

// ExponentialBackoff doubles the delay per attempt, capped at Max.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Next returns the delay for the given attempt (1-based).
func (b ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := b.Base
	if base <= 0 {
		base = time.Minute
	}
	// Cap the shift so large attempt counts cannot overflow.
	if attempt > 20 {
		attempt = 20
	}
	delay := base << (attempt - 1)
	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}

// DefaultBackoff retries a failed arrival after one minute, doubling up to half an hour.
func DefaultBackoff() Backoff {
	return ExponentialBackoff{
		Base: time.Minute,
		Max:  30 * time.Minute,
	}
}
