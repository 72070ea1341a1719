// internal/cloud/backoff.go
package cloud

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// NewBackoff returns the reconnect schedule: initial, doubled after every
// failure, capped at max. No jitter.
func NewBackoff(initial, max time.Duration) *backoff.ExponentialBackOff {
	if initial <= 0 {
		initial = time.Second
	}
	if max < initial {
		max = initial
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// retryForever are the retry options for session loops: no elapsed-time or
// attempt limit, only ctx ends the loop.
func retryForever(b backoff.BackOff, notify backoff.Notify) []backoff.RetryOption {
	return []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	}
}
