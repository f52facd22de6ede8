// Package retry provides a bounded exponential backoff helper for calls to
// external generation back-ends.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy controls how many times an operation runs and how long to wait between
// attempts. Delay doubles each attempt starting from BaseDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Retryable marks errors worth retrying. Errors that don't implement it, or that
// report false, fail the operation immediately.
type Retryable interface {
	Retryable() bool
}

// Do runs op up to MaxAttempts times. It stops early when op succeeds, when the
// error is not transient, or when the context is done. The last error is returned.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) || attempt == attempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return lastErr
}

func isRetryable(err error) bool {
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}
