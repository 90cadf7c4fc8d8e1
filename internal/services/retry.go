package services

import (
	"context"
	"time"
)

// RetryPolicy bounds repeated attempts against an external collaborator.
// Retryable decides from the attempt's error whether another attempt is
// worthwhile; when nil, IsRetryable is used.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   func(error) bool
}

// Retry runs fn until it succeeds, the policy is exhausted, or the context is
// done. The delay doubles between attempts.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context, attempt int) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	delay := policy.Delay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts || !retryable(lastErr) {
			return lastErr
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}
