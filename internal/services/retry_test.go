package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"reface/internal/services"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	policy := services.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}
	err := services.Retry(context.Background(), policy, func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 2 {
			return services.Wrap(services.ErrTransient, "stage", "op", "try again", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestRetryRespectsNonRetryable(t *testing.T) {
	calls := 0
	policy := services.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}
	err := services.Retry(context.Background(), policy, func(ctx context.Context, attempt int) error {
		calls++
		return services.Wrap(services.ErrValidation, "stage", "op", "bad payload", nil)
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	policy := services.RetryPolicy{MaxAttempts: 2, Delay: time.Millisecond}
	err := services.Retry(context.Background(), policy, func(ctx context.Context, attempt int) error {
		calls++
		return services.Wrap(services.ErrTransient, "stage", "op", "still failing", nil)
	})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestRetryCustomPredicate(t *testing.T) {
	marker := errors.New("text instead of image")
	calls := 0
	policy := services.RetryPolicy{
		MaxAttempts: 2,
		Delay:       time.Millisecond,
		Retryable:   func(err error) bool { return errors.Is(err, marker) },
	}
	err := services.Retry(context.Background(), policy, func(ctx context.Context, attempt int) error {
		calls++
		return marker
	})
	if !errors.Is(err, marker) {
		t.Fatalf("expected marker error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := services.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}
	err := services.Retry(ctx, policy, func(ctx context.Context, attempt int) error {
		t.Fatal("fn should not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
