package services_test

import (
	"errors"
	"fmt"
	"testing"

	"reface/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := fmt.Errorf("boom")
	err := services.Wrap(services.ErrGeneration, "analyzing", "analyze", "model call failed", base)
	if !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected marker to survive wrapping: %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause to survive wrapping: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "extracting", "extract", "missing fields", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if got := err.Error(); got != "validation error: extracting: extract: missing fields" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{services.Wrap(services.ErrValidation, "s", "op", "bad", nil), false},
		{services.Wrap(services.ErrConfiguration, "s", "op", "bad", nil), false},
		{services.Wrap(services.ErrTimeout, "s", "op", "slow", nil), true},
		{services.Wrap(services.ErrTransient, "s", "op", "flaky", nil), true},
		{errors.New("plain"), false},
	}
	for _, tc := range cases {
		if got := services.IsRetryable(tc.err); got != tc.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
