package pricing_test

import (
	"math"
	"testing"

	"reface/internal/pricing"
)

func TestCalculateCostTextModel(t *testing.T) {
	cost := pricing.CalculateCost(pricing.Usage{
		Model:        pricing.ModelFlash,
		InputTokens:  1_000_000,
		OutputTokens: 1_000_000,
	})
	if math.Abs(cost-2.8) > 1e-9 {
		t.Fatalf("expected 2.8, got %v", cost)
	}
}

func TestCalculateCostImageModel(t *testing.T) {
	cost := pricing.CalculateCost(pricing.Usage{
		Model:        pricing.ModelProImage,
		InputTokens:  500_000,
		OutputImages: 2,
	})
	want := 1.0 + 2*0.134
	if math.Abs(cost-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, cost)
	}
}

func TestCalculateCostUnknownModelIsZero(t *testing.T) {
	cost := pricing.CalculateCost(pricing.Usage{
		Model:        "some-future-model",
		InputTokens:  10_000_000,
		OutputTokens: 10_000_000,
		OutputImages: 50,
	})
	if cost != 0 {
		t.Fatalf("unknown model should cost zero, got %v", cost)
	}
}

func TestEstimateTextTokens(t *testing.T) {
	cases := []struct {
		text string
		want int64
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
		{"https://example.com", 5},
	}
	for _, tc := range cases {
		if got := pricing.EstimateTextTokens(tc.text); got != tc.want {
			t.Errorf("EstimateTextTokens(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestEstimateImageTokens(t *testing.T) {
	if got := pricing.EstimateImageTokens(3); got != 3*258 {
		t.Fatalf("expected %d, got %d", 3*258, got)
	}
	if got := pricing.EstimateImageTokens(0); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestFormatCost(t *testing.T) {
	cases := []struct {
		cost float64
		want string
	}{
		{0, "$0.000"},
		{0.0004, "<$0.001"},
		{0.0015, "$0.002"},
		{1.5, "$1.500"},
	}
	for _, tc := range cases {
		if got := pricing.FormatCost(tc.cost); got != tc.want {
			t.Errorf("FormatCost(%v) = %q, want %q", tc.cost, got, tc.want)
		}
	}
}
