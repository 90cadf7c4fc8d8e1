// Package pricing estimates the monetary cost of generation service calls
// from a static per-model rate table. Token counts are local approximations,
// not measured values reported by the service.
package pricing

import (
	"fmt"
	"math"
)

// Model identifiers for the generation service.
const (
	ModelFlash      = "gemini-2.5-flash"
	ModelFlashImage = "gemini-2.5-flash-image"
	ModelPro        = "gemini-3-pro-preview"
	ModelProImage   = "gemini-3-pro-image-preview"
)

// ImageTokenEstimate is the flat token count charged per input image.
const ImageTokenEstimate = 258

// Usage describes one generation call for cost estimation.
type Usage struct {
	Model        string
	InputTokens  int64
	OutputTokens int64
	OutputImages int64
}

// rate holds USD pricing per model. InputPerMillion and OutputPerMillion are
// per 1M tokens; PerImage is per output image. OutputPerMillion and PerImage
// are mutually exclusive per model.
type rate struct {
	InputPerMillion  float64
	OutputPerMillion float64
	PerImage         float64
}

var rates = map[string]rate{
	ModelFlash:      {InputPerMillion: 0.3, OutputPerMillion: 2.5},
	ModelFlashImage: {InputPerMillion: 0.3, PerImage: 0.039},
	ModelPro:        {InputPerMillion: 2.0, OutputPerMillion: 12.0},
	ModelProImage:   {InputPerMillion: 2.0, PerImage: 0.134},
}

// CalculateCost returns the estimated USD cost of a call. Unknown models cost
// zero so pricing gaps never fail a run.
func CalculateCost(usage Usage) float64 {
	r, ok := rates[usage.Model]
	if !ok {
		return 0
	}
	cost := float64(usage.InputTokens) / 1_000_000 * r.InputPerMillion
	cost += float64(usage.OutputTokens) / 1_000_000 * r.OutputPerMillion
	cost += float64(usage.OutputImages) * r.PerImage
	if cost < 0 {
		return 0
	}
	return cost
}

// EstimateTextTokens approximates the token count of a text payload as
// ceil(len/4).
func EstimateTextTokens(text string) int64 {
	if text == "" {
		return 0
	}
	return int64(math.Ceil(float64(len(text)) / 4))
}

// EstimateImageTokens approximates the token count of n input images.
func EstimateImageTokens(n int) int64 {
	if n <= 0 {
		return 0
	}
	return int64(n) * ImageTokenEstimate
}

// FormatCost renders a cost for display. Zero renders as the floor display,
// amounts under a tenth of a cent render as a less-than marker.
func FormatCost(cost float64) string {
	if cost <= 0 {
		return "$0.000"
	}
	if cost < 0.001 {
		return "<$0.001"
	}
	return fmt.Sprintf("$%.3f", cost)
}
