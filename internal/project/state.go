package project

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// State is the pipeline state machine position of a project.
type State string

const (
	StateIdle             State = "idle"
	StateExtractingData   State = "extracting_data"
	StateAnalyzing        State = "analyzing"
	StatePlanReview       State = "plan_review"
	StateGeneratingImages State = "generating_images"
	StateGeneratingCode   State = "generating_code"
	StateRenderingPreview State = "rendering_preview"
	StateReviewingCode    State = "reviewing_code"
	StateApplyingFixes    State = "applying_fixes"
	StateCompleted        State = "completed"
	StateError            State = "error"
)

var titleCaser = cases.Title(language.English)

// Label returns a human-facing form of the state name.
func (s State) Label() string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

// StatusMessage returns the progress line shown while a state is active.
func StatusMessage(s State) string {
	switch s {
	case StateIdle:
		return "Waiting for a project brief"
	case StateExtractingData:
		return "Reading the source site and extracting its facts"
	case StateAnalyzing:
		return "Drafting a design system and section plan"
	case StatePlanReview:
		return "Plan ready for review"
	case StateGeneratingImages:
		return "Generating a concept image for each section"
	case StateGeneratingCode:
		return "Writing code for each section"
	case StateRenderingPreview:
		return "Rendering previews of the generated sections"
	case StateReviewingCode:
		return "Reviewing the generated code"
	case StateApplyingFixes:
		return "Applying reviewer fixes"
	case StateCompleted:
		return "Redesign complete"
	case StateError:
		return "Run failed"
	default:
		return string(s)
	}
}

// Active reports whether the state represents an in-flight run.
func (s State) Active() bool {
	switch s {
	case StateIdle, StatePlanReview, StateCompleted, StateError:
		return false
	default:
		return true
	}
}
