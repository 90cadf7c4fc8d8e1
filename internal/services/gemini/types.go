package gemini

import "reface/internal/project"

// AnalyzeRequest carries everything the analysis step sees.
type AnalyzeRequest struct {
	Screenshots       []string
	TargetScreenshots []string
	Description       string
	Extracted         project.ExtractedData
	URLContext        string
}

// CodeRequest carries the accumulated context for one section's code
// generation.
type CodeRequest struct {
	Section           project.Section
	DesignSystem      project.DesignSystem
	ContentImageRefs  []string
	SourceScreenshots []string
	TargetScreenshots []string
	Extracted         project.ExtractedData
	Description       string
}

// ReviewRequest carries the rendered previews and plan context for review.
type ReviewRequest struct {
	PreviewShots []project.PreviewScreenshot
	Sections     []project.Section
	DesignSystem project.DesignSystem
	Extracted    project.ExtractedData
	Description  string
}

// FixRequest targets one reviewer finding at one section.
type FixRequest struct {
	Section      project.Section
	Issue        string
	Suggestion   string
	DesignSystem project.DesignSystem
}
