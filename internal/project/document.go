package project

import (
	"encoding/json"
	"time"
)

// Mode selects which stages of the pipeline run for a project.
type Mode string

const (
	// ModeFull generates section images and content images before code.
	ModeFull Mode = "full"
	// ModeCodeOnly skips all image generation and goes straight to code.
	ModeCodeOnly Mode = "code_only"
)

// PaletteColor is one entry of the design system color palette.
type PaletteColor struct {
	Hex  string `json:"hex"`
	Role string `json:"role"`
}

// DesignSystem is the color/typography/style contract shared by all sections.
type DesignSystem struct {
	Palette          []PaletteColor `json:"palette"`
	Typography       string         `json:"typography"`
	StyleDescription string         `json:"styleDescription"`
}

// ExtractedData holds the structured facts pulled from the source site.
// All three sub-records must be present before analysis may begin.
type ExtractedData struct {
	Features          []string        `json:"features"`
	DesignAnalysis    json.RawMessage `json:"designAnalysis"`
	StructureAnalysis json.RawMessage `json:"structureAnalysis"`
}

// Section is one structural block of the target page, tracked independently
// through image and code generation. Ordering in Document.Sections drives the
// final export order.
type Section struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	VisualPrompt      string `json:"visualPrompt"`
	GeneratedImageURL string `json:"generatedImageUrl,omitempty"`
	GeneratedCode     string `json:"generatedCode,omitempty"`
}

// SuggestedFix is one reviewer finding targeting a single section.
type SuggestedFix struct {
	SectionID  string `json:"sectionId"`
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion"`
}

// ReviewResult is the verdict of the code review stage.
type ReviewResult struct {
	Passed   bool           `json:"passedReview"`
	Feedback string         `json:"feedback"`
	Fixes    []SuggestedFix `json:"suggestedFixes"`
}

// PreviewScreenshot is a rendered capture of one section's generated code.
type PreviewScreenshot struct {
	SectionID string `json:"sectionId"`
	DataURI   string `json:"dataUri"`
}

// Document is the mutable aggregate threaded through the whole pipeline. It is
// owned exclusively by the orchestrator; everything else sees read-only copies.
type Document struct {
	ProjectID         string              `json:"projectId"`
	UserDescription   string              `json:"userDescription"`
	Mode              Mode                `json:"mode"`
	SourceURL         string              `json:"sourceUrl,omitempty"`
	TargetURL         string              `json:"targetUrl,omitempty"`
	SourceScreenshots []string            `json:"sourceScreenshots,omitempty"`
	TargetScreenshots []string            `json:"targetScreenshots,omitempty"`
	Extracted         *ExtractedData      `json:"extracted,omitempty"`
	DesignSystem      *DesignSystem       `json:"designSystem,omitempty"`
	Sections          []Section           `json:"sections,omitempty"`
	ContentImages     map[string][]string `json:"contentImages,omitempty"`
	PreviewShots      []PreviewScreenshot `json:"previewScreenshots,omitempty"`
	CodeReview        *ReviewResult       `json:"codeReview,omitempty"`
	TotalCost         float64             `json:"totalCost"`
	CreatedAt         time.Time           `json:"createdAt,omitempty"`
	UpdatedAt         time.Time           `json:"updatedAt,omitempty"`
}

// NewDocument returns the empty initial document.
func NewDocument() Document {
	return Document{Mode: ModeFull}
}

// Clone returns a deep copy so callers can hold snapshots without aliasing
// the orchestrator's working state.
func (d Document) Clone() Document {
	out := d
	out.SourceScreenshots = append([]string(nil), d.SourceScreenshots...)
	out.TargetScreenshots = append([]string(nil), d.TargetScreenshots...)
	out.Sections = append([]Section(nil), d.Sections...)
	out.PreviewShots = append([]PreviewScreenshot(nil), d.PreviewShots...)
	if d.Extracted != nil {
		extracted := *d.Extracted
		extracted.Features = append([]string(nil), d.Extracted.Features...)
		extracted.DesignAnalysis = append(json.RawMessage(nil), d.Extracted.DesignAnalysis...)
		extracted.StructureAnalysis = append(json.RawMessage(nil), d.Extracted.StructureAnalysis...)
		out.Extracted = &extracted
	}
	if d.DesignSystem != nil {
		ds := *d.DesignSystem
		ds.Palette = append([]PaletteColor(nil), d.DesignSystem.Palette...)
		out.DesignSystem = &ds
	}
	if d.ContentImages != nil {
		images := make(map[string][]string, len(d.ContentImages))
		for id, refs := range d.ContentImages {
			images[id] = append([]string(nil), refs...)
		}
		out.ContentImages = images
	}
	if d.CodeReview != nil {
		review := *d.CodeReview
		review.Fixes = append([]SuggestedFix(nil), d.CodeReview.Fixes...)
		out.CodeReview = &review
	}
	return out
}

// SectionIndex returns the position of a section by id, or -1.
func (d Document) SectionIndex(id string) int {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return i
		}
	}
	return -1
}

// SectionByID returns a copy of the section with the given id.
func (d Document) SectionByID(id string) (Section, bool) {
	if i := d.SectionIndex(id); i >= 0 {
		return d.Sections[i], true
	}
	return Section{}, false
}
