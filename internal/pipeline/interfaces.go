package pipeline

import (
	"context"

	"reface/internal/pricing"
	"reface/internal/project"
	"reface/internal/services/gemini"
)

// Generator is the generation service surface the orchestrator drives, one
// method per stage operation. The production implementation is
// services/gemini.Client.
type Generator interface {
	Extract(ctx context.Context, screenshots []string, urlContext string) (project.ExtractedData, pricing.Usage, error)
	Analyze(ctx context.Context, req gemini.AnalyzeRequest) (project.DesignSystem, []project.Section, pricing.Usage, error)
	GenerateSectionImage(ctx context.Context, section project.Section, ds project.DesignSystem) (string, pricing.Usage, error)
	EditSectionImage(ctx context.Context, imageDataURI, instruction string) (string, pricing.Usage, error)
	GenerateContentImages(ctx context.Context, section project.Section, ds project.DesignSystem, count int) ([]string, pricing.Usage, error)
	GenerateSectionCode(ctx context.Context, req gemini.CodeRequest) (string, pricing.Usage, error)
	ReviewCode(ctx context.Context, req gemini.ReviewRequest) (project.ReviewResult, pricing.Usage, error)
	ApplyFix(ctx context.Context, req gemini.FixRequest) (string, pricing.Usage, error)
}

// Capture is the screenshot service surface: live-site capture plus
// off-screen rendering of generated HTML.
type Capture interface {
	Capture(ctx context.Context, url string) ([]string, error)
	Render(ctx context.Context, html string) (string, error)
}

// ImageStore persists a base64 or data-URI image and returns its public
// reference.
type ImageStore interface {
	Save(ctx context.Context, base64Data, filename, projectID string) (string, error)
}

// Persister stores project records after transitions. project.Store satisfies
// this.
type Persister interface {
	Save(ctx context.Context, rec *project.Record) error
}

// Notifier pushes run lifecycle events. All methods are best-effort; errors
// are logged and never affect the run.
type Notifier interface {
	NotifyRunStarted(ctx context.Context, projectID, description string) error
	NotifyPlanReady(ctx context.Context, projectID string, sectionCount int) error
	NotifyRunCompleted(ctx context.Context, projectID string, totalCost float64) error
	NotifyRunFailed(ctx context.Context, projectID, stage string, cause error) error
}

type noopNotifier struct{}

func (noopNotifier) NotifyRunStarted(context.Context, string, string) error       { return nil }
func (noopNotifier) NotifyPlanReady(context.Context, string, int) error           { return nil }
func (noopNotifier) NotifyRunCompleted(context.Context, string, float64) error    { return nil }
func (noopNotifier) NotifyRunFailed(context.Context, string, string, error) error { return nil }
