package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"reface/internal/config"
	"reface/internal/pipeline"
	"reface/internal/pricing"
	"reface/internal/project"
	"reface/internal/services"
	"reface/internal/services/gemini"
)

type stubGenerator struct {
	mu    sync.Mutex
	calls map[string]int

	extractFn      func(screenshots []string, urlContext string) (project.ExtractedData, pricing.Usage, error)
	analyzeFn      func(req gemini.AnalyzeRequest) (project.DesignSystem, []project.Section, pricing.Usage, error)
	sectionImageFn func(section project.Section) (string, pricing.Usage, error)
	editImageFn    func(imageDataURI, instruction string) (string, pricing.Usage, error)
	contentFn      func(section project.Section, count int) ([]string, pricing.Usage, error)
	codeFn         func(req gemini.CodeRequest) (string, pricing.Usage, error)
	reviewFn       func(req gemini.ReviewRequest) (project.ReviewResult, pricing.Usage, error)
	fixFn          func(req gemini.FixRequest) (string, pricing.Usage, error)
}

func newStubGenerator() *stubGenerator {
	return &stubGenerator{calls: map[string]int{}}
}

func (g *stubGenerator) record(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[name]++
}

func (g *stubGenerator) callCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func validExtracted() project.ExtractedData {
	return project.ExtractedData{
		Features:          []string{"newsletter signup"},
		DesignAnalysis:    json.RawMessage(`{"tone":"dated"}`),
		StructureAnalysis: json.RawMessage(`{"blocks":3}`),
	}
}

func twoSections() []project.Section {
	return []project.Section{
		{ID: "s1", Name: "Hero", Description: "headline", VisualPrompt: "bold hero"},
		{ID: "s2", Name: "Pricing", Description: "tiers", VisualPrompt: "pricing grid"},
	}
}

func testDesignSystem() project.DesignSystem {
	return project.DesignSystem{
		Palette:          []project.PaletteColor{{Hex: "#0f172a", Role: "background"}},
		Typography:       "Inter",
		StyleDescription: "clean and minimal",
	}
}

func (g *stubGenerator) Extract(_ context.Context, screenshots []string, urlContext string) (project.ExtractedData, pricing.Usage, error) {
	g.record("extract")
	if g.extractFn != nil {
		return g.extractFn(screenshots, urlContext)
	}
	return validExtracted(), pricing.Usage{Model: pricing.ModelFlash, InputTokens: 500, OutputTokens: 2000}, nil
}

func (g *stubGenerator) Analyze(_ context.Context, req gemini.AnalyzeRequest) (project.DesignSystem, []project.Section, pricing.Usage, error) {
	g.record("analyze")
	if g.analyzeFn != nil {
		return g.analyzeFn(req)
	}
	return testDesignSystem(), twoSections(), pricing.Usage{Model: pricing.ModelPro, InputTokens: 1000, OutputTokens: 3000}, nil
}

func (g *stubGenerator) GenerateSectionImage(_ context.Context, section project.Section, _ project.DesignSystem) (string, pricing.Usage, error) {
	g.record("section-image")
	if g.sectionImageFn != nil {
		return g.sectionImageFn(section)
	}
	return "data:image/png;base64,aW1n", pricing.Usage{Model: pricing.ModelProImage, InputTokens: 100, OutputImages: 1}, nil
}

func (g *stubGenerator) EditSectionImage(_ context.Context, imageDataURI, instruction string) (string, pricing.Usage, error) {
	g.record("edit-image")
	if g.editImageFn != nil {
		return g.editImageFn(imageDataURI, instruction)
	}
	return "data:image/png;base64,ZWRpdA==", pricing.Usage{Model: pricing.ModelProImage, InputTokens: 100, OutputImages: 1}, nil
}

func (g *stubGenerator) GenerateContentImages(_ context.Context, section project.Section, _ project.DesignSystem, count int) ([]string, pricing.Usage, error) {
	g.record("content-images")
	if g.contentFn != nil {
		return g.contentFn(section, count)
	}
	images := make([]string, count)
	for i := range images {
		images[i] = "data:image/png;base64,Y29udGVudA=="
	}
	return images, pricing.Usage{Model: pricing.ModelFlashImage, InputTokens: 50, OutputImages: int64(count)}, nil
}

func (g *stubGenerator) GenerateSectionCode(_ context.Context, req gemini.CodeRequest) (string, pricing.Usage, error) {
	g.record("section-code")
	if g.codeFn != nil {
		return g.codeFn(req)
	}
	return "<section>" + req.Section.Name + "</section>", pricing.Usage{Model: pricing.ModelPro, InputTokens: 2000, OutputTokens: 1500}, nil
}

func (g *stubGenerator) ReviewCode(_ context.Context, req gemini.ReviewRequest) (project.ReviewResult, pricing.Usage, error) {
	g.record("review")
	if g.reviewFn != nil {
		return g.reviewFn(req)
	}
	return project.ReviewResult{Passed: true, Feedback: "looks good"}, pricing.Usage{Model: pricing.ModelPro, InputTokens: 800, OutputTokens: 300}, nil
}

func (g *stubGenerator) ApplyFix(_ context.Context, req gemini.FixRequest) (string, pricing.Usage, error) {
	g.record("fix")
	if g.fixFn != nil {
		return g.fixFn(req)
	}
	return "<section>fixed " + req.Section.ID + "</section>", pricing.Usage{Model: pricing.ModelPro, InputTokens: 500, OutputTokens: 400}, nil
}

type stubCapture struct {
	mu        sync.Mutex
	captureFn func(url string) ([]string, error)
	renderFn  func(html string) (string, error)
	captured  []string
}

func (c *stubCapture) Capture(_ context.Context, url string) ([]string, error) {
	c.mu.Lock()
	c.captured = append(c.captured, url)
	c.mu.Unlock()
	if c.captureFn != nil {
		return c.captureFn(url)
	}
	return []string{"data:image/jpeg;base64,c2hvdA=="}, nil
}

func (c *stubCapture) Render(_ context.Context, html string) (string, error) {
	if c.renderFn != nil {
		return c.renderFn(html)
	}
	return "data:image/png;base64,cHJldmlldw==", nil
}

type stubImages struct {
	mu    sync.Mutex
	saves int
	fail  bool
}

func (s *stubImages) Save(_ context.Context, _, filename, projectID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return "", services.Wrap(services.ErrPersistence, "imagestore", "save", "disk full", nil)
	}
	s.saves++
	return "/generated-images/" + projectID + "/" + filename, nil
}

func (s *stubImages) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func newOrchestrator(t *testing.T, gen *stubGenerator, capSvc *stubCapture, images *stubImages) *pipeline.Orchestrator {
	t.Helper()
	cfg := config.Default()
	cfg.Pipeline.StageTimeoutSeconds = 5
	return pipeline.New(&cfg, pipeline.Deps{
		Generator: gen,
		Capture:   capSvc,
		Images:    images,
	})
}

func waitForState(t *testing.T, o *pipeline.Orchestrator, want project.State) pipeline.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := o.Snapshot()
		if snap.State == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, still %s", want, o.Snapshot().State)
	return pipeline.Snapshot{}
}

func waitFor(t *testing.T, description string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", description)
}

func startRequest() pipeline.StartRequest {
	return pipeline.StartRequest{
		Description: "modernize the homepage",
		Mode:        project.ModeFull,
		SourceURL:   "https://example.com",
		Screenshots: []string{"data:image/jpeg;base64,c291cmNl"},
	}
}

func TestFullRunReachesCompleted(t *testing.T) {
	gen := newStubGenerator()
	images := &stubImages{}
	o := newOrchestrator(t, gen, &stubCapture{}, images)

	projectID, err := o.StartProject(context.Background(), startRequest())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if projectID == "" {
		t.Fatal("expected a project id")
	}

	waitForState(t, o, project.StatePlanReview)
	if err := o.Approve(context.Background()); err != nil {
		t.Fatalf("approve: %v", err)
	}

	waitFor(t, "section images", func() bool {
		snap := o.Snapshot()
		for _, section := range snap.Document.Sections {
			if section.GeneratedImageURL == "" {
				return false
			}
		}
		return true
	})

	if err := o.GenerateCode(context.Background()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	snap := waitForState(t, o, project.StateCompleted)

	for _, section := range snap.Document.Sections {
		if section.GeneratedCode == "" {
			t.Errorf("section %s has no code", section.ID)
		}
	}
	if len(snap.Document.PreviewShots) != len(snap.Document.Sections) {
		t.Errorf("expected %d previews, got %d", len(snap.Document.Sections), len(snap.Document.PreviewShots))
	}
	if snap.Document.CodeReview == nil || !snap.Document.CodeReview.Passed {
		t.Error("expected a passing review verdict")
	}
	if images.saveCount() == 0 {
		t.Error("expected content images to be persisted")
	}
}

func TestSecondRunRejectedWhileActive(t *testing.T) {
	release := make(chan struct{})
	gen := newStubGenerator()
	gen.extractFn = func([]string, string) (project.ExtractedData, pricing.Usage, error) {
		<-release
		return validExtracted(), pricing.Usage{}, nil
	}
	o := newOrchestrator(t, gen, &stubCapture{}, &stubImages{})

	if _, err := o.StartProject(context.Background(), startRequest()); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := o.StartProject(context.Background(), startRequest())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for second run, got %v", err)
	}
	close(release)
	waitForState(t, o, project.StatePlanReview)
}

func TestSectionImageFailureIsIsolated(t *testing.T) {
	gen := newStubGenerator()
	gen.analyzeFn = func(gemini.AnalyzeRequest) (project.DesignSystem, []project.Section, pricing.Usage, error) {
		sections := []project.Section{
			{ID: "s1", Name: "Hero"},
			{ID: "s2", Name: "Features"},
			{ID: "s3", Name: "Footer"},
		}
		return testDesignSystem(), sections, pricing.Usage{}, nil
	}
	gen.sectionImageFn = func(section project.Section) (string, pricing.Usage, error) {
		if section.ID == "s2" {
			return "", pricing.Usage{}, services.Wrap(services.ErrGeneration, "generating-images", "section-image", "model refused", nil)
		}
		return "data:image/png;base64,aW1n", pricing.Usage{Model: pricing.ModelProImage, OutputImages: 1}, nil
	}
	o := newOrchestrator(t, gen, &stubCapture{}, &stubImages{})

	if _, err := o.StartProject(context.Background(), startRequest()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, o, project.StatePlanReview)
	if err := o.Approve(context.Background()); err != nil {
		t.Fatalf("approve: %v", err)
	}

	waitFor(t, "sibling images", func() bool {
		snap := o.Snapshot()
		s1, _ := snap.Document.SectionByID("s1")
		s3, _ := snap.Document.SectionByID("s3")
		return s1.GeneratedImageURL != "" && s3.GeneratedImageURL != ""
	})
	snap := o.Snapshot()
	if s2, _ := snap.Document.SectionByID("s2"); s2.GeneratedImageURL != "" {
		t.Error("failed section should have no image")
	}
	if snap.State != project.StateGeneratingImages {
		t.Errorf("stage should still be active, state %s", snap.State)
	}
}

func TestSectionCodeFailureIsIsolated(t *testing.T) {
	gen := newStubGenerator()
	gen.codeFn = func(req gemini.CodeRequest) (string, pricing.Usage, error) {
		if req.Section.ID == "s1" {
			return "", pricing.Usage{}, services.Wrap(services.ErrGeneration, "generating-code", "section-code", "model refused", nil)
		}
		return "<section>ok</section>", pricing.Usage{Model: pricing.ModelPro, OutputTokens: 100}, nil
	}
	o := newOrchestrator(t, gen, &stubCapture{}, &stubImages{})

	req := startRequest()
	req.Mode = project.ModeCodeOnly
	if _, err := o.StartProject(context.Background(), req); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, o, project.StatePlanReview)
	if err := o.Approve(context.Background()); err != nil {
		t.Fatalf("approve: %v", err)
	}
	snap := waitForState(t, o, project.StateCompleted)

	s1, _ := snap.Document.SectionByID("s1")
	s2, _ := snap.Document.SectionByID("s2")
	if s1.GeneratedCode != "" {
		t.Error("failed section should have no code")
	}
	if s2.GeneratedCode == "" {
		t.Error("sibling section should have code")
	}
}

func TestCostSumsSuccessfulCallsOnly(t *testing.T) {
	extractUsage := pricing.Usage{Model: pricing.ModelFlash, InputTokens: 700, OutputTokens: 2000}
	analyzeUsage := pricing.Usage{Model: pricing.ModelPro, InputTokens: 1500, OutputTokens: 2500}
	codeUsage := pricing.Usage{Model: pricing.ModelPro, InputTokens: 1000, OutputTokens: 900}
	reviewUsage := pricing.Usage{Model: pricing.ModelPro, InputTokens: 400, OutputTokens: 150}

	gen := newStubGenerator()
	gen.extractFn = func([]string, string) (project.ExtractedData, pricing.Usage, error) {
		return validExtracted(), extractUsage, nil
	}
	gen.analyzeFn = func(gemini.AnalyzeRequest) (project.DesignSystem, []project.Section, pricing.Usage, error) {
		return testDesignSystem(), twoSections(), analyzeUsage, nil
	}
	gen.codeFn = func(req gemini.CodeRequest) (string, pricing.Usage, error) {
		if req.Section.ID == "s2" {
			return "", pricing.Usage{Model: pricing.ModelPro, InputTokens: 9999, OutputTokens: 9999},
				services.Wrap(services.ErrGeneration, "generating-code", "section-code", "model refused", nil)
		}
		return "<section>ok</section>", codeUsage, nil
	}
	gen.reviewFn = func(gemini.ReviewRequest) (project.ReviewResult, pricing.Usage, error) {
		return project.ReviewResult{Passed: true}, reviewUsage, nil
	}
	o := newOrchestrator(t, gen, &stubCapture{}, &stubImages{})

	req := startRequest()
	req.Mode = project.ModeCodeOnly
	if _, err := o.StartProject(context.Background(), req); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, o, project.StatePlanReview)
	if err := o.Approve(context.Background()); err != nil {
		t.Fatalf("approve: %v", err)
	}
	snap := waitForState(t, o, project.StateCompleted)

	want := pricing.CalculateCost(extractUsage) +
		pricing.CalculateCost(analyzeUsage) +
		pricing.CalculateCost(codeUsage) +
		pricing.CalculateCost(reviewUsage)
	if diff := snap.TotalCost - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected total cost %v, got %v", want, snap.TotalCost)
	}
}

func TestCodeOnlySkipsAllImageWork(t *testing.T) {
	gen := newStubGenerator()
	o := newOrchestrator(t, gen, &stubCapture{}, &stubImages{})

	req := startRequest()
	req.Mode = project.ModeCodeOnly
	if _, err := o.StartProject(context.Background(), req); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, o, project.StatePlanReview)
	if err := o.Approve(context.Background()); err != nil {
		t.Fatalf("approve: %v", err)
	}
	snap := waitForState(t, o, project.StateCompleted)

	if len(snap.Document.ContentImages) != 0 {
		t.Error("content images must stay empty in code-only mode")
	}
	for _, section := range snap.Document.Sections {
		if section.GeneratedImageURL != "" {
			t.Errorf("section %s should have no image", section.ID)
		}
		if section.GeneratedCode == "" {
			t.Errorf("section %s should have code", section.ID)
		}
	}
	if gen.callCount("section-image") != 0 || gen.callCount("content-images") != 0 {
		t.Error("image operations must not be called in code-only mode")
	}
}

func TestExtractionFailureResetsToEmptyDocument(t *testing.T) {
	gen := newStubGenerator()
	gen.extractFn = func([]string, string) (project.ExtractedData, pricing.Usage, error) {
		return project.ExtractedData{}, pricing.Usage{}, services.Wrap(services.ErrGeneration, "extracting", "extract", "malformed output", nil)
	}
	o := newOrchestrator(t, gen, &stubCapture{}, &stubImages{})

	if _, err := o.StartProject(context.Background(), startRequest()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, o, project.StateIdle)
	snap := o.Snapshot()
	if snap.TotalCost != 0 {
		t.Errorf("cost should be cleared, got %v", snap.TotalCost)
	}
	if snap.Document.ProjectID != "" || snap.Document.Extracted != nil || len(snap.Document.SourceScreenshots) != 0 {
		t.Errorf("document should be reset, got %+v", snap.Document)
	}
}

func TestAnalysisFailureResetsToEmptyDocument(t *testing.T) {
	gen := newStubGenerator()
	gen.analyzeFn = func(gemini.AnalyzeRequest) (project.DesignSystem, []project.Section, pricing.Usage, error) {
		return project.DesignSystem{}, nil, pricing.Usage{}, services.Wrap(services.ErrValidation, "analyzing", "analyze", "missing sections", nil)
	}
	o := newOrchestrator(t, gen, &stubCapture{}, &stubImages{})

	if _, err := o.StartProject(context.Background(), startRequest()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, o, project.StateIdle)
	snap := o.Snapshot()
	if snap.Document.ProjectID != "" || snap.Document.DesignSystem != nil {
		t.Errorf("document should be reset, got %+v", snap.Document)
	}
}

func TestResetDiscardsStrayCompletions(t *testing.T) {
	release := make(chan struct{})
	gen := newStubGenerator()
	gen.extractFn = func([]string, string) (project.ExtractedData, pricing.Usage, error) {
		<-release
		return validExtracted(), pricing.Usage{Model: pricing.ModelFlash, OutputTokens: 5000}, nil
	}
	o := newOrchestrator(t, gen, &stubCapture{}, &stubImages{})

	if _, err := o.StartProject(context.Background(), startRequest()); err != nil {
		t.Fatalf("start: %v", err)
	}
	o.Reset(context.Background())
	close(release)

	time.Sleep(100 * time.Millisecond)
	snap := o.Snapshot()
	if snap.State != project.StateIdle {
		t.Fatalf("expected idle after reset, got %s", snap.State)
	}
	if snap.Document.Extracted != nil || snap.TotalCost != 0 {
		t.Errorf("stray completion leaked into fresh document: %+v", snap.Document)
	}
}
