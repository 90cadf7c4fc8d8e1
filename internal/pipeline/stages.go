package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"reface/internal/logging"
	"reface/internal/pricing"
	"reface/internal/project"
	"reface/internal/services"
	"reface/internal/services/gemini"
)

// StartProject begins a new run. Only one run may be active per document; a
// second submission while one is in flight is rejected.
func (o *Orchestrator) StartProject(ctx context.Context, req StartRequest) (string, error) {
	if strings.TrimSpace(req.Description) == "" {
		return "", services.Wrap(services.ErrValidation, "idle", "start", "description is required", nil)
	}
	if len(req.Screenshots) == 0 && strings.TrimSpace(req.SourceURL) == "" {
		return "", services.Wrap(services.ErrValidation, "idle", "start", "a source url or screenshots are required", nil)
	}
	mode := req.Mode
	if mode == "" {
		mode = project.ModeFull
	}

	o.mu.Lock()
	if o.state != project.StateIdle {
		o.mu.Unlock()
		return "", services.Wrap(services.ErrValidation, string(o.state), "start", "a run is already active", nil)
	}
	o.generation++
	gen := o.generation
	projectID := project.DeriveProjectID(req.SourceURL, time.Now())
	o.doc = project.SetStart(project.NewDocument(), projectID, req.Description, mode, req.SourceURL, req.TargetURL, req.Screenshots)
	o.doc.CreatedAt = time.Now().UTC()
	o.state = project.StateExtractingData
	o.viewed = project.StateExtractingData
	o.notifyLocked()
	o.mu.Unlock()

	o.logger.Info("run started",
		logging.String(logging.FieldProjectID, projectID),
		logging.String("mode", string(mode)))
	if err := o.notifier.NotifyRunStarted(ctx, projectID, req.Description); err != nil {
		o.logger.Warn("start notification not delivered", logging.Error(err))
	}

	go o.runCaptureAndExtraction(gen, req)
	return projectID, nil
}

// Approve accepts the reviewed plan and advances into generation. CODE_ONLY
// projects skip straight to code.
func (o *Orchestrator) Approve(ctx context.Context) error {
	o.mu.Lock()
	if o.state != project.StatePlanReview {
		state := o.state
		o.mu.Unlock()
		return services.Wrap(services.ErrValidation, string(state), "approve", "no plan awaiting review", nil)
	}
	gen := o.generation
	missingPlan := o.doc.DesignSystem == nil || len(o.doc.Sections) == 0
	mode := o.doc.Mode
	o.mu.Unlock()

	if missingPlan {
		err := services.Wrap(services.ErrValidation, "plan-review", "approve", "plan is missing design system or sections", nil)
		o.fatalReset(gen, "plan-review", err)
		return err
	}

	if mode == project.ModeCodeOnly {
		if !o.transition(gen, project.StateGeneratingCode) {
			return nil
		}
		go o.runCodeStage(gen)
		return nil
	}
	if !o.transition(gen, project.StateGeneratingImages) {
		return nil
	}
	go o.runImageStage(gen)
	return nil
}

// GenerateCode is the user trigger out of the image stage into code
// generation.
func (o *Orchestrator) GenerateCode(ctx context.Context) error {
	o.mu.Lock()
	if o.state != project.StateGeneratingImages {
		state := o.state
		o.mu.Unlock()
		return services.Wrap(services.ErrValidation, string(state), "generate", "image generation is not active", nil)
	}
	gen := o.generation
	missingPlan := o.doc.DesignSystem == nil
	o.mu.Unlock()

	if missingPlan {
		err := services.Wrap(services.ErrValidation, "generating-images", "generate", "design system is missing", nil)
		o.fatalReset(gen, "generating-images", err)
		return err
	}
	if !o.transition(gen, project.StateGeneratingCode) {
		return nil
	}
	go o.runCodeStage(gen)
	return nil
}

// Reset clears the document and returns to idle from any state. In-flight
// work from the abandoned run keeps running but its results are discarded.
func (o *Orchestrator) Reset(ctx context.Context) {
	o.mu.Lock()
	projectID := o.doc.ProjectID
	o.generation++
	o.doc = project.NewDocument()
	o.state = project.StateIdle
	o.viewed = project.StateIdle
	o.notifyLocked()
	o.mu.Unlock()

	if projectID != "" {
		o.logger.Info("project reset", logging.String(logging.FieldProjectID, projectID))
	}
}

// runCaptureAndExtraction performs stage-entry captures and the extraction
// call. Source capture failure is fatal; target capture is best-effort.
func (o *Orchestrator) runCaptureAndExtraction(gen uint64, req StartRequest) {
	screenshots := req.Screenshots
	if len(screenshots) == 0 {
		callCtx, cancel := o.callCtx()
		shots, err := o.capture.Capture(callCtx, req.SourceURL)
		cancel()
		if err != nil {
			o.fatalReset(gen, "extracting", err)
			return
		}
		screenshots = shots
		if !o.apply(gen, func(d project.Document) project.Document {
			out := d.Clone()
			out.SourceScreenshots = append([]string(nil), shots...)
			return out
		}) {
			return
		}
	}

	if strings.TrimSpace(req.TargetURL) != "" {
		callCtx, cancel := o.callCtx()
		shots, err := o.capture.Capture(callCtx, req.TargetURL)
		cancel()
		if err != nil {
			o.logger.Warn("target design capture failed, continuing without it",
				logging.String("target_url", req.TargetURL),
				logging.Error(err))
		} else if !o.apply(gen, func(d project.Document) project.Document {
			return project.SetTargetScreenshots(d, shots)
		}) {
			return
		}
	}

	o.runExtraction(gen, screenshots, req.SourceURL)
}

func (o *Orchestrator) runExtraction(gen uint64, screenshots []string, sourceURL string) {
	callCtx, cancel := o.callCtx()
	extracted, usage, err := o.gen.Extract(callCtx, screenshots, sourceURL)
	cancel()
	if err != nil {
		o.fatalReset(gen, "extracting", err)
		return
	}
	if !o.apply(gen, func(d project.Document) project.Document {
		return project.AddCost(project.SetExtracted(d, extracted), pricing.CalculateCost(usage))
	}) {
		return
	}
	if !o.transition(gen, project.StateAnalyzing) {
		return
	}
	o.runAnalysis(gen)
}

func (o *Orchestrator) runAnalysis(gen uint64) {
	snap := o.Snapshot()
	if snap.Document.Extracted == nil {
		o.fatalReset(gen, "analyzing", services.Wrap(services.ErrValidation, "analyzing", "entry", "extracted data is missing", nil))
		return
	}

	callCtx, cancel := o.callCtx()
	ds, sections, usage, err := o.gen.Analyze(callCtx, gemini.AnalyzeRequest{
		Screenshots:       snap.Document.SourceScreenshots,
		TargetScreenshots: snap.Document.TargetScreenshots,
		Description:       snap.Document.UserDescription,
		Extracted:         *snap.Document.Extracted,
		URLContext:        snap.Document.SourceURL,
	})
	cancel()
	if err != nil {
		o.fatalReset(gen, "analyzing", err)
		return
	}
	if !o.apply(gen, func(d project.Document) project.Document {
		return project.AddCost(project.SetPlan(d, ds, sections), pricing.CalculateCost(usage))
	}) {
		return
	}
	if !o.transition(gen, project.StatePlanReview) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.notifier.NotifyPlanReady(ctx, snap.Document.ProjectID, len(sections)); err != nil {
		o.logger.Warn("plan notification not delivered", logging.Error(err))
	}
}

// runImageStage fans out one concept image per section. Each completion is
// applied as an {id, patch} pair through the reducer; one section's failure
// never blocks its siblings. The stage then waits for the user's generate
// trigger.
func (o *Orchestrator) runImageStage(gen uint64) {
	snap := o.Snapshot()
	if snap.Document.DesignSystem == nil {
		o.fatalReset(gen, "generating-images", services.Wrap(services.ErrValidation, "generating-images", "entry", "design system is missing", nil))
		return
	}
	ds := *snap.Document.DesignSystem

	var wg sync.WaitGroup
	for _, section := range snap.Document.Sections {
		wg.Add(1)
		go func(section project.Section) {
			defer wg.Done()
			callCtx, cancel := o.callCtx()
			defer cancel()
			uri, usage, err := o.gen.GenerateSectionImage(callCtx, section, ds)
			if err != nil {
				o.logger.Warn("section image generation failed",
					logging.String(logging.FieldProjectID, snap.Document.ProjectID),
					logging.String(logging.FieldSectionID, section.ID),
					logging.Error(err))
				return
			}
			o.apply(gen, func(d project.Document) project.Document {
				return project.AddCost(project.SetSectionImage(d, section.ID, uri), pricing.CalculateCost(usage))
			})
		}(section)
	}
	wg.Wait()

	o.logger.Info("section images settled",
		logging.String(logging.FieldProjectID, snap.Document.ProjectID),
		logging.Int("sections", len(snap.Document.Sections)))
	o.persist(o.Snapshot(), "")
}

// runCodeStage generates content images (FULL mode) and section code, both as
// per-section fan-outs, then chains into preview rendering.
func (o *Orchestrator) runCodeStage(gen uint64) {
	snap := o.Snapshot()
	if snap.Document.DesignSystem == nil || snap.Document.Extracted == nil {
		o.fatalReset(gen, "generating-code", services.Wrap(services.ErrValidation, "generating-code", "entry", "plan context is missing", nil))
		return
	}
	ds := *snap.Document.DesignSystem

	if snap.Document.Mode == project.ModeFull {
		count := o.cfg.Pipeline.ContentImagesPerSection
		var wg sync.WaitGroup
		for _, section := range snap.Document.Sections {
			wg.Add(1)
			go func(section project.Section) {
				defer wg.Done()
				o.generateContentImages(gen, snap.Document.ProjectID, section, ds, count)
			}(section)
		}
		wg.Wait()
	}

	// Re-read so code generation sees the persisted content image refs.
	snap = o.Snapshot()
	if snap.Document.DesignSystem == nil || snap.Document.Extracted == nil {
		return
	}

	var wg sync.WaitGroup
	for _, section := range snap.Document.Sections {
		wg.Add(1)
		go func(section project.Section) {
			defer wg.Done()
			callCtx, cancel := o.callCtx()
			defer cancel()
			code, usage, err := o.gen.GenerateSectionCode(callCtx, gemini.CodeRequest{
				Section:           section,
				DesignSystem:      ds,
				ContentImageRefs:  snap.Document.ContentImages[section.ID],
				SourceScreenshots: snap.Document.SourceScreenshots,
				TargetScreenshots: snap.Document.TargetScreenshots,
				Extracted:         *snap.Document.Extracted,
				Description:       snap.Document.UserDescription,
			})
			if err != nil {
				o.logger.Warn("section code generation failed",
					logging.String(logging.FieldProjectID, snap.Document.ProjectID),
					logging.String(logging.FieldSectionID, section.ID),
					logging.Error(err))
				return
			}
			o.apply(gen, func(d project.Document) project.Document {
				return project.AddCost(project.SetSectionCode(d, section.ID, code), pricing.CalculateCost(usage))
			})
		}(section)
	}
	wg.Wait()

	if !o.transition(gen, project.StateRenderingPreview) {
		return
	}
	o.runPreviewStage(gen)
}

// generateContentImages produces and persists supporting images for one
// section. Persistence failures are isolated per image.
func (o *Orchestrator) generateContentImages(gen uint64, projectID string, section project.Section, ds project.DesignSystem, count int) {
	callCtx, cancel := o.callCtx()
	images, usage, err := o.gen.GenerateContentImages(callCtx, section, ds, count)
	cancel()
	if err != nil {
		o.logger.Warn("content image generation failed",
			logging.String(logging.FieldProjectID, projectID),
			logging.String(logging.FieldSectionID, section.ID),
			logging.Error(err))
		return
	}

	refs := make([]string, 0, len(images))
	for _, image := range images {
		saveCtx, cancel := o.callCtx()
		ref, err := o.images.Save(saveCtx, image, contentFilename(), projectID)
		cancel()
		if err != nil {
			o.logger.Warn("content image save failed",
				logging.String(logging.FieldProjectID, projectID),
				logging.String(logging.FieldSectionID, section.ID),
				logging.Error(err))
			continue
		}
		refs = append(refs, ref)
	}

	o.apply(gen, func(d project.Document) project.Document {
		out := d
		if len(refs) > 0 {
			out = project.SetContentImages(out, section.ID, refs)
		}
		return project.AddCost(out, pricing.CalculateCost(usage))
	})
}

// runPreviewStage renders each generated section off-screen. Rendering is a
// refinement: per-section failures skip that screenshot and the stage always
// chains into review.
func (o *Orchestrator) runPreviewStage(gen uint64) {
	snap := o.Snapshot()
	if snap.Document.DesignSystem == nil || snap.Document.Extracted == nil {
		o.fatalReset(gen, "rendering-preview", services.Wrap(services.ErrValidation, "rendering-preview", "entry", "plan context is missing", nil))
		return
	}

	for _, section := range snap.Document.Sections {
		if section.GeneratedCode == "" {
			continue
		}
		callCtx, cancel := o.callCtx()
		shot, err := o.capture.Render(callCtx, section.GeneratedCode)
		cancel()
		if err != nil {
			o.logger.Warn("preview render failed",
				logging.String(logging.FieldProjectID, snap.Document.ProjectID),
				logging.String(logging.FieldSectionID, section.ID),
				logging.Error(err))
			continue
		}
		o.apply(gen, func(d project.Document) project.Document {
			return project.AddPreviewScreenshot(d, project.PreviewScreenshot{SectionID: section.ID, DataURI: shot})
		})
	}

	if !o.transition(gen, project.StateReviewingCode) {
		return
	}
	o.runReviewStage(gen)
}

// runReviewStage asks for a verdict over the previews. Review is advisory:
// its failure completes the run rather than failing it.
func (o *Orchestrator) runReviewStage(gen uint64) {
	snap := o.Snapshot()
	if snap.Document.DesignSystem == nil || snap.Document.Extracted == nil {
		o.complete(gen, true, services.Wrap(services.ErrValidation, "reviewing-code", "entry", "plan context is missing", nil))
		return
	}

	callCtx, cancel := o.callCtx()
	review, usage, err := o.gen.ReviewCode(callCtx, gemini.ReviewRequest{
		PreviewShots: snap.Document.PreviewShots,
		Sections:     snap.Document.Sections,
		DesignSystem: *snap.Document.DesignSystem,
		Extracted:    *snap.Document.Extracted,
		Description:  snap.Document.UserDescription,
	})
	cancel()
	if err != nil {
		o.logger.Warn("code review failed, completing with partial results",
			logging.String(logging.FieldProjectID, snap.Document.ProjectID),
			logging.Error(err))
		o.complete(gen, true, err)
		return
	}
	if !o.apply(gen, func(d project.Document) project.Document {
		return project.AddCost(project.SetReview(d, review), pricing.CalculateCost(usage))
	}) {
		return
	}

	if !review.Passed && len(review.Fixes) > 0 {
		if !o.transition(gen, project.StateApplyingFixes) {
			return
		}
		o.runFixStage(gen, review.Fixes)
		return
	}
	o.complete(gen, false, nil)
}

// runFixStage applies reviewer fixes one at a time. Fix order follows the
// review; per-fix failures are isolated.
func (o *Orchestrator) runFixStage(gen uint64, fixes []project.SuggestedFix) {
	for _, fix := range fixes {
		snap := o.Snapshot()
		if snap.Document.DesignSystem == nil {
			break
		}
		section, ok := snap.Document.SectionByID(fix.SectionID)
		if !ok || section.GeneratedCode == "" {
			o.logger.Warn("fix targets section without code",
				logging.String(logging.FieldProjectID, snap.Document.ProjectID),
				logging.String(logging.FieldSectionID, fix.SectionID))
			continue
		}

		callCtx, cancel := o.callCtx()
		code, usage, err := o.gen.ApplyFix(callCtx, gemini.FixRequest{
			Section:      section,
			Issue:        fix.Issue,
			Suggestion:   fix.Suggestion,
			DesignSystem: *snap.Document.DesignSystem,
		})
		cancel()
		if err != nil {
			o.logger.Warn("fix application failed",
				logging.String(logging.FieldProjectID, snap.Document.ProjectID),
				logging.String(logging.FieldSectionID, fix.SectionID),
				logging.Error(err))
			continue
		}
		o.apply(gen, func(d project.Document) project.Document {
			return project.AddCost(project.SetSectionCode(d, fix.SectionID, code), pricing.CalculateCost(usage))
		})
	}
	o.complete(gen, false, nil)
}

// EditSectionImage regenerates one section's concept image from a user
// instruction, retrying when the model answers with text instead of pixels.
func (o *Orchestrator) EditSectionImage(ctx context.Context, sectionID, instruction string) error {
	o.mu.Lock()
	if o.state != project.StatePlanReview && o.state != project.StateGeneratingImages {
		state := o.state
		o.mu.Unlock()
		return services.Wrap(services.ErrValidation, string(state), "edit-image", "image editing is not available in this state", nil)
	}
	gen := o.generation
	section, ok := o.doc.SectionByID(sectionID)
	o.mu.Unlock()

	if !ok {
		return services.Wrap(services.ErrValidation, "plan-review", "edit-image", "unknown section", nil)
	}
	if section.GeneratedImageURL == "" {
		return services.Wrap(services.ErrValidation, "plan-review", "edit-image", "section has no image to edit", nil)
	}
	if strings.TrimSpace(instruction) == "" {
		return services.Wrap(services.ErrValidation, "plan-review", "edit-image", "instruction is required", nil)
	}

	policy := services.RetryPolicy{
		MaxAttempts: o.cfg.Pipeline.ImageEditMaxAttempts,
		Retryable: func(err error) bool {
			return errors.Is(err, gemini.ErrTextResponse)
		},
	}
	var (
		uri   string
		usage pricing.Usage
	)
	err := services.Retry(ctx, policy, func(ctx context.Context, attempt int) error {
		callCtx, cancel := o.callCtx()
		defer cancel()
		var callErr error
		uri, usage, callErr = o.gen.EditSectionImage(callCtx, section.GeneratedImageURL, instruction)
		return callErr
	})
	if err != nil {
		return err
	}

	o.apply(gen, func(d project.Document) project.Document {
		return project.AddCost(project.SetSectionImage(d, sectionID, uri), pricing.CalculateCost(usage))
	})
	return nil
}

// contentFilename names a persisted content image.
func contentFilename() string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("content-%d-%s.png", time.Now().UnixMilli(), hex.EncodeToString(suffix))
}
