package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	genai "google.golang.org/genai"

	"reface/internal/config"
	"reface/internal/logging"
	"reface/internal/pricing"
	"reface/internal/project"
	"reface/internal/services"
)

// ErrTextResponse marks an image call that produced prose instead of pixels.
// Callers retry these under the bounded image-edit policy.
var ErrTextResponse = errors.New("model returned text instead of an image")

// Client adapts the Gemini API to the pipeline's stage operations.
type Client struct {
	cli    *genai.Client
	models config.Gemini
	logger *slog.Logger
}

// New builds a client from configuration. The API key comes from config or
// the GEMINI_API_KEY environment variable.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	key := cfg.GeminiAPIKey()
	if key == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gemini", "new", "api key is not configured", nil)
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gemini", "new", "create client", err)
	}
	return &Client{
		cli:    cli,
		models: cfg.Gemini,
		logger: logging.NewComponentLogger(logger, "gemini"),
	}, nil
}

// Extract pulls structured facts about the source site from its screenshots.
func (c *Client) Extract(ctx context.Context, screenshots []string, urlContext string) (project.ExtractedData, pricing.Usage, error) {
	parts, inputTokens, err := buildParts([]string{extractContext(urlContext)}, screenshots)
	if err != nil {
		return project.ExtractedData{}, pricing.Usage{}, services.Wrap(services.ErrValidation, "extracting", "extract", "encode screenshots", err)
	}

	text, usage, err := c.generateText(ctx, "extracting", "extract", c.models.ExtractionModel, parts, inputTokens, true)
	if err != nil {
		return project.ExtractedData{}, pricing.Usage{}, err
	}

	var extracted project.ExtractedData
	if err := json.Unmarshal([]byte(text), &extracted); err != nil {
		return project.ExtractedData{}, pricing.Usage{}, services.Wrap(services.ErrValidation, "extracting", "extract", "decode result", err)
	}
	if len(extracted.Features) == 0 || len(extracted.DesignAnalysis) == 0 || len(extracted.StructureAnalysis) == 0 {
		return project.ExtractedData{}, pricing.Usage{}, services.Wrap(services.ErrValidation, "extracting", "extract", "result is missing required fields", nil)
	}
	return extracted, usage, nil
}

// Analyze turns the extracted facts into a design system and section plan.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (project.DesignSystem, []project.Section, pricing.Usage, error) {
	extractedJSON, _ := json.Marshal(req.Extracted)
	texts := []string{analyzePrompt, "Project brief: " + req.Description, "Extracted site facts:\n" + string(extractedJSON)}
	if req.URLContext != "" {
		texts = append(texts, "Source URL: "+req.URLContext)
	}
	images := append([]string(nil), req.Screenshots...)
	images = append(images, req.TargetScreenshots...)

	parts, inputTokens, err := buildParts(texts, images)
	if err != nil {
		return project.DesignSystem{}, nil, pricing.Usage{}, services.Wrap(services.ErrValidation, "analyzing", "analyze", "encode screenshots", err)
	}

	text, usage, err := c.generateText(ctx, "analyzing", "analyze", c.models.AnalysisModel, parts, inputTokens, true)
	if err != nil {
		return project.DesignSystem{}, nil, pricing.Usage{}, err
	}

	var plan struct {
		DesignSystem *project.DesignSystem `json:"designSystem"`
		Sections     []project.Section     `json:"sections"`
	}
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return project.DesignSystem{}, nil, pricing.Usage{}, services.Wrap(services.ErrValidation, "analyzing", "analyze", "decode result", err)
	}
	if plan.DesignSystem == nil || len(plan.Sections) == 0 {
		return project.DesignSystem{}, nil, pricing.Usage{}, services.Wrap(services.ErrValidation, "analyzing", "analyze", "result is missing design system or sections", nil)
	}
	for i := range plan.Sections {
		if strings.TrimSpace(plan.Sections[i].ID) == "" {
			plan.Sections[i].ID = fmt.Sprintf("section-%d", i+1)
		}
	}
	return *plan.DesignSystem, plan.Sections, usage, nil
}

// GenerateSectionImage produces one concept image for a section.
func (c *Client) GenerateSectionImage(ctx context.Context, section project.Section, ds project.DesignSystem) (string, pricing.Usage, error) {
	parts, inputTokens, err := buildParts([]string{sectionImagePrompt(section, ds)}, nil)
	if err != nil {
		return "", pricing.Usage{}, services.Wrap(services.ErrValidation, "generating-images", "section-image", "build request", err)
	}
	return c.generateImage(ctx, "generating-images", "section-image", c.models.SectionImageModel, parts, inputTokens)
}

// EditSectionImage applies a user instruction to an existing section image.
func (c *Client) EditSectionImage(ctx context.Context, imageDataURI, instruction string) (string, pricing.Usage, error) {
	parts, inputTokens, err := buildParts([]string{"Edit the attached image. " + instruction}, []string{imageDataURI})
	if err != nil {
		return "", pricing.Usage{}, services.Wrap(services.ErrValidation, "plan-review", "edit-image", "encode image", err)
	}
	return c.generateImage(ctx, "plan-review", "edit-image", c.models.SectionImageModel, parts, inputTokens)
}

// GenerateContentImages produces up to count supporting images for a section.
// Individual image failures are logged and skipped; the call fails only when
// nothing could be generated.
func (c *Client) GenerateContentImages(ctx context.Context, section project.Section, ds project.DesignSystem, count int) ([]string, pricing.Usage, error) {
	var (
		images []string
		total  pricing.Usage
	)
	total.Model = c.models.ContentImageModel
	var lastErr error
	for i := 0; i < count; i++ {
		parts, inputTokens, err := buildParts([]string{contentImagePrompt(section, ds, i)}, nil)
		if err != nil {
			lastErr = err
			continue
		}
		uri, usage, err := c.generateImage(ctx, "generating-code", "content-image", c.models.ContentImageModel, parts, inputTokens)
		if err != nil {
			lastErr = err
			logging.WithContext(ctx, c.logger).Warn("content image generation failed",
				logging.String(logging.FieldSectionID, section.ID),
				logging.Int("image_index", i),
				logging.Error(err))
			continue
		}
		images = append(images, uri)
		total.InputTokens += usage.InputTokens
		total.OutputImages += usage.OutputImages
	}
	if len(images) == 0 && count > 0 {
		if lastErr != nil {
			return nil, pricing.Usage{}, lastErr
		}
		return nil, pricing.Usage{}, services.Wrap(services.ErrGeneration, "generating-code", "content-image", "no images produced", nil)
	}
	return images, total, nil
}

// GenerateSectionCode writes the HTML for one section with full accumulated
// context.
func (c *Client) GenerateSectionCode(ctx context.Context, req CodeRequest) (string, pricing.Usage, error) {
	images := append([]string(nil), req.SourceScreenshots...)
	images = append(images, req.TargetScreenshots...)
	if req.Section.GeneratedImageURL != "" && strings.HasPrefix(req.Section.GeneratedImageURL, "data:") {
		images = append(images, req.Section.GeneratedImageURL)
	}
	parts, inputTokens, err := buildParts([]string{codePrompt(req)}, images)
	if err != nil {
		return "", pricing.Usage{}, services.Wrap(services.ErrValidation, "generating-code", "section-code", "encode context", err)
	}

	text, usage, err := c.generateText(ctx, "generating-code", "section-code", c.models.CodeModel, parts, inputTokens, false)
	if err != nil {
		return "", pricing.Usage{}, err
	}
	code := NormalizeHTML(text)
	if code == "" {
		return "", pricing.Usage{}, services.Wrap(services.ErrValidation, "generating-code", "section-code", "empty code response", nil)
	}
	return code, usage, nil
}

// ReviewCode asks for a pass/fail verdict over the rendered previews.
func (c *Client) ReviewCode(ctx context.Context, req ReviewRequest) (project.ReviewResult, pricing.Usage, error) {
	images := make([]string, 0, len(req.PreviewShots))
	for _, shot := range req.PreviewShots {
		images = append(images, shot.DataURI)
	}
	parts, inputTokens, err := buildParts([]string{reviewContext(req)}, images)
	if err != nil {
		return project.ReviewResult{}, pricing.Usage{}, services.Wrap(services.ErrValidation, "reviewing-code", "review", "encode previews", err)
	}

	text, usage, err := c.generateText(ctx, "reviewing-code", "review", c.models.ReviewModel, parts, inputTokens, true)
	if err != nil {
		return project.ReviewResult{}, pricing.Usage{}, err
	}

	var review project.ReviewResult
	if err := json.Unmarshal([]byte(text), &review); err != nil {
		return project.ReviewResult{}, pricing.Usage{}, services.Wrap(services.ErrValidation, "reviewing-code", "review", "decode result", err)
	}
	return review, usage, nil
}

// ApplyFix patches one section's HTML per a reviewer finding.
func (c *Client) ApplyFix(ctx context.Context, req FixRequest) (string, pricing.Usage, error) {
	parts, inputTokens, err := buildParts([]string{fixPrompt(req)}, nil)
	if err != nil {
		return "", pricing.Usage{}, services.Wrap(services.ErrValidation, "applying-fixes", "fix", "build request", err)
	}

	text, usage, err := c.generateText(ctx, "applying-fixes", "fix", c.models.FixModel, parts, inputTokens, false)
	if err != nil {
		return "", pricing.Usage{}, err
	}
	code := NormalizeHTML(text)
	if code == "" {
		return "", pricing.Usage{}, services.Wrap(services.ErrValidation, "applying-fixes", "fix", "empty code response", nil)
	}
	return code, usage, nil
}

// buildParts assembles text and image parts and the local input token
// estimate for the request.
func buildParts(texts []string, imageURIs []string) ([]*genai.Part, int64, error) {
	parts := make([]*genai.Part, 0, len(texts)+len(imageURIs))
	var inputTokens int64
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, &genai.Part{Text: text})
		inputTokens += pricing.EstimateTextTokens(text)
	}
	for _, uri := range imageURIs {
		if strings.TrimSpace(uri) == "" {
			continue
		}
		mime, data, err := parseDataURI(uri)
		if err != nil {
			return nil, 0, err
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: data}})
		inputTokens += pricing.EstimateImageTokens(1)
	}
	return parts, inputTokens, nil
}

func (c *Client) generateText(ctx context.Context, stage, operation, model string, parts []*genai.Part, inputTokens int64, jsonMode bool) (string, pricing.Usage, error) {
	genCfg := &genai.GenerateContentConfig{}
	if jsonMode {
		genCfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.cli.Models.GenerateContent(ctx, model, []*genai.Content{{Parts: parts}}, genCfg)
	if err != nil {
		return "", pricing.Usage{}, wrapCallError(stage, operation, err)
	}
	text := firstText(resp)
	if text == "" {
		return "", pricing.Usage{}, services.Wrap(services.ErrGeneration, stage, operation, "empty response", nil)
	}
	usage := pricing.Usage{
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: pricing.EstimateTextTokens(text),
	}
	return text, usage, nil
}

func (c *Client) generateImage(ctx context.Context, stage, operation, model string, parts []*genai.Part, inputTokens int64) (string, pricing.Usage, error) {
	genCfg := &genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE", "TEXT"}}

	resp, err := c.cli.Models.GenerateContent(ctx, model, []*genai.Content{{Parts: parts}}, genCfg)
	if err != nil {
		return "", pricing.Usage{}, wrapCallError(stage, operation, err)
	}
	if uri, ok := firstImage(resp); ok {
		usage := pricing.Usage{Model: model, InputTokens: inputTokens, OutputImages: 1}
		return uri, usage, nil
	}
	if text := firstText(resp); text != "" {
		return "", pricing.Usage{}, services.Wrap(services.ErrGeneration, stage, operation, "unexpected text response", ErrTextResponse)
	}
	return "", pricing.Usage{}, services.Wrap(services.ErrGeneration, stage, operation, "empty response", nil)
}

func wrapCallError(stage, operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stage, operation, "call exceeded stage timeout", err)
	}
	if errors.Is(err, context.Canceled) {
		return services.Wrap(services.ErrTransient, stage, operation, "call canceled", err)
	}
	return services.Wrap(services.ErrGeneration, stage, operation, "model call failed", err)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		break
	}
	return strings.TrimSpace(b.String())
}

func firstImage(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return encodeDataURI(part.InlineData.MIMEType, part.InlineData.Data), true
			}
		}
	}
	return "", false
}
