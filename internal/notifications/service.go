package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reface/internal/config"
	"reface/internal/pricing"
)

const userAgent = "Reface-Go/0.1.0"

// Service defines the push notification surface exposed to the pipeline and
// CLI. Every method is best-effort.
type Service interface {
	NotifyRunStarted(ctx context.Context, projectID, description string) error
	NotifyPlanReady(ctx context.Context, projectID string, sectionCount int) error
	NotifyRunCompleted(ctx context.Context, projectID string, totalCost float64) error
	NotifyRunFailed(ctx context.Context, projectID, stage string, cause error) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
		settings: cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	settings config.Notifications
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, projectID, description string) error {
	if !n.settings.RunStarted {
		return nil
	}
	description = strings.TrimSpace(description)
	data := payload{
		title:   "Reface - Run Started",
		message: fmt.Sprintf("Redesign started: %s (%s)", description, projectID),
		tags:    []string{"reface", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPlanReady(ctx context.Context, projectID string, sectionCount int) error {
	if !n.settings.PlanReady {
		return nil
	}
	data := payload{
		title:   "Reface - Plan Ready",
		message: fmt.Sprintf("Plan ready for review: %d sections (%s)", sectionCount, projectID),
		tags:    []string{"reface", "plan", "ready"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, projectID string, totalCost float64) error {
	if !n.settings.RunCompleted {
		return nil
	}
	data := payload{
		title:    "Reface - Run Complete",
		message:  fmt.Sprintf("Redesign complete: %s, estimated spend %s", projectID, pricing.FormatCost(totalCost)),
		tags:     []string{"reface", "run", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, projectID, stage string, cause error) error {
	if !n.settings.RunFailed {
		return nil
	}
	message := fmt.Sprintf("Redesign failed during %s: %s", stage, projectID)
	if cause != nil {
		message = fmt.Sprintf("%s\n%s", message, strings.TrimSpace(cause.Error()))
	}
	data := payload{
		title:    "Reface - Run Failed",
		message:  message,
		tags:     []string{"reface", "run", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.settings.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Reface - Error",
		message:  builder.String(),
		tags:     []string{"reface", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Reface - Test",
		message:  "Notification system test",
		tags:     []string{"reface", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, string) error       { return nil }
func (noopService) NotifyPlanReady(context.Context, string, int) error           { return nil }
func (noopService) NotifyRunCompleted(context.Context, string, float64) error    { return nil }
func (noopService) NotifyRunFailed(context.Context, string, string, error) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error             { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
