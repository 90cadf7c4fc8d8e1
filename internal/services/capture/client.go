// Package capture is the HTTP client for the external screenshot service. It
// covers the two operations the pipeline needs: capturing a live URL and
// rendering generated HTML off-screen.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"reface/internal/config"
	"reface/internal/logging"
	"reface/internal/services"
)

// Client talks to the screenshot service over HTTP. Timeouts come from the
// caller's context, so one client serves every stage.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New builds a capture client from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.Capture.BaseURL, "/"),
		client:  &http.Client{},
		logger:  logging.NewComponentLogger(logger, "capture"),
	}
}

// Capture screenshots a live URL. The service slices the full page height
// into overlapping viewport captures and may answer from its URL-hash cache.
func (c *Client) Capture(ctx context.Context, url string) ([]string, error) {
	var result struct {
		Screenshots []string `json:"screenshots"`
		FromCache   bool     `json:"fromCache"`
	}
	if err := c.post(ctx, "/api/screenshot", map[string]string{"url": url}, &result); err != nil {
		return nil, err
	}
	if len(result.Screenshots) == 0 {
		return nil, services.Wrap(services.ErrCapture, "capture", "screenshot", "service returned no screenshots", nil)
	}
	logging.WithContext(ctx, c.logger).Debug("captured url",
		logging.String("url", url),
		logging.Int("screenshots", len(result.Screenshots)),
		logging.Bool("from_cache", result.FromCache))
	return result.Screenshots, nil
}

// Render rasterizes generated HTML and returns a single screenshot.
func (c *Client) Render(ctx context.Context, html string) (string, error) {
	var result struct {
		Screenshot string `json:"screenshot"`
	}
	if err := c.post(ctx, "/api/render", map[string]string{"html": html}, &result); err != nil {
		return "", err
	}
	if result.Screenshot == "" {
		return "", services.Wrap(services.ErrCapture, "capture", "render", "service returned no screenshot", nil)
	}
	return result.Screenshot, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrCapture, "capture", path, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrCapture, "capture", path, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "capture", path, "call exceeded stage timeout", err)
		}
		return services.Wrap(services.ErrCapture, "capture", path, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		message := readErrorMessage(resp.Body)
		return services.Wrap(services.ErrCapture, "capture", path,
			fmt.Sprintf("service returned %d: %s", resp.StatusCode, message), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrCapture, "capture", path, "decode response", err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "no detail"
	}
	return trimmed
}
