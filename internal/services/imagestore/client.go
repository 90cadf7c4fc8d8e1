// Package imagestore is the HTTP client for the image persistence endpoint.
// The daemon hosts its own implementation of the contract (internal/imageserver)
// but stages only ever go through this client, so the backend can live
// anywhere.
package imagestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"reface/internal/services"
)

// Client stores images via POST /api/save-image.
type Client struct {
	baseURL string
	client  *http.Client
}

// New builds a client against a base URL, typically the daemon's own API bind.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Save stores a base64 image payload under the given filename and project and
// returns the public reference path.
func (c *Client) Save(ctx context.Context, base64Data, filename, projectID string) (string, error) {
	payload := map[string]string{
		"base64Data": base64Data,
		"filename":   filename,
	}
	if projectID != "" {
		payload["projectId"] = projectID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, "imagestore", "save", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/save-image", bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, "imagestore", "save", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "imagestore", "save", "call exceeded stage timeout", err)
		}
		return "", services.Wrap(services.ErrPersistence, "imagestore", "save", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", services.Wrap(services.ErrPersistence, "imagestore", "save",
			fmt.Sprintf("service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}

	var result struct {
		URL     string `json:"url"`
		Success bool   `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", services.Wrap(services.ErrPersistence, "imagestore", "save", "decode response", err)
	}
	if !result.Success || result.URL == "" {
		return "", services.Wrap(services.ErrPersistence, "imagestore", "save", "service reported failure", nil)
	}
	return result.URL, nil
}
