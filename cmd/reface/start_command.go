package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var description string
	var mode string
	var targetURL string
	var screenshotPaths []string

	cmd := &cobra.Command{
		Use:   "start [source-url]",
		Short: "Start a redesign project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceURL := ""
			if len(args) == 1 {
				sourceURL = strings.TrimSpace(args[0])
			}
			if strings.TrimSpace(description) == "" {
				return errors.New("a redesign description is required (--description)")
			}
			if sourceURL == "" && len(screenshotPaths) == 0 {
				return errors.New("provide a source URL or at least one --screenshot")
			}

			screenshots, err := loadScreenshots(screenshotPaths)
			if err != nil {
				return err
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}

			var resp struct {
				ProjectID string `json:"projectId"`
			}
			err = client.do(cmd.Context(), "POST", "/api/project", map[string]any{
				"description": description,
				"mode":        mode,
				"sourceUrl":   sourceURL,
				"targetUrl":   targetURL,
				"screenshots": screenshots,
			}, &resp)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Started project %s\n", resp.ProjectID)
			fmt.Fprintln(out, "Run `reface status` to follow progress; the plan will pause for review.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "What the redesign should achieve")
	cmd.Flags().StringVar(&mode, "mode", "full", "Generation mode: full or code_only")
	cmd.Flags().StringVar(&targetURL, "target", "", "Optional URL of a design to emulate")
	cmd.Flags().StringArrayVar(&screenshotPaths, "screenshot", nil, "Path to a source screenshot (repeatable)")
	return cmd
}

func loadScreenshots(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read screenshot %s: %w", path, err)
		}
		out = append(out, screenshotDataURI(path, data))
	}
	return out, nil
}

func screenshotDataURI(path string, data []byte) string {
	mimeType := "image/png"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		mimeType = "image/jpeg"
	case ".webp":
		mimeType = "image/webp"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
