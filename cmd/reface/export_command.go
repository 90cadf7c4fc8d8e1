package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the redesigned site as a zip archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			body, disposition, err := client.download(cmd.Context(), "/api/export")
			if err != nil {
				return err
			}
			defer body.Close()

			target := strings.TrimSpace(output)
			if target == "" {
				target = filenameFromDisposition(disposition)
			}

			file, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("create %s: %w", target, err)
			}
			defer file.Close()

			written, err := io.Copy(file, body)
			if err != nil {
				return fmt.Errorf("write archive: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", target, written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path for the archive")
	return cmd
}

func filenameFromDisposition(disposition string) string {
	const marker = "filename="
	if i := strings.Index(disposition, marker); i >= 0 {
		name := strings.Trim(disposition[i+len(marker):], `"`)
		if name != "" {
			return name
		}
	}
	return "reface-export.zip"
}
