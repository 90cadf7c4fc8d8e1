package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reface/internal/pricing"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List stored projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var resp struct {
				Projects []struct {
					ProjectID string  `json:"projectId"`
					State     string  `json:"state"`
					TotalCost float64 `json:"totalCost"`
					Sections  int     `json:"sections"`
					UpdatedAt string  `json:"updatedAt"`
				} `json:"projects"`
			}
			if err := client.get(cmd.Context(), "/api/projects", &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Projects) == 0 {
				fmt.Fprintln(out, "No stored projects")
				return nil
			}

			rows := make([][]string, 0, len(resp.Projects))
			for _, rec := range resp.Projects {
				rows = append(rows, []string{
					rec.ProjectID,
					rec.State,
					fmt.Sprintf("%d", rec.Sections),
					pricing.FormatCost(rec.TotalCost),
					rec.UpdatedAt,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Project", "State", "Sections", "Cost", "Updated"},
				rows,
				2, 3,
			))
			return nil
		},
	}
}
