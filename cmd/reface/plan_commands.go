package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reface/internal/project"
)

type planResponse struct {
	State        project.State         `json:"state"`
	DesignSystem *project.DesignSystem `json:"designSystem"`
	Sections     []project.Section     `json:"sections"`
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect and edit the redesign plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanShow(ctx, cmd)
		},
	}

	planCmd.AddCommand(newPlanShowCommand(ctx))
	planCmd.AddCommand(newPlanEditCommand(ctx))
	planCmd.AddCommand(newPlanAddCommand(ctx))
	planCmd.AddCommand(newPlanDeleteCommand(ctx))
	planCmd.AddCommand(newPlanMoveCommand(ctx))
	planCmd.AddCommand(newPlanStyleCommand(ctx))
	return planCmd
}

func newPlanShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the proposed design system and sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanShow(ctx, cmd)
		},
	}
}

func runPlanShow(ctx *commandContext, cmd *cobra.Command) error {
	client, err := ctx.client()
	if err != nil {
		return err
	}
	var plan planResponse
	if err := client.get(cmd.Context(), "/api/plan", &plan); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if plan.DesignSystem == nil && len(plan.Sections) == 0 {
		fmt.Fprintln(out, "No plan yet. Start a project and wait for analysis to finish.")
		return nil
	}

	if ds := plan.DesignSystem; ds != nil {
		for _, line := range renderSectionHeader("Design System", colorize) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, renderStatusLine("Typography", statusInfo, ds.Typography, colorize))
		fmt.Fprintln(out, renderStatusLine("Style", statusInfo, ds.StyleDescription, colorize))
		for _, color := range ds.Palette {
			fmt.Fprintln(out, renderStatusLine("Palette", statusInfo, fmt.Sprintf("%s %s", color.Hex, color.Role), colorize))
		}
		fmt.Fprintln(out)
	}

	rows := make([][]string, 0, len(plan.Sections))
	for i, section := range plan.Sections {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			section.ID,
			section.Name,
			truncate(section.Description, 60),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "ID", "Section", "Description"},
		rows,
		0,
	))
	return nil
}

func newPlanEditCommand(ctx *commandContext) *cobra.Command {
	var name string
	var description string
	var visualPrompt string

	cmd := &cobra.Command{
		Use:   "edit <section-id>",
		Short: "Edit one section of the plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{}
			if cmd.Flags().Changed("name") {
				payload["name"] = name
			}
			if cmd.Flags().Changed("description") {
				payload["description"] = description
			}
			if cmd.Flags().Changed("visual-prompt") {
				payload["visualPrompt"] = visualPrompt
			}
			if len(payload) == 0 {
				return errors.New("nothing to change; pass --name, --description, or --visual-prompt")
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.do(cmd.Context(), "PATCH", "/api/plan/sections/"+args[0], payload, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated section %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New section name")
	cmd.Flags().StringVar(&description, "description", "", "New section description")
	cmd.Flags().StringVar(&visualPrompt, "visual-prompt", "", "New visual prompt for image generation")
	return cmd
}

func newPlanAddCommand(ctx *commandContext) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a section to the plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var resp struct {
				SectionID string `json:"sectionId"`
			}
			err = client.do(cmd.Context(), "POST", "/api/plan/sections", map[string]string{
				"name":        args[0],
				"description": description,
			}, &resp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added section %s\n", resp.SectionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Section description")
	return cmd
}

func newPlanDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <section-id>",
		Short: "Remove a section from the plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.do(cmd.Context(), "DELETE", "/api/plan/sections/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted section %s\n", args[0])
			return nil
		},
	}
}

func newPlanMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <section-id> <up|down>",
		Short: "Move a section within the plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := strings.ToLower(strings.TrimSpace(args[1]))
			if direction != "up" && direction != "down" {
				return errors.New("direction must be up or down")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			err = client.do(cmd.Context(), "POST", "/api/plan/sections/"+args[0]+"/move", map[string]string{
				"direction": direction,
			}, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved section %s %s\n", args[0], direction)
			return nil
		},
	}
}

func newPlanStyleCommand(ctx *commandContext) *cobra.Command {
	var typography string
	var style string

	cmd := &cobra.Command{
		Use:   "style",
		Short: "Update the design system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var plan planResponse
			if err := client.get(cmd.Context(), "/api/plan", &plan); err != nil {
				return err
			}
			if plan.DesignSystem == nil {
				return errors.New("no design system to edit yet")
			}

			ds := *plan.DesignSystem
			if cmd.Flags().Changed("typography") {
				ds.Typography = typography
			}
			if cmd.Flags().Changed("style") {
				ds.StyleDescription = style
			}
			if err := client.do(cmd.Context(), "POST", "/api/plan/design-system", ds, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Updated design system")
			return nil
		},
	}

	cmd.Flags().StringVar(&typography, "typography", "", "Typography description")
	cmd.Flags().StringVar(&style, "style", "", "Overall style description")
	return cmd
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
