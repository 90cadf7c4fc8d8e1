package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reface/internal/project"
	"reface/internal/server"
)

func newApproveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve",
		Short: "Approve the plan and continue the pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var status server.StatusResponse
			if err := client.do(cmd.Context(), "POST", "/api/plan/approve", map[string]string{}, &status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan approved, now %s\n", status.StateLabel)
			return nil
		},
	}
}

func newEditImageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "edit-image <section-id> <instruction>",
		Short: "Revise a section's concept image",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction := strings.TrimSpace(strings.Join(args[1:], " "))
			if instruction == "" {
				return errors.New("an edit instruction is required")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			err = client.do(cmd.Context(), "POST", "/api/plan/sections/"+args[0]+"/edit-image", map[string]string{
				"instruction": instruction,
			}, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated image for section %s\n", args[0])
			return nil
		},
	}
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Move from image review to code generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var status server.StatusResponse
			if err := client.do(cmd.Context(), "POST", "/api/generate", map[string]string{}, &status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Code generation started, now %s\n", status.StateLabel)
			return nil
		},
	}
}

func newViewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "view <state>",
		Short: "Point the UI at an earlier pipeline stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state := strings.ToLower(strings.TrimSpace(args[0]))
			client, err := ctx.client()
			if err != nil {
				return err
			}
			err = client.do(cmd.Context(), "POST", "/api/view", map[string]string{
				"state": state,
			}, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Viewing %s\n", project.State(state).Label())
			return nil
		},
	}
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Abandon the current run and return to idle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.do(cmd.Context(), "POST", "/api/reset", map[string]string{}, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Pipeline reset")
			return nil
		},
	}
}
