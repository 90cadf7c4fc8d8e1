package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"reface/internal/pricing"
	"reface/internal/project"
	"reface/internal/server"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current pipeline status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if watch {
				return watchStatus(cmd.Context(), client, cmd.OutOrStdout())
			}

			var status server.StatusResponse
			if err := client.get(cmd.Context(), "/api/status", &status); err != nil {
				return err
			}
			renderStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Stream status updates until interrupted")
	return cmd
}

func renderStatus(out io.Writer, status server.StatusResponse) {
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Pipeline", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("State", stateKind(status.State), status.StateLabel, colorize))
	fmt.Fprintln(out, renderStatusLine("Activity", statusInfo, status.StatusMessage, colorize))
	if status.ViewedState != status.State {
		fmt.Fprintln(out, renderStatusLine("Viewing", statusInfo, string(status.ViewedState), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Est. cost", statusInfo, pricing.FormatCost(status.TotalCost), colorize))

	doc := status.Document
	if doc.ProjectID == "" {
		return
	}
	fmt.Fprintln(out, renderStatusLine("Project", statusInfo, doc.ProjectID, colorize))
	if len(doc.Sections) == 0 {
		return
	}

	fmt.Fprintln(out)
	rows := make([][]string, 0, len(doc.Sections))
	for i, section := range doc.Sections {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			section.ID,
			section.Name,
			yesNo(section.GeneratedImageURL != ""),
			yesNo(section.GeneratedCode != ""),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "ID", "Section", "Image", "Code"},
		rows,
		0,
	))
}

func watchStatus(ctx context.Context, client *apiClient, out io.Writer) error {
	wsURL := strings.Replace(client.base, "http", "ws", 1) + "/api/watch"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return wrapDialError(err, client.base)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	colorize := shouldColorize(out)
	var lastState project.State
	for {
		var status server.StatusResponse
		if err := conn.ReadJSON(&status); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch feed closed: %w", err)
		}
		if status.State == lastState {
			continue
		}
		lastState = status.State
		message := fmt.Sprintf("%s (%s)", status.StateLabel, pricing.FormatCost(status.TotalCost))
		fmt.Fprintln(out, renderStatusLine(string(status.State), stateKind(status.State), message, colorize))
	}
}

func stateKind(state project.State) statusKind {
	switch state {
	case project.StateCompleted:
		return statusOK
	case project.StateError:
		return statusError
	case project.StatePlanReview:
		return statusWarn
	default:
		return statusInfo
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
