package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"reface/internal/services"
)

func TestConsoleHandlerLiftsComponent(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))
	logger = NewComponentLogger(logger, "pipeline")
	logger.Info("stage complete", String(FieldStage, "analyzing"))

	line := buf.String()
	if !strings.Contains(line, "pipeline: stage complete") {
		t.Fatalf("component prefix missing: %q", line)
	}
	if !strings.Contains(line, "stage=analyzing") {
		t.Fatalf("attribute missing: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be lifted out of the key list: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))
	logger.Info("msg", String("detail", "two words"))
	if !strings.Contains(buf.String(), `detail="two words"`) {
		t.Fatalf("expected quoted value: %q", buf.String())
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	ctx := services.WithProjectID(context.Background(), "project-example-com-1")
	ctx = services.WithStage(ctx, "extracting-data")
	WithContext(ctx, logger).Info("working")

	line := buf.String()
	if !strings.Contains(line, "project_id=project-example-com-1") {
		t.Fatalf("project id missing: %q", line)
	}
	if !strings.Contains(line, "stage=extracting-data") {
		t.Fatalf("stage missing: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}
