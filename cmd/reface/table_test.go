package main

import (
	"strings"
	"testing"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"#", "Section", "Cost"},
		[][]string{{"1", "Hero"}},
		0, 2,
	)
	if !strings.Contains(out, "Hero") {
		t.Fatalf("unexpected table output %q", out)
	}
	lines := strings.Split(out, "\n")
	if len(lines) < 4 {
		t.Fatalf("expected bordered table, got %d lines", len(lines))
	}
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	if out := renderTable(nil, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
