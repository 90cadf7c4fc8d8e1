package main

import (
	"strings"
	"testing"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("State", statusOK, "Completed", false)
	if !strings.Contains(line, "[OK] Completed") {
		t.Fatalf("unexpected line %q", line)
	}
	if strings.Contains(line, ansiGreen) {
		t.Errorf("expected no color codes in %q", line)
	}
}

func TestRenderStatusLineColorized(t *testing.T) {
	line := renderStatusLine("State", statusError, "failed", true)
	if !strings.HasPrefix(line, ansiRed) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("expected red wrapping in %q", line)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Pipeline", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Pipeline ==" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Errorf("rule length %d does not match header %d", len(lines[1]), len(lines[0]))
	}
}
