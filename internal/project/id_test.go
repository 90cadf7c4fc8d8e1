package project_test

import (
	"strings"
	"testing"
	"time"

	"reface/internal/project"
)

func TestDeriveProjectIDFromURL(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	id := project.DeriveProjectID("https://www.Example.com/path", now)
	if id != "project-www-example-com-1700000000000" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestDeriveProjectIDManual(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	id := project.DeriveProjectID("", now)
	if id != "project-manual-1700000000000" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestNewSectionID(t *testing.T) {
	id := project.NewSectionID(time.UnixMilli(42))
	if !strings.HasPrefix(id, "section-42-") {
		t.Fatalf("unexpected section id %q", id)
	}
}
