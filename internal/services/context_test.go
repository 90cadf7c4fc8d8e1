package services_test

import (
	"context"
	"testing"

	"reface/internal/services"
)

func TestContextRoundTrips(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithProjectID(ctx, "project-example-com-1700000000000")
	ctx = services.WithStage(ctx, "generating-code")
	ctx = services.WithSectionID(ctx, "section-1")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ProjectIDFromContext(ctx); !ok || id != "project-example-com-1700000000000" {
		t.Fatalf("project id round trip failed: %q %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "generating-code" {
		t.Fatalf("stage round trip failed: %q %v", stage, ok)
	}
	if sid, ok := services.SectionIDFromContext(ctx); !ok || sid != "section-1" {
		t.Fatalf("section id round trip failed: %q %v", sid, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("request id round trip failed: %q %v", rid, ok)
	}
}

func TestContextIgnoresEmptyValues(t *testing.T) {
	ctx := context.Background()
	if services.WithProjectID(ctx, "") != ctx {
		t.Fatal("empty project id should not annotate context")
	}
	if services.WithStage(ctx, "") != ctx {
		t.Fatal("empty stage should not annotate context")
	}
	if _, ok := services.ProjectIDFromContext(ctx); ok {
		t.Fatal("expected no project id on bare context")
	}
}
