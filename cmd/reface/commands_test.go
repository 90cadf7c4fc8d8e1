package main

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"reface/internal/project"
)

func TestStatusCommandRendersPipeline(t *testing.T) {
	setupTestHome(t)
	daemon := newStubDaemon(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"state":         string(project.StatePlanReview),
				"stateLabel":    "Plan review",
				"statusMessage": "Waiting for plan approval",
				"viewedState":   string(project.StatePlanReview),
				"totalCost":     0.042,
				"document": map[string]any{
					"projectId": "project-example-com-1",
					"sections": []map[string]any{
						{"id": "s1", "name": "Hero"},
					},
				},
			})
		})
	})

	out, err := runCLI(t, []string{"status", "--api", daemon.URL})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Plan review")
	requireContains(t, out, "project-example-com-1")
	requireContains(t, out, "Hero")
	requireContains(t, out, "$0.042")
}

func TestPlanAddCommand(t *testing.T) {
	setupTestHome(t)
	var gotName string
	daemon := newStubDaemon(t, func(mux *http.ServeMux) {
		mux.HandleFunc("POST /api/plan/sections", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Name string `json:"name"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			gotName = req.Name
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"sectionId": "section-1"})
		})
	})

	out, err := runCLI(t, []string{"plan", "add", "Testimonials", "--api", daemon.URL})
	if err != nil {
		t.Fatalf("plan add: %v", err)
	}
	requireContains(t, out, "Added section section-1")
	if gotName != "Testimonials" {
		t.Errorf("unexpected section name %q", gotName)
	}
}

func TestViewCommandSendsCanonicalState(t *testing.T) {
	setupTestHome(t)
	var gotState string
	daemon := newStubDaemon(t, func(mux *http.ServeMux) {
		mux.HandleFunc("POST /api/view", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				State string `json:"state"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			gotState = req.State
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
		})
	})

	out, err := runCLI(t, []string{"view", "PLAN_REVIEW", "--api", daemon.URL})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if gotState != string(project.StatePlanReview) {
		t.Errorf("sent state %q, want %q", gotState, project.StatePlanReview)
	}
	requireContains(t, out, "Viewing Plan Review")
}

func TestStartCommandRequiresDescription(t *testing.T) {
	setupTestHome(t)
	if _, err := runCLI(t, []string{"start", "https://example.com", "--api", "http://127.0.0.1:1"}); err == nil {
		t.Fatal("expected an error without a description")
	}
}

func TestStartCommandValidationErrorSurfaces(t *testing.T) {
	setupTestHome(t)
	daemon := newStubDaemon(t, func(mux *http.ServeMux) {
		mux.HandleFunc("POST /api/project", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "a run is already active"})
		})
	})

	_, err := runCLI(t, []string{"start", "https://example.com", "-d", "refresh", "--api", daemon.URL})
	if err == nil {
		t.Fatal("expected the daemon error to surface")
	}
	requireContains(t, err.Error(), "a run is already active")
}

func TestExportCommandWritesArchive(t *testing.T) {
	setupTestHome(t)
	daemon := newStubDaemon(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /api/export", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/zip")
			w.Header().Set("Content-Disposition", `attachment; filename="project-1.zip"`)
			_, _ = w.Write([]byte("PK archive bytes"))
		})
	})

	target := filepath.Join(t.TempDir(), "site.zip")
	out, err := runCLI(t, []string{"export", "--output", target, "--api", daemon.URL})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, target)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if string(data) != "PK archive bytes" {
		t.Errorf("unexpected archive contents %q", data)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	setupTestHome(t)

	out, err := runCLI(t, []string{"config", "validate"})
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}
