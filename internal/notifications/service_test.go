package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"reface/internal/config"
	"reface/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), "project-x", 1.23); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type received struct {
	title    string
	message  string
	tags     string
	priority string
}

func newNtfyServer(t *testing.T) (*httptest.Server, *[]received) {
	t.Helper()
	var got []received
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, received{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func TestRunLifecyclePayloads(t *testing.T) {
	server, got := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RunStarted = true
	cfg.Notifications.PlanReady = true
	cfg.Notifications.RunCompleted = true
	cfg.Notifications.RunFailed = true
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyRunStarted(context.Background(), "project-x", "modernize the homepage"); err != nil {
		t.Fatalf("run started: %v", err)
	}
	if err := svc.NotifyPlanReady(context.Background(), "project-x", 4); err != nil {
		t.Fatalf("plan ready: %v", err)
	}
	if err := svc.NotifyRunCompleted(context.Background(), "project-x", 0.0421); err != nil {
		t.Fatalf("run completed: %v", err)
	}
	if err := svc.NotifyRunFailed(context.Background(), "project-x", "analyzing", errors.New("boom")); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(*got) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(*got))
	}
	if (*got)[0].title != "Reface - Run Started" {
		t.Errorf("unexpected title %q", (*got)[0].title)
	}
	if (*got)[2].message != "Redesign complete: project-x, estimated spend $0.042" {
		t.Errorf("unexpected completion message %q", (*got)[2].message)
	}
	if (*got)[3].priority != "high" {
		t.Errorf("failure should be high priority, got %q", (*got)[3].priority)
	}
}

func TestDisabledEventsAreSkipped(t *testing.T) {
	server, got := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RunStarted = false
	cfg.Notifications.RunCompleted = true
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyRunStarted(context.Background(), "p", "d"); err != nil {
		t.Fatalf("run started: %v", err)
	}
	if err := svc.NotifyRunCompleted(context.Background(), "p", 0); err != nil {
		t.Fatalf("run completed: %v", err)
	}
	if len(*got) != 1 {
		t.Fatalf("expected only the enabled event, got %d", len(*got))
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected an error from a 403 response")
	}
}
