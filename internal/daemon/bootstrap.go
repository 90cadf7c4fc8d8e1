package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"reface/internal/config"
	"reface/internal/imageserver"
	"reface/internal/notifications"
	"reface/internal/pipeline"
	"reface/internal/project"
	"reface/internal/server"
	"reface/internal/services/capture"
	"reface/internal/services/gemini"
	"reface/internal/services/imagestore"
)

// Bootstrap builds the production daemon: persistent store, generation
// services, image storage, orchestrator, and API server, all wired from
// configuration.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	store, err := project.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open project store: %w", err)
	}

	generator, err := gemini.New(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	imageStore, err := imageserver.NewStore(cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init image store: %w", err)
	}
	images := imageserver.NewHandler(imageStore, cfg.Paths.ImagesDir, logger)

	notifier := notifications.NewService(cfg)

	orch := pipeline.New(cfg, pipeline.Deps{
		Generator: generator,
		Capture:   capture.New(cfg, logger),
		Images:    imagestore.New(apiBaseURL(cfg.Paths.APIBind)),
		Store:     store,
		Notifier:  notifier,
		Logger:    logger,
	})

	srv := server.New(cfg, orch, store, notifier, images, logger)
	return New(cfg, store, orch, srv, notifier, logger)
}

// apiBaseURL turns a listen address into the loopback URL the pipeline uses
// to persist images through its own API.
func apiBaseURL(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return "http://" + strings.TrimSpace(bind)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, port))
}
