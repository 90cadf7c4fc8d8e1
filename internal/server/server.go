// Package server exposes the daemon's HTTP API: project lifecycle operations,
// plan editing, export, the image persistence endpoint, and a websocket feed
// of orchestrator snapshots.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"reface/internal/config"
	"reface/internal/imageserver"
	"reface/internal/logging"
	"reface/internal/notifications"
	"reface/internal/pipeline"
	"reface/internal/project"
	"reface/internal/services"
)

// ProjectLister reads persisted project records. project.Store satisfies
// this.
type ProjectLister interface {
	List(ctx context.Context) ([]*project.Record, error)
	Get(ctx context.Context, id string) (*project.Record, error)
}

// Server hosts the daemon API.
type Server struct {
	bind     string
	logger   *slog.Logger
	orch     *pipeline.Orchestrator
	store    ProjectLister
	notifier notifications.Service
	mux      *http.ServeMux

	listener net.Listener
	server   *http.Server
}

// New assembles the server and its routes. store and notifier may be nil.
func New(cfg *config.Config, orch *pipeline.Orchestrator, store ProjectLister, notifier notifications.Service, images *imageserver.Handler, logger *slog.Logger) *Server {
	s := &Server{
		bind:     strings.TrimSpace(cfg.Paths.APIBind),
		logger:   logging.NewComponentLogger(logger, "api-server"),
		orch:     orch,
		store:    store,
		notifier: notifier,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/project", s.handleStartProject)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/projects", s.handleListProjects)
	s.mux.HandleFunc("GET /api/plan", s.handlePlan)
	s.mux.HandleFunc("POST /api/plan/approve", s.handleApprove)
	s.mux.HandleFunc("POST /api/plan/design-system", s.handleDesignSystem)
	s.mux.HandleFunc("POST /api/plan/sections", s.handleAddSection)
	s.mux.HandleFunc("PATCH /api/plan/sections/{id}", s.handleUpdateSection)
	s.mux.HandleFunc("DELETE /api/plan/sections/{id}", s.handleDeleteSection)
	s.mux.HandleFunc("POST /api/plan/sections/{id}/move", s.handleMoveSection)
	s.mux.HandleFunc("POST /api/plan/sections/{id}/edit-image", s.handleEditSectionImage)
	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/reset", s.handleReset)
	s.mux.HandleFunc("POST /api/view", s.handleView)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("POST /api/test-notification", s.handleTestNotification)
	s.mux.HandleFunc("GET /api/watch", s.handleWatch)
	if images != nil {
		images.Register(s.mux)
	}

	s.server = &http.Server{
		Handler:           s.withRequestID(s.mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.mux)
}

// Start listens and serves until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := services.WithRequestID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeHandlerError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeHandlerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrTimeout):
		s.writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
