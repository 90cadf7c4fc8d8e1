package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"reface/internal/export"
	"reface/internal/logging"
	"reface/internal/pipeline"
	"reface/internal/project"
)

// StatusResponse is the CLI-facing view of the orchestrator.
type StatusResponse struct {
	State         project.State    `json:"state"`
	StateLabel    string           `json:"stateLabel"`
	StatusMessage string           `json:"statusMessage"`
	ViewedState   project.State    `json:"viewedState"`
	TotalCost     float64          `json:"totalCost"`
	Document      project.Document `json:"document"`
}

func statusFromSnapshot(snap pipeline.Snapshot) StatusResponse {
	return StatusResponse{
		State:         snap.State,
		StateLabel:    snap.State.Label(),
		StatusMessage: project.StatusMessage(snap.State),
		ViewedState:   snap.ViewedState,
		TotalCost:     snap.TotalCost,
		Document:      snap.Document,
	}
}

func (s *Server) handleStartProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string   `json:"description"`
		Mode        string   `json:"mode"`
		SourceURL   string   `json:"sourceUrl"`
		TargetURL   string   `json:"targetUrl"`
		Screenshots []string `json:"screenshots"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	projectID, err := s.orch.StartProject(r.Context(), pipeline.StartRequest{
		Description: req.Description,
		Mode:        project.Mode(strings.ToLower(strings.TrimSpace(req.Mode))),
		SourceURL:   req.SourceURL,
		TargetURL:   req.TargetURL,
		Screenshots: req.Screenshots,
	})
	if err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"projectId": projectID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statusFromSnapshot(s.orch.Snapshot()))
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"projects": []any{}})
		return
	}
	records, err := s.store.List(r.Context())
	if err != nil {
		s.writeHandlerError(w, err)
		return
	}
	type summary struct {
		ProjectID string        `json:"projectId"`
		State     project.State `json:"state"`
		TotalCost float64       `json:"totalCost"`
		Sections  int           `json:"sections"`
		UpdatedAt string        `json:"updatedAt"`
	}
	summaries := make([]summary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summary{
			ProjectID: rec.ProjectID,
			State:     rec.State,
			TotalCost: rec.Document.TotalCost,
			Sections:  len(rec.Document.Sections),
			UpdatedAt: rec.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"projects": summaries})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	snap := s.orch.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"state":        snap.State,
		"designSystem": snap.Document.DesignSystem,
		"sections":     snap.Document.Sections,
	})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Approve(r.Context()); err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, statusFromSnapshot(s.orch.Snapshot()))
}

func (s *Server) handleDesignSystem(w http.ResponseWriter, r *http.Request) {
	var ds project.DesignSystem
	if err := json.NewDecoder(r.Body).Decode(&ds); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.orch.UpdateDesignSystem(ds); err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleAddSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := s.orch.AddSection(req.Name, req.Description)
	if err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"sectionId": id})
}

func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         *string `json:"name"`
		Description  *string `json:"description"`
		VisualPrompt *string `json:"visualPrompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.orch.UpdateSection(r.PathValue("id"), project.SectionEdit{
		Name:         req.Name,
		Description:  req.Description,
		VisualPrompt: req.VisualPrompt,
	})
	if err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.DeleteSection(r.PathValue("id")); err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleMoveSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	up := strings.EqualFold(req.Direction, "up")
	if !up && !strings.EqualFold(req.Direction, "down") {
		s.writeError(w, http.StatusBadRequest, "direction must be up or down")
		return
	}
	if err := s.orch.MoveSection(r.PathValue("id"), up); err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleEditSectionImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Instruction string `json:"instruction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.orch.EditSectionImage(r.Context(), r.PathValue("id"), req.Instruction); err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.GenerateCode(r.Context()); err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, statusFromSnapshot(s.orch.Snapshot()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.orch.Reset(r.Context())
	s.writeJSON(w, http.StatusOK, statusFromSnapshot(s.orch.Snapshot()))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	state := project.State(strings.ToLower(strings.TrimSpace(req.State)))
	if err := s.orch.SetViewedState(state); err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap := s.orch.Snapshot()
	if len(snap.Document.Sections) == 0 {
		s.writeError(w, http.StatusConflict, "nothing to export")
		return
	}

	name := snap.Document.ProjectID
	if name == "" {
		name = "reface-export"
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".zip"))
	if err := export.Archive(w, snap.Document); err != nil {
		s.logger.Error("export failed", logging.Error(err))
	}
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if s.notifier == nil {
		s.writeError(w, http.StatusConflict, "notifications are not configured")
		return
	}
	if err := s.notifier.TestNotification(r.Context()); err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}
