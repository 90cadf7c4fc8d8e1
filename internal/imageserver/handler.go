package imageserver

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"reface/internal/logging"
)

// Handler exposes the save-image endpoint plus static serving of disk-backed
// images.
type Handler struct {
	store    Store
	imageDir string
	logger   *slog.Logger
}

// NewHandler wires a store into HTTP. imageDir is used for /generated-images/
// static serving and may be empty for object storage backends that serve
// their own URLs.
func NewHandler(store Store, imageDir string, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		imageDir: imageDir,
		logger:   logging.NewComponentLogger(logger, "imageserver"),
	}
}

// Register mounts the handler's routes on a mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/save-image", h.handleSave)
	if h.imageDir != "" {
		mux.Handle("GET /generated-images/", http.StripPrefix("/generated-images/",
			http.FileServer(http.Dir(h.imageDir))))
	}
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Base64Data string `json:"base64Data"`
		Filename   string `json:"filename"`
		ProjectID  string `json:"projectId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}
	if req.Base64Data == "" || req.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "base64Data and filename are required"})
		return
	}

	data, err := decodeImagePayload(req.Base64Data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid base64 payload"})
		return
	}

	url, err := h.store.Put(r.Context(), req.ProjectID, req.Filename, data)
	if err != nil {
		h.logger.Error("save image failed", logging.Error(err), logging.String("filename", req.Filename))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "store image failed"})
		return
	}

	h.logger.Debug("image saved",
		logging.String("filename", req.Filename),
		logging.String("project_id", req.ProjectID),
		logging.Int("bytes", len(data)))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": url})
}

// decodeImagePayload accepts raw base64 or a full data URI.
func decodeImagePayload(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	return base64.StdEncoding.DecodeString(payload)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
