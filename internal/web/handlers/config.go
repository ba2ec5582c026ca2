package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attend/internal/attendance"
)

// ConfigHandler exposes the running match profile to the kiosk UI.
type ConfigHandler struct {
	service *attendance.Service
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(svc *attendance.Service) *ConfigHandler {
	return &ConfigHandler{
		service: svc,
	}
}

// Get returns the active embedding model, match threshold and whether a
// sidecar and camera are wired up. Nothing secret leaves the server; URLs
// and stored embeddings stay internal.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Profile())
}
