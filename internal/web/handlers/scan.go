package handlers

import (
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attend/internal/attendance"
)

// ScanHandler handles the kiosk scan and identify endpoints.
type ScanHandler struct {
	service *attendance.Service
	stats   *StatsHandler
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(svc *attendance.Service, stats *StatsHandler) *ScanHandler {
	return &ScanHandler{
		service: svc,
		stats:   stats,
	}
}

// frameFromRequest pulls an uploaded frame out of the request, or nil when
// the body carries none; the service then falls back to the camera.
func frameFromRequest(r *http.Request) []byte {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return nil
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil
	}
	return data
}

// Scan runs the full kiosk flow on a frame: detect, match, record. The
// frame comes from the request body or, when absent, from the configured
// camera. An unrecognized face is a normal 200 with matched false.
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Scan(r.Context(), frameFromRequest(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if result.Matched {
		log.Printf("scan matched %s (distance %.4f)", sanitizeForLog(result.Match.Name), result.Match.Distance)
		if !result.Mark.Already {
			h.stats.InvalidateCache()
		}
	}
	respondJSON(w, http.StatusOK, result)
}

// Identify matches a frame against the registry without touching the
// attendance log.
func (h *ScanHandler) Identify(w http.ResponseWriter, r *http.Request) {
	imageData, err := imageFromForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	match, face, err := h.service.IdentifyImage(r.Context(), imageData)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"matched": match != nil,
		"match":   match,
		"face":    face,
	})
}
