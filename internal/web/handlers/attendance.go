package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/database"
)

// AttendanceHandler handles attendance log endpoints.
type AttendanceHandler struct {
	service *attendance.Service
	stats   *StatsHandler
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(svc *attendance.Service, stats *StatsHandler) *AttendanceHandler {
	return &AttendanceHandler{
		service: svc,
		stats:   stats,
	}
}

// List returns attendance events in recorded order, optionally narrowed by
// ?date=YYYY-MM-DD and ?name= filters.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := database.EventFilter{
		Date: r.URL.Query().Get("date"),
		Name: r.URL.Query().Get("name"),
	}
	if filter.Date != "" {
		if _, err := time.Parse(database.DateLayout, filter.Date); err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	events, err := h.service.Log(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// Export streams the whole attendance log as a CSV download.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.ExportCSV(r.Context(), &buf); err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.service.ExportName()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// RemoveAll wipes the attendance log. Requesting DELETE is the
// confirmation; there is no extra prompt server side.
func (h *AttendanceHandler) RemoveAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetLedger(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	log.Println("attendance log cleared")
	h.stats.InvalidateCache()
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "attendance log cleared",
	})
}
