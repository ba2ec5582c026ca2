package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/attendance"
)

// PeopleHandler handles registry endpoints.
type PeopleHandler struct {
	service *attendance.Service
	stats   *StatsHandler
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(svc *attendance.Service, stats *StatsHandler) *PeopleHandler {
	return &PeopleHandler{
		service: svc,
		stats:   stats,
	}
}

// Person is one registry entry as exposed by the API. Embeddings stay
// server side.
type Person struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	Dim       int    `json:"dim"`
	CreatedAt string `json:"created_at"`
}

// registerRequest enrolls a person with a precomputed embedding.
type registerRequest struct {
	Name      string    `json:"name"`
	Embedding []float32 `json:"embedding"`
}

// List returns everyone in the registry.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	enrollments, err := h.service.People(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	people := make([]Person, len(enrollments))
	for i, e := range enrollments {
		people[i] = Person{
			Name:      e.Name,
			Model:     e.Model,
			Dim:       e.Dim,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"people": people,
		"count":  len(people),
	})
}

// Register enrolls a person. A multipart request carries a name and a photo
// to run through face detection; a JSON body carries a name and a
// precomputed embedding.
func (h *PeopleHandler) Register(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		h.registerFromImage(w, r)
		return
	}
	h.registerFromEmbedding(w, r)
}

func (h *PeopleHandler) registerFromImage(w http.ResponseWriter, r *http.Request) {
	imageData, err := imageFromForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := r.FormValue("name")

	face, err := h.service.RegisterImage(r.Context(), name, imageData)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("registered %s from photo", sanitizeForLog(name))
	h.stats.InvalidateCache()
	respondJSON(w, http.StatusCreated, map[string]any{
		"name": strings.TrimSpace(name),
		"face": face,
	})
}

func (h *PeopleHandler) registerFromEmbedding(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if err := h.service.Register(r.Context(), req.Name, req.Embedding); err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("registered %s from embedding", sanitizeForLog(req.Name))
	h.stats.InvalidateCache()
	respondJSON(w, http.StatusCreated, map[string]any{
		"name": strings.TrimSpace(req.Name),
	})
}

// RemoveAll wipes the registry. Requesting DELETE is the confirmation;
// there is no extra prompt server side.
func (h *PeopleHandler) RemoveAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetRegistry(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	log.Println("registry cleared")
	h.stats.InvalidateCache()
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "registry cleared",
	})
}

// Empty reports whether anyone is enrolled; the kiosk UI uses it to decide
// whether scanning makes sense yet.
func (h *PeopleHandler) Empty(w http.ResponseWriter, r *http.Request) {
	empty, err := h.service.RegistryEmpty(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{
		"empty": empty,
	})
}
