// Package handlers implements the attendance HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/kozaktomas/face-attend/internal/facematch"
)

// maxUploadSize caps multipart uploads; a single camera frame never comes
// close to this.
const maxUploadSize = 20 << 20 // 20 MB

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// respondServiceError maps attendance service errors onto HTTP status codes.
// Invalid input is the client's fault, a frame without a face is
// unprocessable, everything else is on us.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attendance.ErrEmptyName), errors.Is(err, facematch.ErrDimensionMismatch):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, capture.ErrNoFace):
		respondError(w, http.StatusUnprocessableEntity, "no face detected in the frame")
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// imageFromForm reads the uploaded image part from a multipart request.
func imageFromForm(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, errors.New("failed to parse multipart form")
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, errors.New("image file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read image")
	}
	return data, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
