package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/memory"
)

// fakeClock is an adjustable clock for services under test.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

// newTestService builds an attendance service on in-memory stores.
func newTestService(t *testing.T, opts attendance.Options) *attendance.Service {
	t.Helper()
	if opts.Dim == 0 {
		opts.Dim = 4
	}
	return attendance.New(memory.NewRegistry(), memory.NewLedger(), opts)
}

// newFakeSidecar serves a fixed detection response the way the embedding
// sidecar would.
func newFakeSidecar(t *testing.T, faces []capture.Face) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := capture.FaceResponse{
			FacesCount: len(faces),
			Faces:      faces,
			Model:      "facenet",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

// jsonRequest creates a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest creates a request with form fields and an optional image part.
func multipartRequest(t *testing.T, path string, fields map[string]string, imageData []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field %s: %v", key, err)
		}
	}
	if imageData != nil {
		part, err := writer.CreateFormFile("image", "frame.jpg")
		if err != nil {
			t.Fatalf("failed to create image part: %v", err)
		}
		if _, err := part.Write(imageData); err != nil {
			t.Fatalf("failed to write image data: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// Failing stores simulate storage loss for the 500 paths.

var errStorage = errors.New("storage offline")

type failingRegistry struct{}

func (failingRegistry) Put(context.Context, database.Enrollment) error { return errStorage }
func (failingRegistry) Get(context.Context, string) (*database.Enrollment, error) {
	return nil, errStorage
}
func (failingRegistry) All(context.Context) ([]database.Enrollment, error) { return nil, errStorage }
func (failingRegistry) Count(context.Context) (int, error)                 { return 0, errStorage }
func (failingRegistry) RemoveAll(context.Context) error                    { return errStorage }

type failingLedger struct{}

func (failingLedger) Mark(context.Context, database.Event) (bool, error) { return false, errStorage }
func (failingLedger) All(context.Context) ([]database.Event, error)      { return nil, errStorage }
func (failingLedger) Filter(context.Context, database.EventFilter) ([]database.Event, error) {
	return nil, errStorage
}
func (failingLedger) Count(context.Context) (int, error) { return 0, errStorage }
func (failingLedger) RemoveAll(context.Context) error    { return errStorage }

var (
	_ database.RegistryWriter = failingRegistry{}
	_ database.LedgerWriter   = failingLedger{}
)

// newFailingService builds a service whose storage always errors.
func newFailingService() *attendance.Service {
	return attendance.New(failingRegistry{}, failingLedger{}, attendance.Options{Dim: 4})
}
