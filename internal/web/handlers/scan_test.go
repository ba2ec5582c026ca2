package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/kozaktomas/face-attend/internal/database"
)

// scanResponse mirrors the JSON shape of a scan result.
type scanResponse struct {
	Matched bool `json:"matched"`
	Match   *struct {
		Name     string  `json:"name"`
		Distance float64 `json:"distance"`
	} `json:"match"`
	Face *struct {
		FaceIndex int       `json:"face_index"`
		BBox      []float64 `json:"bbox"`
	} `json:"face"`
	Attendance *struct {
		Name    string `json:"name"`
		Date    string `json:"date"`
		Time    string `json:"time"`
		Already bool   `json:"already_recorded"`
	} `json:"attendance"`
}

func newScanService(t *testing.T, faces []capture.Face) *attendance.Service {
	t.Helper()
	sidecar := newFakeSidecar(t, faces)
	return newTestService(t, attendance.Options{
		Detector: capture.NewClient(sidecar.URL, "facenet"),
	})
}

func TestScanRecognizedPerson(t *testing.T) {
	svc := newScanService(t, []capture.Face{{
		Dim:       4,
		Embedding: []float32{0.5, 0.5, 0.5, 0.5},
		BBox:      []float64{0, 0, 200, 200},
		DetScore:  0.99,
	}})
	if err := svc.Register(context.Background(), "Alice", []float32{0.5, 0.5, 0.5, 0.5}); err != nil {
		t.Fatalf("failed to register Alice: %v", err)
	}
	handler := NewScanHandler(svc, NewStatsHandler(svc))

	req := multipartRequest(t, "/api/v1/scan", nil, []byte{0xFF, 0xD8, 0xFF})
	recorder := httptest.NewRecorder()
	handler.Scan(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result scanResponse
	parseJSONResponse(t, recorder, &result)
	if !result.Matched {
		t.Fatal("expected a match for the enrolled face")
	}
	if result.Match.Name != "Alice" {
		t.Errorf("match name = %s; want Alice", result.Match.Name)
	}
	if result.Attendance == nil {
		t.Fatal("a recognized scan should record attendance")
	}
	if result.Attendance.Already {
		t.Error("first scan of the day should not report already_recorded")
	}

	// A second scan the same day is a no-op mark.
	recorder = httptest.NewRecorder()
	handler.Scan(recorder, multipartRequest(t, "/api/v1/scan", nil, []byte{0xFF, 0xD8, 0xFF}))
	assertStatusCode(t, recorder, http.StatusOK)

	var second scanResponse
	parseJSONResponse(t, recorder, &second)
	if second.Attendance == nil || !second.Attendance.Already {
		t.Errorf("second scan should report already_recorded, got %+v", second.Attendance)
	}
}

func TestScanUnknownFace(t *testing.T) {
	svc := newScanService(t, []capture.Face{{
		Dim:       4,
		Embedding: []float32{9, 9, 9, 9},
		BBox:      []float64{0, 0, 200, 200},
	}})
	if err := svc.Register(context.Background(), "Alice", []float32{0, 0, 0, 0}); err != nil {
		t.Fatalf("failed to register Alice: %v", err)
	}
	handler := NewScanHandler(svc, NewStatsHandler(svc))

	recorder := httptest.NewRecorder()
	handler.Scan(recorder, multipartRequest(t, "/api/v1/scan", nil, []byte{0xFF, 0xD8, 0xFF}))

	assertStatusCode(t, recorder, http.StatusOK)

	var result scanResponse
	parseJSONResponse(t, recorder, &result)
	if result.Matched {
		t.Error("a face far from everyone should not match")
	}
	if result.Face == nil {
		t.Error("the detected face should be reported even without a match")
	}
	if result.Attendance != nil {
		t.Error("an unmatched scan must not record attendance")
	}
}

func TestScanNoFaceInFrame(t *testing.T) {
	svc := newScanService(t, nil)
	if err := svc.Register(context.Background(), "Alice", []float32{0, 0, 0, 0}); err != nil {
		t.Fatalf("failed to register Alice: %v", err)
	}
	handler := NewScanHandler(svc, NewStatsHandler(svc))

	recorder := httptest.NewRecorder()
	handler.Scan(recorder, multipartRequest(t, "/api/v1/scan", nil, []byte{0xFF, 0xD8, 0xFF}))

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	assertJSONError(t, recorder, "no face detected in the frame")
}

func TestScanFallsBackToCamera(t *testing.T) {
	camera := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xFF, 0xD8, 0xFF, 0x01, 0x02})
	}))
	t.Cleanup(camera.Close)

	sidecar := newFakeSidecar(t, []capture.Face{{
		Dim:       4,
		Embedding: []float32{1, 0, 0, 0},
		BBox:      []float64{0, 0, 100, 100},
	}})
	svc := newTestService(t, attendance.Options{
		Detector: capture.NewClient(sidecar.URL, "facenet"),
		Camera:   capture.NewCamera(camera.URL),
	})
	if err := svc.Register(context.Background(), "Alice", []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("failed to register Alice: %v", err)
	}
	handler := NewScanHandler(svc, NewStatsHandler(svc))

	// No frame in the request: the handler passes nil and the service
	// snapshots the camera.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", nil)
	recorder := httptest.NewRecorder()
	handler.Scan(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result scanResponse
	parseJSONResponse(t, recorder, &result)
	if !result.Matched || result.Match.Name != "Alice" {
		t.Errorf("camera scan should match Alice, got %+v", result.Match)
	}
}

func TestScanNoFrameNoCamera(t *testing.T) {
	svc := newScanService(t, nil)
	handler := NewScanHandler(svc, NewStatsHandler(svc))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", nil)
	recorder := httptest.NewRecorder()
	handler.Scan(recorder, req)

	assertStatusCode(t, recorder, http.StatusInternalServerError)
}

func TestIdentifyDoesNotMarkAttendance(t *testing.T) {
	svc := newScanService(t, []capture.Face{{
		Dim:       4,
		Embedding: []float32{0.5, 0.5, 0.5, 0.5},
		BBox:      []float64{0, 0, 200, 200},
	}})
	if err := svc.Register(context.Background(), "Alice", []float32{0.5, 0.5, 0.5, 0.5}); err != nil {
		t.Fatalf("failed to register Alice: %v", err)
	}
	handler := NewScanHandler(svc, NewStatsHandler(svc))

	recorder := httptest.NewRecorder()
	handler.Identify(recorder, multipartRequest(t, "/api/v1/identify", nil, []byte{0xFF, 0xD8, 0xFF}))

	assertStatusCode(t, recorder, http.StatusOK)

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["matched"] != true {
		t.Errorf("expected matched true, got %v", result["matched"])
	}

	events, err := svc.Log(context.Background(), database.EventFilter{})
	if err != nil {
		t.Fatalf("failed to read attendance log: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("identify must not record attendance, found %d events", len(events))
	}
}

func TestIdentifyMissingImage(t *testing.T) {
	svc := newTestService(t, attendance.Options{})
	handler := NewScanHandler(svc, NewStatsHandler(svc))

	recorder := httptest.NewRecorder()
	handler.Identify(recorder, multipartRequest(t, "/api/v1/identify", nil, nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "image file is required")
}
