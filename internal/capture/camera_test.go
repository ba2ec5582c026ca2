package capture

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSnapshot(t *testing.T) {
	frame := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02, 0x03}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET request, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(frame)
	}))
	defer server.Close()

	camera := NewCamera(server.URL)
	got, err := camera.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("Snapshot returned %v; want %v", got, frame)
	}
}

func TestSnapshotStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "camera offline", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	camera := NewCamera(server.URL)
	if _, err := camera.Snapshot(context.Background()); err == nil {
		t.Fatal("Snapshot should fail on non-200 status")
	}
}

func TestSnapshotEmptyFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	camera := NewCamera(server.URL)
	if _, err := camera.Snapshot(context.Background()); err == nil {
		t.Fatal("Snapshot should fail on an empty frame")
	}
}

func TestSnapshotNoURL(t *testing.T) {
	camera := NewCamera("")
	if _, err := camera.Snapshot(context.Background()); err == nil {
		t.Fatal("Snapshot should fail when no camera URL is configured")
	}
}
