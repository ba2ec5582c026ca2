package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/attendance"
)

func statsFixture(t *testing.T) (*fakeClock, *attendance.Service, *StatsHandler) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(t, attendance.Options{Now: clock.Now})

	for name, embedding := range map[string][]float32{
		"Alice": {1, 0, 0, 0},
		"Bob":   {0, 1, 0, 0},
	} {
		if err := svc.Register(context.Background(), name, embedding); err != nil {
			t.Fatalf("failed to register %s: %v", name, err)
		}
	}
	for _, name := range []string{"Alice", "Bob"} {
		if _, err := svc.MarkAttendance(context.Background(), name); err != nil {
			t.Fatalf("failed to mark %s: %v", name, err)
		}
	}

	return clock, svc, NewStatsHandler(svc)
}

func getStats(t *testing.T, handler *StatsHandler) attendance.Summary {
	t.Helper()
	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	var summary attendance.Summary
	parseJSONResponse(t, recorder, &summary)
	return summary
}

func TestStatsGet(t *testing.T) {
	_, _, handler := statsFixture(t)

	summary := getStats(t, handler)
	if summary.People != 2 {
		t.Errorf("people = %d; want 2", summary.People)
	}
	if summary.Events != 2 {
		t.Errorf("events = %d; want 2", summary.Events)
	}
	if summary.Today != 2 {
		t.Errorf("today = %d; want 2", summary.Today)
	}
}

func TestStatsCaching(t *testing.T) {
	clock, svc, handler := statsFixture(t)

	before := getStats(t, handler)
	if before.Events != 2 {
		t.Fatalf("events = %d; want 2", before.Events)
	}

	// Mark another event the next day. The cached response does not see it.
	clock.now = clock.now.Add(24 * time.Hour)
	if _, err := svc.MarkAttendance(context.Background(), "Alice"); err != nil {
		t.Fatalf("failed to mark Alice: %v", err)
	}

	cached := getStats(t, handler)
	if cached.Events != 2 {
		t.Errorf("cached events = %d; want 2 until invalidation", cached.Events)
	}

	handler.InvalidateCache()

	fresh := getStats(t, handler)
	if fresh.Events != 3 {
		t.Errorf("events after invalidation = %d; want 3", fresh.Events)
	}
	if fresh.Today != 1 {
		t.Errorf("today after invalidation = %d; want 1", fresh.Today)
	}
}

func TestStatsStorageFailure(t *testing.T) {
	handler := NewStatsHandler(newFailingService())

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assertStatusCode(t, recorder, http.StatusInternalServerError)
}
