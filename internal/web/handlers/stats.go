package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/face-attend/internal/attendance"
)

// statsCacheTTL is short because attendance numbers change all morning;
// the cache only absorbs kiosk UI polling.
const statsCacheTTL = 30 * time.Second

// statsCache holds cached stats with expiry
type statsCache struct {
	mu        sync.RWMutex
	data      *attendance.Summary
	expiresAt time.Time
}

func (c *statsCache) get() (*attendance.Summary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *attendance.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	service *attendance.Service
	cache   statsCache
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(svc *attendance.Service) *StatsHandler {
	return &StatsHandler{
		service: svc,
	}
}

// InvalidateCache clears the cached stats so the next request fetches fresh data
func (h *StatsHandler) InvalidateCache() {
	h.cache.invalidate()
}

// Get returns the dashboard summary: enrolled people, total events and
// today's count.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.cache.get(); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := h.service.Summary(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.cache.set(summary)
	respondJSON(w, http.StatusOK, summary)
}
