package healthprobe

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// HealthChecker provides health and readiness checks.
// The service is ready once the first opportunity refresh has succeeded; a later
// failing refresh marks it degraded without taking it out of rotation.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool

	mu       sync.RWMutex
	degraded string
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetDegraded records why the last refresh failed. An empty reason clears it.
func (h *HealthChecker) SetDegraded(reason string) {
	h.mu.Lock()
	h.degraded = reason
	h.mu.Unlock()
}

func (h *HealthChecker) degradedReason() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.degraded
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime,omitempty"`
	Message string `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "ok",
			Uptime: time.Since(h.startTime).String(),
		}
		if reason := h.degradedReason(); reason != "" {
			resp.Status = "degraded"
			resp.Message = reason
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready, 503 Service Unavailable if not.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:  "not_ready",
				Message: "waiting for first opportunity refresh",
			})
			return
		}

		writeJSON(w, http.StatusOK, HealthResponse{
			Status:  "ready",
			Uptime:  time.Since(h.startTime).String(),
			Message: h.degradedReason(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
