package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/gratitude/internal/health"
)

// readyTimeout bounds all dependency checks of one readiness probe.
const readyTimeout = 3 * time.Second

// HealthHandlers provides liveness and readiness endpoints for Kubernetes probes.
type HealthHandlers struct {
	checkers []health.Checker
	logger   *slog.Logger
	now      func() time.Time
}

// NewHealthHandlers creates health handlers probing checkers on /ready.
// With no checkers (in-memory store) the service is always ready.
func NewHealthHandlers(logger *slog.Logger, checkers ...health.Checker) *HealthHandlers {
	return &HealthHandlers{
		checkers: checkers,
		logger:   logger,
		now:      time.Now,
	}
}

// HealthResponse represents the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Health handles GET /health (liveness probe).
// If the process can answer, it is alive.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}

	writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Checks:    map[string]string{"runtime": "ok"},
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready (readiness probe).
// Returns 503 when any configured dependency fails its check.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.checkers))
	healthy := true
	for _, c := range h.checkers {
		if err := c.HealthCheck(ctx); err != nil {
			checks[c.Name()] = "error"
			healthy = false
			h.logger.WarnContext(ctx, "readiness check failed",
				slog.String("dependency", c.Name()),
				slog.Any("error", err),
			)
			continue
		}
		checks[c.Name()] = "ok"
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, r, code, HealthResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// allowRead rejects anything but GET and HEAD with 405.
func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	return false
}
