package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// stubChecker is a named health check with a fixed result.
type stubChecker struct {
	name string
	err  error
	seen context.Context
}

func (s *stubChecker) Name() string { return s.name }

func (s *stubChecker) HealthCheck(ctx context.Context) error {
	s.seen = ctx
	return s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHealth_Success(t *testing.T) {
	handlers := NewHealthHandlers(discardLogger(), &stubChecker{name: "postgres", err: errors.New("down")})

	w := httptest.NewRecorder()
	handlers.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	// Liveness never consults dependencies.
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	resp := decodeHealth(t, w)
	if resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %s", resp.Status)
	}
	if resp.Checks["runtime"] != "ok" {
		t.Errorf("expected runtime check to be 'ok', got %s", resp.Checks["runtime"])
	}
	if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
		t.Errorf("timestamp is not valid RFC3339: %v", err)
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	handlers := NewHealthHandlers(discardLogger())

	w := httptest.NewRecorder()
	handlers.Health(w, httptest.NewRequest(http.MethodPost, "/health", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != "GET, HEAD" {
		t.Errorf("expected Allow header, got %q", allow)
	}
}

func TestReady_NoCheckers(t *testing.T) {
	handlers := NewHealthHandlers(discardLogger())

	w := httptest.NewRecorder()
	handlers.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestReady_AllHealthy(t *testing.T) {
	db := &stubChecker{name: "postgres"}
	redis := &stubChecker{name: "redis"}
	handlers := NewHealthHandlers(discardLogger(), db, redis)

	w := httptest.NewRecorder()
	handlers.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	resp := decodeHealth(t, w)
	if resp.Checks["postgres"] != "ok" || resp.Checks["redis"] != "ok" {
		t.Errorf("expected both checks ok, got %v", resp.Checks)
	}
	if _, ok := db.seen.Deadline(); !ok {
		t.Error("expected checks to run under a deadline")
	}
}

func TestReady_DependencyDown(t *testing.T) {
	handlers := NewHealthHandlers(discardLogger(),
		&stubChecker{name: "postgres"},
		&stubChecker{name: "redis", err: errors.New("connection refused")},
	)

	w := httptest.NewRecorder()
	handlers.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
	resp := decodeHealth(t, w)
	if resp.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got %s", resp.Status)
	}
	if resp.Checks["redis"] != "error" {
		t.Errorf("expected redis check 'error', got %q", resp.Checks["redis"])
	}
	if resp.Checks["postgres"] != "ok" {
		t.Errorf("expected postgres check 'ok', got %q", resp.Checks["postgres"])
	}
}
