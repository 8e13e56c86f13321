package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onnwee/gratitude/internal/middleware"
)

// stack mirrors the production chain order in cmd/api.
func stack(logger *slog.Logger, resolver middleware.ViewerResolver, limit middleware.RateLimitConfig, h http.Handler) http.Handler {
	store := middleware.NewInMemoryRateLimitStore()
	h = middleware.RateLimiter(store, limit, middleware.UserKeyFunc(), nil)(h)
	h = middleware.Auth(resolver, nil)(h)
	h = middleware.CORS(middleware.DefaultCORSConfig([]string{"https://app.example.com"}))(h)
	h = middleware.Logging(logger)(h)
	return middleware.RequestID(h)
}

type fixedResolver map[string]string

func (f fixedResolver) ViewerID(token string) (string, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return "", errUnknownToken
}

type tokenError string

func (e tokenError) Error() string { return string(e) }

const errUnknownToken = tokenError("unknown token")

func decodeLog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v, log: %s", err, buf.String())
	}
	return entry
}

func TestStack_AuthenticatedRequestIsLogged(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	handler := stack(logger, fixedResolver{"tok": "viewer-9"}, middleware.DefaultFeedLimit(),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if middleware.GetRequestID(r.Context()) == "" {
				t.Error("request ID not available in handler")
			}
			_, _ = w.Write([]byte(`{"post_ids":[]}`))
		}))

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	entry := decodeLog(t, &logBuf)
	if entry["user_id"] != "viewer-9" {
		t.Errorf("user_id = %v, want viewer-9", entry["user_id"])
	}
	if entry["request_id"] != rr.Header().Get(middleware.RequestIDHeader) {
		t.Errorf("logged request_id %v does not match response header %q", entry["request_id"], rr.Header().Get(middleware.RequestIDHeader))
	}
}

func TestStack_RejectedTokenLogsErrorCode(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	handler := stack(logger, fixedResolver{}, middleware.DefaultFeedLimit(), http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	entry := decodeLog(t, &logBuf)
	if entry["error_code"] != "auth_failed" {
		t.Errorf("error_code = %v, want auth_failed", entry["error_code"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
}

func TestStack_RateLimitIsPerViewer(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))
	limit := middleware.RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}

	handler := stack(logger, fixedResolver{"a": "viewer-a", "b": "viewer-b"}, limit,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	serve := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/feed/discover", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := serve("a"); code != http.StatusOK {
		t.Errorf("viewer a first request: %d", code)
	}
	if code := serve("a"); code != http.StatusTooManyRequests {
		t.Errorf("viewer a second request: %d, want 429", code)
	}
	// Same IP, different viewer: separate budget.
	if code := serve("b"); code != http.StatusOK {
		t.Errorf("viewer b first request: %d", code)
	}
}

func TestStack_PreflightSkipsAuth(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))
	handler := stack(logger, fixedResolver{}, middleware.DefaultFeedLimit(), http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodOptions, "/feed", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rr.Code)
	}
}
