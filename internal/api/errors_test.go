package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/onnwee/gratitude/internal/middleware"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestWriteError_BasicFields(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, context.Background(), http.StatusNotFound, ErrCodeNotFound, "Post not found")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	resp := decodeError(t, w)
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, resp.Error.Code)
	}
	if resp.Error.Message != "Post not found" {
		t.Errorf("expected message 'Post not found', got %q", resp.Error.Message)
	}
}

func TestWriteError_AllErrorCodes(t *testing.T) {
	codes := []string{
		ErrCodeValidation,
		ErrCodeAuthFailed,
		ErrCodeNotFound,
		ErrCodeRateLimited,
		ErrCodeInternal,
		ErrCodeForbidden,
		ErrCodeStorageUnavailable,
		ErrCodeInvalidTopic,
		ErrCodeMethodNotAllowed,
		ErrCodeTimeout,
	}

	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			w := httptest.NewRecorder()
			status := StatusCodeMapping(code)

			WriteError(w, context.Background(), status, code, "message")

			if w.Code != status {
				t.Errorf("expected status %d, got %d", status, w.Code)
			}
			if resp := decodeError(t, w); resp.Error.Code != code {
				t.Errorf("expected code %s, got %s", code, resp.Error.Code)
			}
		})
	}
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidTopic, http.StatusBadRequest},
		{ErrCodeAuthFailed, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeStorageUnavailable, http.StatusServiceUnavailable},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusCodeMapping(tt.code); got != tt.want {
			t.Errorf("StatusCodeMapping(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

// The code written by a handler must show up on the access log line.
func TestWriteError_IntegrationWithLoggingMiddleware(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	handler := middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r.Context(), http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "Feed temporarily unavailable")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/feed", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v (%s)", err, buf.String())
	}
	if entry["error_code"] != ErrCodeStorageUnavailable {
		t.Errorf("expected error_code %s in log, got %v", ErrCodeStorageUnavailable, entry["error_code"])
	}
	if entry["level"] != "ERROR" {
		t.Errorf("expected ERROR level for 503, got %v", entry["level"])
	}
}

func TestErrorResponse_JSONStructure(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, context.Background(), http.StatusBadRequest, ErrCodeInvalidTopic, "Topic must not be blank")

	body := strings.TrimSpace(w.Body.String())
	want := `{"error":{"code":"invalid_topic","message":"Topic must not be blank"}}`
	if body != want {
		t.Errorf("unexpected body:\n got  %s\n want %s", body, want)
	}
}

func TestWriteError_SpecialCharactersInMessage(t *testing.T) {
	w := httptest.NewRecorder()
	msg := `quote " backslash \ and <tag>`

	WriteError(w, context.Background(), http.StatusBadRequest, ErrCodeValidation, msg)

	if resp := decodeError(t, w); resp.Error.Message != msg {
		t.Errorf("expected message %q, got %q", msg, resp.Error.Message)
	}
}
