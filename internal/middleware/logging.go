// Package middleware provides HTTP middleware components for the feed API server.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

// userIDKey is the context key for the authenticated viewer id.
type userIDKey struct{}

// errorCodeKey is the context key for error code.
type errorCodeKey struct{}

// requestInfoKey is the context key for the per-request record shared with Logging.
type requestInfoKey struct{}

// requestInfo collects values set by inner handlers so outer middleware can
// read them after the handler returns. Context values only flow inward.
type requestInfo struct {
	mu        sync.Mutex
	userID    string
	errorCode string
	traceID   string
}

func infoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

// withRequestInfo attaches a requestInfo unless one is already present.
func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	if info := infoFrom(ctx); info != nil {
		return ctx, info
	}
	info := &requestInfo{}
	return context.WithValue(ctx, requestInfoKey{}, info), info
}

// SetUserID stores the viewer id in the context.
// Called by the Auth middleware after validating the token.
func SetUserID(ctx context.Context, userID string) context.Context {
	if info := infoFrom(ctx); info != nil {
		info.mu.Lock()
		info.userID = userID
		info.mu.Unlock()
	}
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserID retrieves the viewer id from context. Returns empty string if not present.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	if info := infoFrom(ctx); info != nil {
		info.mu.Lock()
		defer info.mu.Unlock()
		return info.userID
	}
	return ""
}

// SetErrorCode stores an error code in the context.
// Called by handlers when returning error responses.
func SetErrorCode(ctx context.Context, code string) context.Context {
	if info := infoFrom(ctx); info != nil {
		info.mu.Lock()
		info.errorCode = code
		info.mu.Unlock()
	}
	return context.WithValue(ctx, errorCodeKey{}, code)
}

// GetErrorCode retrieves the error code from context. Returns empty string if not present.
func GetErrorCode(ctx context.Context) string {
	if code, ok := ctx.Value(errorCodeKey{}).(string); ok {
		return code
	}
	if info := infoFrom(ctx); info != nil {
		info.mu.Lock()
		defer info.mu.Unlock()
		return info.errorCode
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture status code and response size.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
// Only the first call sets the status code, matching http.ResponseWriter.
func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// newResponseWriter creates a new responseWriter with default 200 status.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// NewLogger creates an slog.Logger based on the environment.
// In production (env == "production"), it returns a JSON handler.
// Otherwise, it returns a text handler for development.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	return slog.New(handler)
}

// Logging is a middleware that logs HTTP requests with structured fields:
// method, path, status, latency (ms), size, request ID, user ID (if
// authenticated), trace ID (if sampled) and error_code (for error responses).
//
// A handler panic skips the log entry; place a recovery middleware outside
// of Logging to log those too.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx, info := withRequestInfo(r.Context())
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r.WithContext(ctx))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.statusCode),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
				slog.Int("size", rw.size),
			}

			if requestID := GetRequestID(ctx); requestID != "" {
				attrs = append(attrs, slog.String("request_id", requestID))
			}

			info.mu.Lock()
			userID, errorCode, traceID := info.userID, info.errorCode, info.traceID
			info.mu.Unlock()

			if userID != "" {
				attrs = append(attrs, slog.String("user_id", userID))
			}
			if traceID != "" {
				attrs = append(attrs, slog.String("trace_id", traceID))
			}
			if rw.statusCode >= 400 && errorCode != "" {
				attrs = append(attrs, slog.String("error_code", errorCode))
			}

			switch {
			case rw.statusCode >= 500:
				logger.LogAttrs(ctx, slog.LevelError, "request completed", attrs...)
			case rw.statusCode >= 400:
				logger.LogAttrs(ctx, slog.LevelWarn, "request completed", attrs...)
			default:
				logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
			}
		})
	}
}
