package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Route labels. Dynamic segments are replaced so metric and span cardinality
// stays bounded by the route table, not by user input.
const (
	RoutePersonalizedFeed = "/feed"
	RouteDiscoveryFeed    = "/feed/discover"
	RouteTopicFeed        = "/feed/topic/{topic}"
	RoutePostScore        = "/posts/{id}/score"
	RouteHealth           = "/health"
	RouteReady            = "/ready"
	RouteMetrics          = "/metrics"
	RouteOther            = "other"
)

// normalizePath maps a request path onto its route label.
// Unknown paths collapse to RouteOther.
func normalizePath(path string) string {
	switch path {
	case RoutePersonalizedFeed, RouteDiscoveryFeed, RouteHealth, RouteReady, RouteMetrics:
		return path
	}

	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "feed" && parts[1] == "topic" && parts[2] != "":
		return RouteTopicFeed
	case len(parts) == 3 && parts[0] == "posts" && parts[1] != "" && parts[2] == "score":
		return RoutePostScore
	case strings.HasPrefix(path, "/debug/pprof"):
		return "/debug/pprof"
	}
	return RouteOther
}

// isProbePath reports whether path is a liveness, readiness or scrape endpoint.
func isProbePath(path string) bool {
	return path == RouteHealth || path == RouteReady || path == RouteMetrics
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records request duration, count and
// response size per route. Probe endpoints are excluded.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbePath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			mrw := newMetricsResponseWriter(w)

			next.ServeHTTP(mrw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(mrw.statusCode),
				time.Since(start).Seconds(),
				mrw.size,
			)
		})
	}
}
