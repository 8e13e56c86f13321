package main

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/gratitude/internal/api"
	"github.com/onnwee/gratitude/internal/config"
	"github.com/onnwee/gratitude/internal/health"
	"github.com/onnwee/gratitude/internal/middleware"
)

// serverDeps are the collaborators the HTTP handler is built from.
type serverDeps struct {
	cfg         *config.Config
	logger      *slog.Logger
	composer    api.FeedComposer
	viewers     middleware.ViewerResolver
	limits      middleware.RateLimitStore
	limitConfig middleware.RateLimitConfig
	metrics     *middleware.Metrics
	gatherer    prometheus.Gatherer
	checkers    []health.Checker
}

// newHandler builds the router and wraps it in the middleware chain.
// Requests pass, outermost first: request id, access log, tracing,
// HTTP metrics, CORS, viewer auth, rate limiting, profiling.
func newHandler(d serverDeps) http.Handler {
	var metricsHandler http.Handler
	if d.gatherer != nil {
		metricsHandler = promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{})
	}

	mux := api.NewRouter(
		api.NewFeedHandlers(d.composer, d.logger),
		api.NewHealthHandlers(d.logger, d.checkers...),
		metricsHandler,
	)

	var h http.Handler = mux
	h = middleware.Profiling(middleware.ProfilingConfig{
		Enabled:     d.cfg.ProfilingEnabled,
		Environment: d.cfg.Env,
	}, d.logger)(h)
	h = middleware.RateLimiter(d.limits, d.limitConfig, middleware.UserKeyFunc(), d.metrics)(h)
	h = middleware.Auth(d.viewers, d.metrics)(h)
	h = middleware.CORS(middleware.DefaultCORSConfig(d.cfg.CORSAllowedOrigins))(h)
	h = middleware.HTTPMetrics(d.metrics)(h)
	h = middleware.Tracing(serviceName)(h)
	h = middleware.Logging(d.logger)(h)
	return middleware.RequestID(h)
}
