package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strings"
)

// ProfilingConfig configures the profiling middleware.
type ProfilingConfig struct {
	// Enabled controls whether /debug/pprof/* is served.
	Enabled bool
	// Environment is checked again here; production never serves profiles.
	Environment string
}

// Profiling returns middleware that serves pprof endpoints under /debug/pprof/
// and passes every other path through.
//
// Profiles expose memory contents and internals. Enable in development only.
func Profiling(config ProfilingConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !config.Enabled {
			return next
		}
		if config.Environment == "production" || config.Environment == "prod" {
			logger.Error("refusing to enable profiling in production",
				slog.String("environment", config.Environment),
			)
			return next
		}

		logger.Warn("profiling endpoints enabled",
			slog.String("environment", config.Environment),
			slog.String("endpoints", "/debug/pprof/*"),
		)

		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/debug/pprof/") {
				mux.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
