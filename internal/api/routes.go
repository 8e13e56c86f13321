package api

import (
	"net/http"
)

// NewRouter registers the feed and probe endpoints on a fresh ServeMux.
// metrics is mounted on /metrics when non-nil.
func NewRouter(feeds *FeedHandlers, probes *HealthHandlers, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /feed", feeds.PersonalizedFeed)
	mux.HandleFunc("GET /feed/discover", feeds.DiscoveryFeed)
	mux.HandleFunc("GET /feed/topic/{topic}", feeds.TopicFeed)
	mux.HandleFunc("GET /posts/{id}/score", feeds.PostScore)

	mux.HandleFunc("/health", probes.Health)
	mux.HandleFunc("/ready", probes.Ready)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Not found")
	})
	return mux
}
