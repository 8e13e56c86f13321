package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/onnwee/gratitude/internal/feed"
	"github.com/onnwee/gratitude/internal/middleware"
	"github.com/onnwee/gratitude/internal/post"
)

// maxPageLimit bounds the limit query parameter.
const maxPageLimit = 100

// FeedComposer is the composer surface the handlers depend on.
type FeedComposer interface {
	PersonalizedFeed(ctx context.Context, viewerID string) ([]*post.Post, error)
	DiscoveryFeed(ctx context.Context) ([]*post.Post, error)
	TopicFeed(ctx context.Context, topic string) ([]*post.Post, error)
	ExplainScore(ctx context.Context, postID, viewerID string) (*feed.Explanation, error)
}

// FeedHandlers serves the ranked feeds over HTTP.
type FeedHandlers struct {
	composer FeedComposer
	logger   *slog.Logger
}

// NewFeedHandlers creates feed handlers. logger may be nil.
func NewFeedHandlers(composer FeedComposer, logger *slog.Logger) *FeedHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHandlers{composer: composer, logger: logger}
}

// FeedResponse is the body of every feed endpoint.
type FeedResponse struct {
	PostIDs    []string     `json:"post_ids"`
	Posts      []*post.Post `json:"posts"`
	Total      int          `json:"total"`
	NextOffset *int         `json:"next_offset,omitempty"`
}

// page is a caller-requested window over a ranked feed.
// A zero limit means the whole feed.
type page struct {
	limit  int
	offset int
}

// parsePage reads the optional limit and offset query parameters.
func parsePage(r *http.Request) (page, error) {
	var p page
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageLimit {
			return p, errors.New("limit must be an integer between 1 and 100")
		}
		p.limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return p, errors.New("offset must be a non-negative integer")
		}
		p.offset = n
	}
	return p, nil
}

// apply slices posts to the page and reports the next offset, if any.
func (p page) apply(posts []*post.Post) ([]*post.Post, *int) {
	if p.offset >= len(posts) {
		return []*post.Post{}, nil
	}
	posts = posts[p.offset:]
	if p.limit == 0 || p.limit >= len(posts) {
		return posts, nil
	}
	next := p.offset + p.limit
	return posts[:p.limit], &next
}

// PersonalizedFeed handles GET /feed for the authenticated viewer.
func (h *FeedHandlers) PersonalizedFeed(w http.ResponseWriter, r *http.Request) {
	pg, ok := h.page(w, r)
	if !ok {
		return
	}

	viewerID := middleware.GetUserID(r.Context())
	posts, err := h.composer.PersonalizedFeed(r.Context(), viewerID)
	if err != nil {
		h.writeFeedError(w, r, err)
		return
	}
	h.writeFeed(w, r, posts, pg)
}

// DiscoveryFeed handles GET /feed/discover.
func (h *FeedHandlers) DiscoveryFeed(w http.ResponseWriter, r *http.Request) {
	pg, ok := h.page(w, r)
	if !ok {
		return
	}

	posts, err := h.composer.DiscoveryFeed(r.Context())
	if err != nil {
		h.writeFeedError(w, r, err)
		return
	}
	h.writeFeed(w, r, posts, pg)
}

// TopicFeed handles GET /feed/topic/{topic}. The path value is already
// unescaped by the router.
func (h *FeedHandlers) TopicFeed(w http.ResponseWriter, r *http.Request) {
	pg, ok := h.page(w, r)
	if !ok {
		return
	}

	posts, err := h.composer.TopicFeed(r.Context(), r.PathValue("topic"))
	if err != nil {
		h.writeFeedError(w, r, err)
		return
	}
	h.writeFeed(w, r, posts, pg)
}

// PostScore handles GET /posts/{id}/score. The viewer is optional; without
// one the post is scored with no relation.
func (h *FeedHandlers) PostScore(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "Post id is required")
		return
	}

	exp, err := h.composer.ExplainScore(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeFeedError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, exp)
}

func (h *FeedHandlers) page(w http.ResponseWriter, r *http.Request) (page, bool) {
	pg, err := parsePage(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, err.Error())
		return pg, false
	}
	return pg, true
}

func (h *FeedHandlers) writeFeed(w http.ResponseWriter, r *http.Request, posts []*post.Post, pg page) {
	total := len(posts)
	window, next := pg.apply(posts)
	writeJSON(w, r, http.StatusOK, FeedResponse{
		PostIDs:    feed.IDs(window),
		Posts:      window,
		Total:      total,
		NextOffset: next,
	})
}

// writeFeedError maps composer errors onto the error envelope. Storage
// failures are logged by the composer; their details never reach the
// response.
func (h *FeedHandlers) writeFeedError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		h.logger.DebugContext(ctx, "feed request canceled", slog.Any("error", err))
	case errors.Is(err, feed.ErrInvalidTopic):
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidTopic, "Topic must not be blank")
	case errors.Is(err, feed.ErrViewerRequired):
		w.Header().Set("WWW-Authenticate", `Bearer realm="feed"`)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
	case errors.Is(err, post.ErrPostNotFound):
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Post not found")
	case errors.Is(err, feed.ErrStorageUnavailable):
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "Feed temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.WarnContext(ctx, "feed request timed out", slog.Any("error", err))
		WriteError(w, ctx, http.StatusGatewayTimeout, ErrCodeTimeout, "Feed request timed out")
	default:
		h.logger.ErrorContext(ctx, "feed request failed", slog.Any("error", err))
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
	}
}
