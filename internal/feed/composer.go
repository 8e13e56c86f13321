// Package feed composes ranked post feeds from the post store.
//
// Three feeds are offered: personalized (followed authors boosted), discovery
// (everyone, capped) and topic (case-sensitive body search). All share one
// ordering: score descending, then newest first, then post id ascending.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/gratitude/internal/post"
	"github.com/onnwee/gratitude/internal/ranking"
	"github.com/onnwee/gratitude/internal/tracing"
)

// DefaultDiscoveryLimit is the maximum length of the discovery feed.
const DefaultDiscoveryLimit = 50

// Feed names used in metrics, spans and logs.
const (
	FeedPersonalized = "personalized"
	FeedDiscovery    = "discovery"
	FeedTopic        = "topic"

	feedExplain = "explain"
)

// Config holds composer settings.
type Config struct {
	// Weights used for scoring. Nil means ranking.DefaultWeights.
	Weights *ranking.Weights
	// DiscoveryLimit caps the discovery feed. Zero or negative means DefaultDiscoveryLimit.
	DiscoveryLimit int
	// ExcludeOwnPosts drops the viewer's own posts from the personalized feed.
	ExcludeOwnPosts bool
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Composer builds feeds. It holds only immutable configuration and
// collaborators, so concurrent calls are independent.
type Composer struct {
	store          post.Store
	weights        *ranking.Weights
	discoveryLimit int
	excludeOwn     bool
	now            func() time.Time
	logger         *slog.Logger
	metrics        *Metrics
}

// NewComposer creates a Composer. logger and metrics may be nil.
func NewComposer(store post.Store, cfg Config, logger *slog.Logger, metrics *Metrics) *Composer {
	if cfg.Weights == nil {
		cfg.Weights = ranking.DefaultWeights()
	}
	if cfg.DiscoveryLimit <= 0 {
		cfg.DiscoveryLimit = DefaultDiscoveryLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		store:          store,
		weights:        cfg.Weights,
		discoveryLimit: cfg.DiscoveryLimit,
		excludeOwn:     cfg.ExcludeOwnPosts,
		now:            cfg.Now,
		logger:         logger,
		metrics:        metrics,
	}
}

// PersonalizedFeed ranks every non-draft post for viewerID, applying the
// following multiplier to posts by authors the viewer actively follows.
// Each post appears exactly once and the result is not truncated.
func (c *Composer) PersonalizedFeed(ctx context.Context, viewerID string) (posts []*post.Post, err error) {
	if viewerID == "" {
		return nil, ErrViewerRequired
	}

	ctx, endSpan := tracing.StartSpan(ctx, "feed.personalized", attribute.String("feed", FeedPersonalized))
	defer func() { endSpan(err) }()
	var scored int
	defer c.track(FeedPersonalized, time.Now(), &scored, &err)

	followees, err := c.store.ListActiveFollowees(ctx, viewerID)
	if err != nil {
		return nil, c.storageFailure(ctx, FeedPersonalized, "list followees", err)
	}

	authorIDs := make([]string, 0, len(followees))
	for id := range followees {
		authorIDs = append(authorIDs, id)
	}
	sort.Strings(authorIDs)

	followed, err := c.store.ListPostsByAuthors(ctx, authorIDs)
	if err != nil {
		return nil, c.storageFailure(ctx, FeedPersonalized, "list followed posts", err)
	}
	all, err := c.store.ListNonDraftPosts(ctx)
	if err != nil {
		return nil, c.storageFailure(ctx, FeedPersonalized, "list posts", err)
	}

	candidates := union(followed, all)
	if c.excludeOwn {
		candidates = filter(candidates, func(p *post.Post) bool { return p.AuthorID != viewerID })
	}

	c.logger.DebugContext(ctx, "composing personalized feed",
		slog.String("viewer_id", viewerID),
		slog.Int("followees", len(followees)),
		slog.Int("followed_posts", len(followed)),
		slog.Int("candidates", len(candidates)))

	posts, err = c.rank(ctx, FeedPersonalized, candidates, func(p *post.Post) ranking.Relation {
		if _, ok := followees[p.AuthorID]; ok {
			return ranking.RelationFollowing
		}
		return ranking.RelationNone
	})
	scored = len(posts)
	return posts, err
}

// DiscoveryFeed ranks every non-draft post with no viewer relation and
// returns at most the discovery limit.
func (c *Composer) DiscoveryFeed(ctx context.Context) (posts []*post.Post, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "feed.discovery", attribute.String("feed", FeedDiscovery))
	defer func() { endSpan(err) }()
	var scored int
	defer c.track(FeedDiscovery, time.Now(), &scored, &err)

	all, err := c.store.ListNonDraftPosts(ctx)
	if err != nil {
		return nil, c.storageFailure(ctx, FeedDiscovery, "list posts", err)
	}

	ranked, err := c.rank(ctx, FeedDiscovery, dedupe(all), noRelation)
	if err != nil {
		return nil, err
	}
	scored = len(ranked)
	if len(ranked) > c.discoveryLimit {
		ranked = ranked[:c.discoveryLimit]
	}
	return ranked, nil
}

// TopicFeed ranks the non-draft posts whose body contains topic,
// compared case-sensitively. The topic is matched verbatim; a topic that is
// empty or only whitespace returns ErrInvalidTopic.
func (c *Composer) TopicFeed(ctx context.Context, topic string) (posts []*post.Post, err error) {
	if strings.TrimSpace(topic) == "" {
		c.metrics.observe(FeedTopic, OutcomeInvalid, 0, 0)
		return nil, ErrInvalidTopic
	}

	ctx, endSpan := tracing.StartSpan(ctx, "feed.topic", attribute.String("feed", FeedTopic))
	defer func() { endSpan(err) }()
	var scored int
	defer c.track(FeedTopic, time.Now(), &scored, &err)

	matches, err := c.store.SearchPostsByContent(ctx, topic)
	if err != nil {
		return nil, c.storageFailure(ctx, FeedTopic, "search posts", err)
	}

	posts, err = c.rank(ctx, FeedTopic, dedupe(matches), noRelation)
	scored = len(posts)
	return posts, err
}

// rank scores candidates with one batched engagement lookup and sorts them.
// Drafts are dropped here too, whatever the store returned.
func (c *Composer) rank(ctx context.Context, feed string, candidates []*post.Post, relationOf func(*post.Post) ranking.Relation) ([]*post.Post, error) {
	candidates = filter(candidates, func(p *post.Post) bool { return !p.IsDraft })
	if len(candidates) == 0 {
		return []*post.Post{}, nil
	}

	ids := IDs(candidates)
	counts, err := c.store.CountInteractionsByPost(ctx, ids)
	if err != nil {
		return nil, c.storageFailure(ctx, feed, "count interactions", err)
	}

	now := c.now()
	scored := make([]scoredPost, len(candidates))
	for i, p := range candidates {
		scored[i] = scoredPost{
			post:  p,
			score: ranking.Score(paramsOf(p), engagementOf(counts[p.ID]), relationOf(p), now, c.weights),
		}
	}

	sortScored(scored)

	tracing.SetAttributes(ctx, attribute.Int("feed.candidates", len(scored)))

	out := make([]*post.Post, len(scored))
	for i, s := range scored {
		out[i] = s.post
	}
	return out, nil
}

// Explanation breaks down the score of a single post for one viewer.
type Explanation struct {
	PostID         string             `json:"post_id"`
	Score          float64            `json:"score"`
	Relation       string             `json:"relation"`
	Engagement     ranking.Engagement `json:"engagement"`
	CompletionRate float64            `json:"completion_rate"`
	ReportCount    int                `json:"report_count"`
	HasImage       bool               `json:"has_image"`
	Type           string             `json:"type"`
	TypeMultiplier float64            `json:"type_multiplier"`
	Recent         bool               `json:"recent"`
}

// ExplainScore scores one post as it would be ranked for viewerID, which may
// be empty for an anonymous viewer. Drafts are reported as post.ErrPostNotFound.
func (c *Composer) ExplainScore(ctx context.Context, postID, viewerID string) (_ *Explanation, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "feed.explain", attribute.String("post_id", postID))
	defer func() { endSpan(err) }()

	p, err := c.store.GetPost(ctx, postID)
	if errors.Is(err, post.ErrPostNotFound) {
		return nil, post.ErrPostNotFound
	}
	if err != nil {
		return nil, c.storageFailure(ctx, feedExplain, "get post", err)
	}
	if p.IsDraft {
		return nil, post.ErrPostNotFound
	}

	rel := ranking.RelationNone
	if viewerID != "" {
		following, err := c.store.IsFollowing(ctx, viewerID, p.AuthorID)
		if err != nil {
			return nil, c.storageFailure(ctx, feedExplain, "check follow", err)
		}
		if following {
			rel = ranking.RelationFollowing
		}
	}

	var counts post.EngagementCounts
	for _, t := range []post.InteractionType{post.InteractionHeart, post.InteractionComment, post.InteractionShare} {
		n, err := c.store.CountInteractions(ctx, p.ID, t)
		if err != nil {
			return nil, c.storageFailure(ctx, feedExplain, "count interactions", err)
		}
		switch t {
		case post.InteractionHeart:
			counts.Hearts = n
		case post.InteractionComment:
			counts.Comments = n
		case post.InteractionShare:
			counts.Shares = n
		}
	}

	now := c.now()
	params := paramsOf(p)
	engagement := engagementOf(counts)
	return &Explanation{
		PostID:         p.ID,
		Score:          ranking.Score(params, engagement, rel, now, c.weights),
		Relation:       rel.String(),
		Engagement:     engagement,
		CompletionRate: p.CompletionRate,
		ReportCount:    p.ReportCount,
		HasImage:       params.HasImage,
		Type:           p.Type,
		TypeMultiplier: ranking.TypeMultiplier(p.Type, c.weights),
		Recent:         ranking.IsRecent(p.CreatedAt, now, c.weights.RecencyWindow()),
	}, nil
}

// IDs projects posts to their identifiers, preserving order.
func IDs(posts []*post.Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

// storageFailure logs a failed store read and wraps it in
// ErrStorageUnavailable. A read that failed because ctx was canceled or timed
// out is not an outage: it is returned as the context error and logged at
// debug level.
func (c *Composer) storageFailure(ctx context.Context, feed, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		c.logger.DebugContext(ctx, "feed composition abandoned",
			slog.String("feed", feed),
			slog.String("operation", op),
			slog.String("error", ctxErr.Error()))
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	c.logger.ErrorContext(ctx, "feed storage failure",
		slog.String("feed", feed),
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return storageError(op, err)
}

// track records one composition. scored is the number of candidates ranked,
// before any truncation.
func (c *Composer) track(feed string, start time.Time, scored *int, err *error) {
	outcome := OutcomeSuccess
	switch {
	case *err == nil:
	case errors.Is(*err, ErrStorageUnavailable):
		outcome = OutcomeStorageError
	case errors.Is(*err, context.Canceled), errors.Is(*err, context.DeadlineExceeded):
		outcome = OutcomeCanceled
	default:
		outcome = OutcomeStorageError
	}
	c.metrics.observe(feed, outcome, *scored, time.Since(start).Seconds())
}

type scoredPost struct {
	post  *post.Post
	score float64
}

// sortScored orders by score desc, created_at desc, id asc.
func sortScored(s []scoredPost) {
	sort.SliceStable(s, func(i, j int) bool {
		a, b := s[i], s[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.post.CreatedAt.Equal(b.post.CreatedAt) {
			return a.post.CreatedAt.After(b.post.CreatedAt)
		}
		return a.post.ID < b.post.ID
	})
}

func noRelation(*post.Post) ranking.Relation { return ranking.RelationNone }

func paramsOf(p *post.Post) ranking.PostParams {
	return ranking.PostParams{
		HasImage:       p.HasImage(),
		Type:           p.Type,
		CompletionRate: p.CompletionRate,
		ReportCount:    p.ReportCount,
		CreatedAt:      p.CreatedAt,
	}
}

func engagementOf(c post.EngagementCounts) ranking.Engagement {
	return ranking.Engagement{
		Hearts:   c.Hearts,
		Comments: c.Comments,
		Shares:   c.Shares,
	}
}

// union concatenates lists keeping the first occurrence of each post id.
func union(lists ...[]*post.Post) []*post.Post {
	seen := make(map[string]struct{})
	var out []*post.Post
	for _, list := range lists {
		for _, p := range list {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func dedupe(posts []*post.Post) []*post.Post {
	return union(posts)
}

func filter(posts []*post.Post, keep func(*post.Post) bool) []*post.Post {
	out := posts[:0:0]
	for _, p := range posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
