package post

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type followKey struct {
	follower string
	followee string
}

type heartKey struct {
	user string
	post string
}

// InMemoryStore is an in-memory implementation of Store with the write
// operations needed to seed it. Thread-safe via RWMutex; all reads return copies.
type InMemoryStore struct {
	mu           sync.RWMutex
	posts        map[string]*Post
	follows      map[followKey]*Follow
	interactions map[string]*Interaction
	hearts       map[heartKey]string // (user, post) -> heart interaction id
	now          func() time.Time
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		posts:        make(map[string]*Post),
		follows:      make(map[followKey]*Follow),
		interactions: make(map[string]*Interaction),
		hearts:       make(map[heartKey]string),
		now:          time.Now,
	}
}

// CreatePost validates and stores a new post with a generated UUID.
// A zero CreatedAt is stamped with the current time; an empty Type defaults to simple_text.
func (s *InMemoryStore) CreatePost(ctx context.Context, p *Post) error {
	if p.Type == "" {
		p.Type = TypeSimpleText
	}
	if err := Validate(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	p.ID = uuid.New().String()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	s.posts[p.ID] = copyPost(p)
	return nil
}

// UpdatePost applies a partial update and returns the updated post.
func (s *InMemoryStore) UpdatePost(ctx context.Context, id string, patch Patch) (*Post, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	if patch.Empty() {
		return copyPost(existing), nil
	}

	patch.Apply(existing, s.now().UTC())
	return copyPost(existing), nil
}

// ReportPost increments a post's report count.
func (s *InMemoryStore) ReportPost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return ErrPostNotFound
	}
	p.ReportCount++
	return nil
}

// Follow creates an active follow edge from followerID to followeeID.
func (s *InMemoryStore) Follow(ctx context.Context, followerID, followeeID string) error {
	return s.FollowWithStatus(ctx, followerID, followeeID, FollowActive)
}

// FollowWithStatus creates a follow edge with an explicit status.
func (s *InMemoryStore) FollowWithStatus(ctx context.Context, followerID, followeeID string, status FollowStatus) error {
	if followerID == followeeID {
		return ErrSelfFollow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := followKey{follower: followerID, followee: followeeID}
	if _, exists := s.follows[key]; exists {
		return ErrAlreadyFollowing
	}
	s.follows[key] = &Follow{
		FollowerID: followerID,
		FolloweeID: followeeID,
		Status:     status,
		CreatedAt:  s.now().UTC(),
	}
	return nil
}

// Unfollow removes the follow edge from followerID to followeeID.
func (s *InMemoryStore) Unfollow(ctx context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := followKey{follower: followerID, followee: followeeID}
	if _, exists := s.follows[key]; !exists {
		return ErrNotFollowing
	}
	delete(s.follows, key)
	return nil
}

// AddInteraction records an interaction. A second heart by the same user on
// the same post returns ErrAlreadyHearted.
func (s *InMemoryStore) AddInteraction(ctx context.Context, userID, postID string, t InteractionType, content string) (*Interaction, error) {
	if !t.Valid() {
		return nil, ErrInvalidInteractionType
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, ErrPostNotFound
	}

	hk := heartKey{user: userID, post: postID}
	if t == InteractionHeart {
		if _, exists := s.hearts[hk]; exists {
			return nil, ErrAlreadyHearted
		}
	}

	in := &Interaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		PostID:    postID,
		Type:      t,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	s.interactions[in.ID] = in
	if t == InteractionHeart {
		s.hearts[hk] = in.ID
	}

	out := *in
	return &out, nil
}

// RemoveHeart deletes a user's heart on a post.
func (s *InMemoryStore) RemoveHeart(ctx context.Context, userID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hk := heartKey{user: userID, post: postID}
	id, ok := s.hearts[hk]
	if !ok {
		return ErrInteractionNotFound
	}
	delete(s.hearts, hk)
	delete(s.interactions, id)
	return nil
}

// ListNonDraftPosts returns every non-draft post, newest first.
func (s *InMemoryStore) ListNonDraftPosts(ctx context.Context) ([]*Post, error) {
	return s.filterPosts(ctx, func(*Post) bool { return true })
}

// ListPostsByAuthors returns the non-draft posts written by any of authorIDs.
func (s *InMemoryStore) ListPostsByAuthors(ctx context.Context, authorIDs []string) ([]*Post, error) {
	if len(authorIDs) == 0 {
		return []*Post{}, nil
	}
	authors := make(map[string]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = struct{}{}
	}
	return s.filterPosts(ctx, func(p *Post) bool {
		_, ok := authors[p.AuthorID]
		return ok
	})
}

// SearchPostsByContent returns non-draft posts whose body contains substring (case-sensitive).
func (s *InMemoryStore) SearchPostsByContent(ctx context.Context, substring string) ([]*Post, error) {
	return s.filterPosts(ctx, func(p *Post) bool {
		return strings.Contains(p.Body, substring)
	})
}

// GetPost returns a post by id.
func (s *InMemoryStore) GetPost(ctx context.Context, id string) (*Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return copyPost(p), nil
}

// ListActiveFollowees returns the ids userID actively follows.
func (s *InMemoryStore) ListActiveFollowees(ctx context.Context, userID string) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	followees := make(map[string]struct{})
	for key, f := range s.follows {
		if key.follower == userID && f.Status == FollowActive {
			followees[key.followee] = struct{}{}
		}
	}
	return followees, nil
}

// IsFollowing reports whether followerID actively follows authorID.
func (s *InMemoryStore) IsFollowing(ctx context.Context, followerID, authorID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.follows[followKey{follower: followerID, followee: authorID}]
	return ok && f.Status == FollowActive, nil
}

// CountInteractions counts interactions of type t on postID.
func (s *InMemoryStore) CountInteractions(ctx context.Context, postID string, t InteractionType) (int, error) {
	if !t.Valid() {
		return 0, ErrInvalidInteractionType
	}
	counts, err := s.CountInteractionsByPost(ctx, []string{postID})
	if err != nil {
		return 0, err
	}
	return counts[postID].Get(t), nil
}

// CountInteractionsByPost tallies interactions for every post in postIDs in one pass.
func (s *InMemoryStore) CountInteractionsByPost(ctx context.Context, postIDs []string) (map[string]EngagementCounts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make(map[string]EngagementCounts, len(postIDs))
	for _, id := range postIDs {
		counts[id] = EngagementCounts{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, in := range s.interactions {
		c, wanted := counts[in.PostID]
		if !wanted {
			continue
		}
		c.add(in.Type, 1)
		counts[in.PostID] = c
	}
	return counts, nil
}

// filterPosts returns copies of the non-draft posts matching keep, newest first.
func (s *InMemoryStore) filterPosts(ctx context.Context, keep func(*Post) bool) ([]*Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*Post, 0, len(s.posts))
	for _, p := range s.posts {
		if p.IsDraft || !keep(p) {
			continue
		}
		results = append(results, copyPost(p))
	}

	sortPostsByCreatedDesc(results)
	return results, nil
}

// copyPost returns a deep copy so callers cannot mutate stored state.
func copyPost(p *Post) *Post {
	out := *p
	if p.ImageURL != nil {
		img := *p.ImageURL
		out.ImageURL = &img
	}
	return &out
}

// sortPostsByCreatedDesc sorts posts by created_at DESC, then by ID ASC for tie-breaking.
func sortPostsByCreatedDesc(posts []*Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.After(posts[j].CreatedAt) {
			return true
		}
		if posts[i].CreatedAt.Before(posts[j].CreatedAt) {
			return false
		}
		return posts[i].ID < posts[j].ID
	})
}
