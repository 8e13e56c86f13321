// Package post provides the post, follow and interaction models and the
// read-only storage surface the feed is composed from.
package post

import (
	"errors"
	"time"
)

// Post type tags. Only daily_gratitude and simple_text affect ranking;
// the others are accepted and ranked as neutral.
const (
	TypeSimpleText     = "simple_text"
	TypeDailyGratitude = "daily_gratitude"
	TypePhoto          = "photo"
	TypeMilestone      = "milestone"
)

// KnownTypes lists the accepted post type tags.
var KnownTypes = []string{
	TypeSimpleText,
	TypeDailyGratitude,
	TypePhoto,
	TypeMilestone,
}

// InteractionType is the kind of engagement a user has with a post.
type InteractionType string

// Interaction types.
const (
	InteractionHeart   InteractionType = "heart"
	InteractionComment InteractionType = "comment"
	InteractionShare   InteractionType = "share"
)

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionHeart, InteractionComment, InteractionShare:
		return true
	}
	return false
}

// FollowStatus is the state of a follow edge. Only active follows count
// toward personalization.
type FollowStatus string

// Follow statuses.
const (
	FollowActive  FollowStatus = "active"
	FollowPending FollowStatus = "pending"
	FollowBlocked FollowStatus = "blocked"
)

// Common errors for post operations.
var (
	ErrPostNotFound           = errors.New("post not found")
	ErrAlreadyHearted         = errors.New("post already hearted")
	ErrInteractionNotFound    = errors.New("interaction not found")
	ErrInvalidInteractionType = errors.New("invalid interaction type")
	ErrSelfFollow             = errors.New("cannot follow yourself")
	ErrAlreadyFollowing       = errors.New("already following")
	ErrNotFollowing           = errors.New("not following")
)

// Post is a short journaling entry.
type Post struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"author_id"`
	Body           string    `json:"body"`
	ImageURL       *string   `json:"image_url,omitempty"`
	Type           string    `json:"type"`
	IsDraft        bool      `json:"is_draft"`
	CompletionRate float64   `json:"completion_rate"`
	ReportCount    int       `json:"report_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasImage reports whether the post carries an image reference.
func (p *Post) HasImage() bool {
	return p.ImageURL != nil && *p.ImageURL != ""
}

// Follow is a directed follower -> followee edge, unique per pair.
type Follow struct {
	FollowerID string       `json:"follower_id"`
	FolloweeID string       `json:"followee_id"`
	Status     FollowStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Interaction is a heart, comment or share by a user on a post.
// A user has at most one heart per post; comments and shares are unlimited.
type Interaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	PostID    string          `json:"post_id"`
	Type      InteractionType `json:"type"`
	Content   string          `json:"content,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// EngagementCounts is the per-post tally of interactions by type.
type EngagementCounts struct {
	Hearts   int `json:"hearts"`
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
}

// add increments the tally for an interaction type.
func (c *EngagementCounts) add(t InteractionType, n int) {
	switch t {
	case InteractionHeart:
		c.Hearts += n
	case InteractionComment:
		c.Comments += n
	case InteractionShare:
		c.Shares += n
	}
}

// Get returns the tally for one interaction type.
func (c EngagementCounts) Get(t InteractionType) int {
	switch t {
	case InteractionHeart:
		return c.Hearts
	case InteractionComment:
		return c.Comments
	case InteractionShare:
		return c.Shares
	}
	return 0
}
