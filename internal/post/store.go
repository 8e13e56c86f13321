package post

import "context"

// Store is the read surface the feed is composed from.
// Every list method excludes draft posts. Implementations must be safe for
// concurrent use; each call reads whatever the backing store currently holds.
type Store interface {
	// ListNonDraftPosts returns every non-draft post.
	ListNonDraftPosts(ctx context.Context) ([]*Post, error)

	// ListPostsByAuthors returns the non-draft posts written by any of authorIDs.
	// An empty author set yields an empty result.
	ListPostsByAuthors(ctx context.Context, authorIDs []string) ([]*Post, error)

	// ListActiveFollowees returns the ids of users userID actively follows.
	ListActiveFollowees(ctx context.Context, userID string) (map[string]struct{}, error)

	// IsFollowing reports whether followerID actively follows authorID.
	IsFollowing(ctx context.Context, followerID, authorID string) (bool, error)

	// CountInteractions counts the interactions of one type on one post.
	CountInteractions(ctx context.Context, postID string, t InteractionType) (int, error)

	// CountInteractionsByPost returns the engagement counts of every post in
	// postIDs in a single round trip. Posts without interactions map to zero counts.
	CountInteractionsByPost(ctx context.Context, postIDs []string) (map[string]EngagementCounts, error)

	// SearchPostsByContent returns non-draft posts whose body contains
	// substring, compared case-sensitively.
	SearchPostsByContent(ctx context.Context, substring string) ([]*Post, error)

	// GetPost returns a post by id, drafts included.
	GetPost(ctx context.Context, id string) (*Post, error)
}
