package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/onnwee/gratitude/internal/tracing"
)

// PostgresStore implements Store over PostgreSQL.
//
// Expected tables (owned by the CRUD service's migrations):
//
//	posts(id uuid, author_id uuid, body text, image_url text NULL, post_type text,
//	      is_draft boolean, completion_rate double precision, report_count integer,
//	      created_at timestamptz, updated_at timestamptz)
//	follows(follower_id uuid, followee_id uuid, status text, created_at timestamptz,
//	        UNIQUE (follower_id, followee_id))
//	interactions(id uuid, user_id uuid, post_id uuid, interaction_type text,
//	             content text NULL, created_at timestamptz)
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

const postColumns = `id, author_id, body, image_url, post_type, is_draft,
	completion_rate, report_count, created_at, updated_at`

// ListNonDraftPosts returns every non-draft post, newest first.
func (s *PostgresStore) ListNonDraftPosts(ctx context.Context) (_ []*Post, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE is_draft = false
		ORDER BY created_at DESC, id ASC`
	return s.queryPosts(ctx, query)
}

// ListPostsByAuthors returns the non-draft posts written by any of authorIDs.
func (s *PostgresStore) ListPostsByAuthors(ctx context.Context, authorIDs []string) (_ []*Post, err error) {
	if len(authorIDs) == 0 {
		return []*Post{}, nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE is_draft = false AND author_id = ANY($1::uuid[])
		ORDER BY created_at DESC, id ASC`
	return s.queryPosts(ctx, query, pq.Array(authorIDs))
}

// SearchPostsByContent returns non-draft posts whose body contains substring.
// strpos is used instead of LIKE so the match is case-sensitive and wildcard
// characters in substring are taken literally.
func (s *PostgresStore) SearchPostsByContent(ctx context.Context, substring string) (_ []*Post, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE is_draft = false AND strpos(body, $1) > 0
		ORDER BY created_at DESC, id ASC`
	return s.queryPosts(ctx, query, substring)
}

// GetPost returns a post by id.
func (s *PostgresStore) GetPost(ctx context.Context, id string) (_ *Post, err error) {
	if !isUUID(id) {
		return nil, ErrPostNotFound
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	p, err := scanPost(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// ListActiveFollowees returns the ids userID actively follows.
func (s *PostgresStore) ListActiveFollowees(ctx context.Context, userID string) (_ map[string]struct{}, err error) {
	if !isUUID(userID) {
		return map[string]struct{}{}, nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "follows", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = $1 AND status = $2`,
		userID, string(FollowActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list followees: %w", err)
	}
	defer rows.Close()

	followees := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan followee: %w", err)
		}
		followees[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate followees: %w", err)
	}
	return followees, nil
}

// IsFollowing reports whether followerID actively follows authorID.
func (s *PostgresStore) IsFollowing(ctx context.Context, followerID, authorID string) (_ bool, err error) {
	if !isUUID(followerID) || !isUUID(authorID) {
		return false, nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "follows", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var following bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM follows
			WHERE follower_id = $1 AND followee_id = $2 AND status = $3
		)`,
		followerID, authorID, string(FollowActive)).Scan(&following)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return following, nil
}

// CountInteractions counts interactions of type t on postID.
func (s *PostgresStore) CountInteractions(ctx context.Context, postID string, t InteractionType) (_ int, err error) {
	if !t.Valid() {
		return 0, ErrInvalidInteractionType
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "interactions", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interactions WHERE post_id = $1 AND interaction_type = $2`,
		postID, string(t)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return count, nil
}

// CountInteractionsByPost tallies interactions for every post in postIDs with
// a single aggregate query.
func (s *PostgresStore) CountInteractionsByPost(ctx context.Context, postIDs []string) (_ map[string]EngagementCounts, err error) {
	counts := make(map[string]EngagementCounts, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}
	for _, id := range postIDs {
		counts[id] = EngagementCounts{}
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "interactions", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id,
			COUNT(*) FILTER (WHERE interaction_type = 'heart'),
			COUNT(*) FILTER (WHERE interaction_type = 'comment'),
			COUNT(*) FILTER (WHERE interaction_type = 'share')
		FROM interactions
		WHERE post_id = ANY($1::uuid[])
		GROUP BY post_id`,
		pq.Array(postIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate interactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			postID string
			c      EngagementCounts
		)
		if err := rows.Scan(&postID, &c.Hearts, &c.Comments, &c.Shares); err != nil {
			return nil, fmt.Errorf("failed to scan interaction counts: %w", err)
		}
		counts[postID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interaction counts: %w", err)
	}

	s.logger.DebugContext(ctx, "aggregated interaction counts",
		slog.Int("posts", len(postIDs)))
	return counts, nil
}

func (s *PostgresStore) queryPosts(ctx context.Context, query string, args ...any) ([]*Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []*Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var (
		p        Post
		imageURL sql.NullString
	)
	err := row.Scan(
		&p.ID,
		&p.AuthorID,
		&p.Body,
		&imageURL,
		&p.Type,
		&p.IsDraft,
		&p.CompletionRate,
		&p.ReportCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if imageURL.Valid {
		p.ImageURL = &imageURL.String
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// isUUID guards uuid columns: ids that cannot exist in them match nothing.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
