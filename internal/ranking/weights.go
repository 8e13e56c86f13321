package ranking

import (
	"math"
	"time"
)

// Post type tags with a content multiplier. Any other tag is neutral.
const (
	TypeDailyGratitude = "daily_gratitude"
	TypeSimpleText     = "simple_text"
)

// Relation is the viewer's relationship to a post's author.
type Relation int

const (
	// RelationNone applies to anonymous viewers and to authors the viewer does not follow.
	RelationNone Relation = iota
	// RelationFollowing applies when the viewer actively follows the author.
	RelationFollowing
)

// String returns the relation name used in logs and explain output.
func (r Relation) String() string {
	if r == RelationFollowing {
		return "following"
	}
	return "none"
}

// Engagement holds the interaction tallies of a single post.
type Engagement struct {
	Hearts   int `json:"hearts"`
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
}

// PostParams holds the post attributes the score depends on.
type PostParams struct {
	HasImage       bool
	Type           string
	CompletionRate float64 // Fraction of the guided prompt completed [0, 1]
	ReportCount    int
	CreatedAt      time.Time
}

// EngagementWeight computes the engagement term of the score.
// Negative counts are treated as zero and the completion rate is clamped to [0, 1].
func EngagementWeight(counts Engagement, completionRate float64, reportCount int, w *Weights) float64 {
	return float64(nonNegative(counts.Hearts))*w.Engagement.Heart +
		float64(nonNegative(counts.Comments))*w.Engagement.Comment +
		float64(nonNegative(counts.Shares))*w.Engagement.Share +
		clampUnit(completionRate)*w.Engagement.Completion -
		float64(nonNegative(reportCount))*w.Engagement.ReportPenalty
}

// TypeMultiplier returns the content multiplier for a post type tag.
func TypeMultiplier(postType string, w *Weights) float64 {
	switch postType {
	case TypeDailyGratitude:
		return w.Content.DailyGratitudeMultiplier
	case TypeSimpleText:
		return w.Content.SimpleTextMultiplier
	default:
		return 1.0
	}
}

// IsRecent reports whether createdAt falls within the recency window ending at now.
// The window is inclusive at its far edge; future timestamps count as recent.
func IsRecent(createdAt, now time.Time, window time.Duration) bool {
	return !createdAt.Before(now.Add(-window))
}

// RelationMultiplier returns the multiplier applied for the viewer's relation.
func RelationMultiplier(rel Relation, w *Weights) float64 {
	if rel == RelationFollowing {
		return w.FollowingMultiplier
	}
	return 1.0
}

// Score computes the rank of a post. The steps are applied to a running total
// in a fixed order: engagement, image bonus, type multiplier, recency bonus,
// relation multiplier. The multipliers therefore scale every term added before
// them and none added after.
//
// Score is pure: it never reads storage or the clock, and always returns a
// finite value. Negative scores are valid and sort below every positive score.
// A nil weights pointer uses DefaultWeights.
func Score(params PostParams, counts Engagement, rel Relation, now time.Time, weights *Weights) float64 {
	if weights == nil {
		weights = DefaultWeights()
	}

	score := EngagementWeight(counts, params.CompletionRate, params.ReportCount, weights)

	if params.HasImage {
		score += weights.Content.ImageBonus
	}

	score *= TypeMultiplier(params.Type, weights)

	if IsRecent(params.CreatedAt, now, weights.RecencyWindow()) {
		score += weights.Recency.Bonus
	}

	score *= RelationMultiplier(rel, weights)

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func clampUnit(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
