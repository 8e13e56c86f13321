package ranking

import (
	"math"
	"testing"
	"time"
)

const epsilon = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// TestScore_ZeroBaseline verifies that a bare, old simple_text post scores exactly zero.
func TestScore_ZeroBaseline(t *testing.T) {
	params := PostParams{
		Type:      TypeSimpleText,
		CreatedAt: testNow.Add(-48 * time.Hour),
	}

	score := Score(params, Engagement{}, RelationNone, testNow, nil)
	if score != 0.0 {
		t.Errorf("expected score 0.0, got %f", score)
	}
}

// TestScore_OrderOfOperations walks the documented example step by step.
func TestScore_OrderOfOperations(t *testing.T) {
	params := PostParams{
		HasImage:       true,
		Type:           TypeDailyGratitude,
		CompletionRate: 1.0,
		CreatedAt:      testNow.Add(-time.Hour),
	}

	// 1.5 -> +2.5 = 4.0 -> x3 = 12.0 -> +1 = 13.0 -> x1.5 = 19.5
	score := Score(params, Engagement{}, RelationFollowing, testNow, DefaultWeights())
	if !floatEquals(score, 19.5) {
		t.Errorf("expected score 19.5, got %f", score)
	}
}

// TestScore_Components checks each scoring step in isolation.
func TestScore_Components(t *testing.T) {
	old := testNow.Add(-72 * time.Hour)

	tests := []struct {
		name     string
		params   PostParams
		counts   Engagement
		rel      Relation
		expected float64
	}{
		{
			name:     "hearts comments shares neutral type",
			params:   PostParams{Type: "photo", CreatedAt: old},
			counts:   Engagement{Hearts: 2, Comments: 3, Shares: 1},
			expected: 2*1.0 + 3*2.0 + 1*3.0,
		},
		{
			name:     "completion rate",
			params:   PostParams{Type: "other", CompletionRate: 0.5, CreatedAt: old},
			expected: 0.75,
		},
		{
			name:     "reports push score negative",
			params:   PostParams{Type: "other", ReportCount: 2, CreatedAt: old},
			counts:   Engagement{Hearts: 1},
			expected: 1.0 - 20.0,
		},
		{
			name:     "image bonus before type multiplier",
			params:   PostParams{HasImage: true, Type: TypeSimpleText, CreatedAt: old},
			expected: 2.5 * 0.5,
		},
		{
			name:     "daily gratitude triples engagement",
			params:   PostParams{Type: TypeDailyGratitude, CreatedAt: old},
			counts:   Engagement{Comments: 1},
			expected: 6.0,
		},
		{
			name:     "recency bonus after type multiplier",
			params:   PostParams{Type: TypeSimpleText, CreatedAt: testNow.Add(-time.Hour)},
			counts:   Engagement{Hearts: 4},
			expected: 4*0.5 + 1.0,
		},
		{
			name:     "following multiplies bonused total",
			params:   PostParams{Type: "other", CreatedAt: testNow},
			counts:   Engagement{Hearts: 1},
			rel:      RelationFollowing,
			expected: (1.0 + 1.0) * 1.5,
		},
		{
			name:     "following multiplies negative score",
			params:   PostParams{Type: "other", ReportCount: 1, CreatedAt: old},
			rel:      RelationFollowing,
			expected: -15.0,
		},
		{
			name:     "negative counts treated as zero",
			params:   PostParams{Type: "other", ReportCount: -3, CreatedAt: old},
			counts:   Engagement{Hearts: -5, Comments: -1, Shares: -2},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.params, tt.counts, tt.rel, testNow, nil)
			if !floatEquals(got, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

// TestIsRecent_WindowEdges verifies the inclusive 24 hour window.
func TestIsRecent_WindowEdges(t *testing.T) {
	window := 24 * time.Hour

	tests := []struct {
		name      string
		createdAt time.Time
		expected  bool
	}{
		{"exactly at window edge", testNow.Add(-window), true},
		{"just inside window", testNow.Add(-window + time.Second), true},
		{"just outside window", testNow.Add(-window - time.Nanosecond), false},
		{"now", testNow, true},
		{"future timestamp", testNow.Add(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRecent(tt.createdAt, testNow, window); got != tt.expected {
				t.Errorf("IsRecent() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

// TestIsRecent_NonUTCLocation verifies the window compares instants, not wall clocks.
func TestIsRecent_NonUTCLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	createdAt := testNow.Add(-23 * time.Hour).In(loc)

	if !IsRecent(createdAt, testNow, 24*time.Hour) {
		t.Error("expected post created 23h ago in another zone to be recent")
	}
}

// TestScore_Monotonicity verifies scores never decrease with engagement
// and never increase with reports, holding everything else fixed.
func TestScore_Monotonicity(t *testing.T) {
	types := []string{TypeDailyGratitude, TypeSimpleText, "photo"}
	relations := []Relation{RelationNone, RelationFollowing}
	createdTimes := []time.Time{testNow, testNow.Add(-48 * time.Hour)}

	for _, typ := range types {
		for _, rel := range relations {
			for _, createdAt := range createdTimes {
				base := PostParams{Type: typ, CompletionRate: 0.3, ReportCount: 1, CreatedAt: createdAt}
				counts := Engagement{Hearts: 2, Comments: 2, Shares: 2}
				prev := Score(base, counts, rel, testNow, nil)

				for i := 1; i <= 5; i++ {
					c := counts
					c.Hearts += i
					c.Comments += i
					c.Shares += i
					if got := Score(base, c, rel, testNow, nil); got < prev {
						t.Errorf("%s/%s: score decreased with more engagement: %f < %f", typ, rel, got, prev)
					}

					p := base
					p.CompletionRate = base.CompletionRate + float64(i)*0.1
					if got := Score(p, counts, rel, testNow, nil); got < prev {
						t.Errorf("%s/%s: score decreased with higher completion: %f < %f", typ, rel, got, prev)
					}

					p = base
					p.ReportCount = base.ReportCount + i
					if got := Score(p, counts, rel, testNow, nil); got > prev {
						t.Errorf("%s/%s: score increased with more reports: %f > %f", typ, rel, got, prev)
					}
				}
			}
		}
	}
}

// TestScore_AlwaysFinite verifies pathological inputs still produce a finite score.
func TestScore_AlwaysFinite(t *testing.T) {
	inputs := []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.5, 7.0}

	for _, rate := range inputs {
		params := PostParams{Type: TypeDailyGratitude, CompletionRate: rate, CreatedAt: testNow}
		score := Score(params, Engagement{Hearts: 1}, RelationFollowing, testNow, nil)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			t.Errorf("completion %v: expected finite score, got %f", rate, score)
		}
	}
}

// TestScore_Deterministic verifies repeated calls agree.
func TestScore_Deterministic(t *testing.T) {
	params := PostParams{HasImage: true, Type: "milestone", CompletionRate: 0.42, ReportCount: 1, CreatedAt: testNow}
	counts := Engagement{Hearts: 7, Comments: 3, Shares: 2}

	first := Score(params, counts, RelationFollowing, testNow, nil)
	for i := 0; i < 100; i++ {
		if got := Score(params, counts, RelationFollowing, testNow, nil); got != first {
			t.Fatalf("iteration %d: expected %f, got %f", i, first, got)
		}
	}
}

// TestScore_CustomWeights verifies calibrated weights are honored.
func TestScore_CustomWeights(t *testing.T) {
	weights := DefaultWeights()
	weights.Engagement.Heart = 5.0
	weights.FollowingMultiplier = 2.0

	params := PostParams{Type: "other", CreatedAt: testNow.Add(-48 * time.Hour)}
	got := Score(params, Engagement{Hearts: 2}, RelationFollowing, testNow, weights)
	if !floatEquals(got, 20.0) {
		t.Errorf("expected 20.0, got %f", got)
	}
}

func TestRelation_String(t *testing.T) {
	if RelationNone.String() != "none" {
		t.Errorf("expected none, got %s", RelationNone.String())
	}
	if RelationFollowing.String() != "following" {
		t.Errorf("expected following, got %s", RelationFollowing.String())
	}
}
