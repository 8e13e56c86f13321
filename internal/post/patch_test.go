package post

import (
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string     { return &s }
func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestPatch_Empty(t *testing.T) {
	if !(Patch{}).Empty() {
		t.Error("zero patch should be empty")
	}
	if (Patch{ClearImage: true}).Empty() {
		t.Error("clear image patch should not be empty")
	}
	if (Patch{CompletionRate: floatPtr(0)}).Empty() {
		t.Error("explicit zero completion rate should not be empty")
	}
}

func TestPatch_Apply(t *testing.T) {
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)

	tests := []struct {
		name   string
		patch  Patch
		verify func(t *testing.T, p *Post)
	}{
		{
			name:  "body only",
			patch: Patch{Body: strPtr("new body")},
			verify: func(t *testing.T, p *Post) {
				if p.Body != "new body" {
					t.Errorf("expected new body, got %q", p.Body)
				}
				if p.Type != TypeDailyGratitude {
					t.Error("type should be untouched")
				}
			},
		},
		{
			name:  "clear image",
			patch: Patch{ClearImage: true},
			verify: func(t *testing.T, p *Post) {
				if p.HasImage() {
					t.Error("expected image cleared")
				}
			},
		},
		{
			name:  "replace image",
			patch: Patch{ImageURL: strPtr("https://img.example/2.jpg")},
			verify: func(t *testing.T, p *Post) {
				if p.ImageURL == nil || *p.ImageURL != "https://img.example/2.jpg" {
					t.Errorf("unexpected image %v", p.ImageURL)
				}
			},
		},
		{
			name:  "zero completion rate is applied",
			patch: Patch{CompletionRate: floatPtr(0)},
			verify: func(t *testing.T, p *Post) {
				if p.CompletionRate != 0 {
					t.Errorf("expected 0 completion, got %f", p.CompletionRate)
				}
			},
		},
		{
			name:  "publish draft",
			patch: Patch{IsDraft: boolPtr(false)},
			verify: func(t *testing.T, p *Post) {
				if p.IsDraft {
					t.Error("expected draft cleared")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Post{
				Body:           "body",
				ImageURL:       strPtr("https://img.example/1.jpg"),
				Type:           TypeDailyGratitude,
				IsDraft:        true,
				CompletionRate: 0.5,
				CreatedAt:      created,
				UpdatedAt:      created,
			}
			tt.patch.Apply(p, now)
			tt.verify(t, p)
			if !p.UpdatedAt.Equal(now) {
				t.Errorf("expected UpdatedAt %s, got %s", now, p.UpdatedAt)
			}
			if !p.CreatedAt.Equal(created) {
				t.Error("CreatedAt must never change")
			}
		})
	}
}

func TestPatch_Validate(t *testing.T) {
	tests := []struct {
		name     string
		patch    Patch
		expected error
	}{
		{"empty patch", Patch{}, nil},
		{"valid fields", Patch{Body: strPtr("thankful"), Type: strPtr(TypePhoto), CompletionRate: floatPtr(1)}, nil},
		{"blank body", Patch{Body: strPtr("")}, ErrEmptyBody},
		{"bad type", Patch{Type: strPtr("vent")}, ErrInvalidType},
		{"bad completion", Patch{CompletionRate: floatPtr(-0.1)}, ErrInvalidCompletionRate},
		{"set and clear image", Patch{ImageURL: strPtr("x"), ClearImage: true}, ErrConflictingImagePatch},
		{"plain http image", Patch{ImageURL: strPtr("http://img.example/1.jpg")}, ErrInvalidImageURL},
		{"https image", Patch{ImageURL: strPtr("https://img.example/1.jpg")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}
