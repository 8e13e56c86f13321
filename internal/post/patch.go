package post

import "time"

// Patch is a partial update of a post. Nil fields are left untouched.
type Patch struct {
	Body           *string  `json:"body,omitempty"`
	ImageURL       *string  `json:"image_url,omitempty"`
	ClearImage     bool     `json:"clear_image,omitempty"`
	Type           *string  `json:"type,omitempty"`
	IsDraft        *bool    `json:"is_draft,omitempty"`
	CompletionRate *float64 `json:"completion_rate,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Body == nil &&
		p.ImageURL == nil &&
		!p.ClearImage &&
		p.Type == nil &&
		p.IsDraft == nil &&
		p.CompletionRate == nil
}

// Validate checks the fields that are present.
func (p Patch) Validate() error {
	if p.Body != nil {
		if err := ValidateBody(*p.Body); err != nil {
			return err
		}
	}
	if p.Type != nil {
		if err := ValidateType(*p.Type); err != nil {
			return err
		}
	}
	if p.CompletionRate != nil {
		if err := ValidateCompletionRate(*p.CompletionRate); err != nil {
			return err
		}
	}
	if p.ImageURL != nil && p.ClearImage {
		return ErrConflictingImagePatch
	}
	if p.ImageURL != nil {
		if err := ValidateImageURL(*p.ImageURL); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the present fields onto target and stamps UpdatedAt.
// ClearImage removes the image reference.
func (p Patch) Apply(target *Post, now time.Time) {
	if p.Body != nil {
		target.Body = *p.Body
	}
	if p.ClearImage {
		target.ImageURL = nil
	} else if p.ImageURL != nil {
		img := *p.ImageURL
		target.ImageURL = &img
	}
	if p.Type != nil {
		target.Type = *p.Type
	}
	if p.IsDraft != nil {
		target.IsDraft = *p.IsDraft
	}
	if p.CompletionRate != nil {
		target.CompletionRate = *p.CompletionRate
	}
	target.UpdatedAt = now
}
