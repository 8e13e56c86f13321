package post

import (
	"errors"
	"net"
	"net/url"
	"slices"
	"strings"
)

// MaxBodyLength is the maximum post body length in bytes.
const MaxBodyLength = 5000

// MaxImageURLLength bounds stored image references.
const MaxImageURLLength = 2048

// NegativeKeywords are rejected in post bodies to keep the journal positive-only.
var NegativeKeywords = []string{
	"complaint",
	"hate",
	"sad",
	"angry",
}

// Validation errors.
var (
	ErrEmptyBody             = errors.New("post body is required")
	ErrBodyTooLong           = errors.New("post body must not exceed 5000 characters")
	ErrNegativeContent       = errors.New("post contains negative content")
	ErrInvalidType           = errors.New("invalid post type")
	ErrInvalidCompletionRate = errors.New("completion rate must be between 0 and 1")
	ErrConflictingImagePatch = errors.New("cannot set and clear image in the same update")
	ErrInvalidImageURL       = errors.New("image url must be a public https url")
)

// ValidateBody checks that a body is present, within length, and free of
// negative keywords (case-insensitive).
func ValidateBody(body string) error {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return ErrEmptyBody
	}
	if len(trimmed) > MaxBodyLength {
		return ErrBodyTooLong
	}
	if ContainsNegativeContent(trimmed) {
		return ErrNegativeContent
	}
	return nil
}

// ContainsNegativeContent reports whether text contains any negative keyword.
func ContainsNegativeContent(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range NegativeKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ValidateType checks that t is one of KnownTypes.
func ValidateType(t string) error {
	if !slices.Contains(KnownTypes, t) {
		return ErrInvalidType
	}
	return nil
}

// ValidateCompletionRate checks that rate is within [0, 1].
func ValidateCompletionRate(rate float64) error {
	if !(rate >= 0 && rate <= 1) {
		return ErrInvalidCompletionRate
	}
	return nil
}

// ValidateImageURL checks that an image reference is an absolute https URL
// that does not point at a loopback, private or link-local host. Hostnames
// are not resolved.
func ValidateImageURL(raw string) error {
	if raw == "" || len(raw) > MaxImageURLLength {
		return ErrInvalidImageURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Hostname() == "" || u.User != nil {
		return ErrInvalidImageURL
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return ErrInvalidImageURL
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return ErrInvalidImageURL
		}
	}
	return nil
}

// Validate checks a new post before it is stored.
func Validate(p *Post) error {
	if err := ValidateBody(p.Body); err != nil {
		return err
	}
	if p.ImageURL != nil && *p.ImageURL != "" {
		if err := ValidateImageURL(*p.ImageURL); err != nil {
			return err
		}
	}
	if err := ValidateType(p.Type); err != nil {
		return err
	}
	return ValidateCompletionRate(p.CompletionRate)
}
