package feed

import (
	"errors"
	"fmt"
)

// Errors returned by the composer.
var (
	// ErrStorageUnavailable wraps any failure of the post store. No partial
	// feed is ever returned alongside it.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidTopic is returned for an empty or whitespace-only topic.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrViewerRequired is returned when a personalized feed is requested without a viewer.
	ErrViewerRequired = errors.New("viewer required")
)

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
