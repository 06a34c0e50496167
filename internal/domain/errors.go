package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput covers malformed data URLs, missing payloads and
	// non-numeric identifiers arriving at the boundary.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPayloadTooLarge means a raw upload exceeded the ingress ceiling
	// before any normalization was attempted.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrConflict means an optimistic concurrency check failed repeatedly;
	// the caller lost the race for a session's media list.
	ErrConflict = errors.New("concurrent modification")

	// ErrNotFound marks a mutation aimed at a session or media row that
	// does not exist. Reads return nil instead: an absent session is a
	// renderable state, not a fault.
	ErrNotFound = errors.New("not found")
)

// ImageTooLargeError means recompression could not bring an image under the
// storage ceiling. Size is the smallest byte count achieved, kept for
// diagnostics.
type ImageTooLargeError struct {
	Size int
}

func (e *ImageTooLargeError) Error() string {
	return fmt.Sprintf("image still %d bytes after compression", e.Size)
}
