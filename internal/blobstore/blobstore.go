package blobstore

import (
	"context"
	"time"
)

// DefaultTTL is how long a resolved retrieval URL stays valid.
const DefaultTTL = time.Hour

// Store abstracts the durable object store behind the media pipeline
// (S3 in production, in-memory for tests and credential-less development).
//
// Keys are write-once: an uploaded object's bytes are immutable, and callers
// derive a fresh key per logical media item rather than reusing one.
type Store interface {
	// Upload writes data under key and returns the object's canonical
	// location. Every call with a fresh key creates a new object.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Resolve turns a storage key, or a canonical location, into a
	// time-limited retrieval URL. Implementations degrade to returning the
	// input verbatim when signing fails: a broken link beats a failed page
	// render.
	Resolve(ctx context.Context, keyOrLocation string, ttl time.Duration) string

	// IsCanonical reports whether s is a canonical location belonging to
	// this store. Already-uploaded references recognized this way pass
	// through update flows as a no-op.
	IsCanonical(s string) bool
}
