package media

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind distinguishes a session's cover from its content list; it prefixes
// the storage key so the bucket stays browsable by hand.
type Kind string

const (
	KindCover   Kind = "cover"
	KindContent Kind = "content"
)

// DeriveKey produces a fresh storage key of the form
// {kind}s/{kind}-{uuid}.{ext}. The UUID comes from a crypto-strong source,
// so keys never collide without any coordination; calling twice for the same
// logical media item creates two distinct objects.
func DeriveKey(kind Kind, contentType string) string {
	return fmt.Sprintf("%ss/%s-%s.%s", kind, kind, uuid.NewString(), extFor(contentType))
}

// extFor derives a file extension from the subtype of a MIME content type,
// defaulting to png when absent or unrecognizable.
func extFor(contentType string) string {
	_, sub, found := strings.Cut(contentType, "/")
	if !found || sub == "" {
		return "png"
	}
	// strip any parameters or suffixes, e.g. "svg+xml" -> "svg"
	if i := strings.IndexAny(sub, "+;"); i >= 0 {
		sub = sub[:i]
	}
	if sub == "" {
		return "png"
	}
	return sub
}

// IsVideoKey infers the content kind from a storage key's extension; the
// serving layer uses it to pick an <img> or <video> element.
func IsVideoKey(key string) bool {
	lower := strings.ToLower(key)
	for _, ext := range []string{".mp4", ".mov", ".webm", ".quicktime", ".avi"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
