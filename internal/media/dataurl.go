package media

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/nojellyleg/gallery/internal/domain"
)

// IsDataURL reports whether s is a base64 data URL as produced by the
// browser-side uploader.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// ParseDataURL decodes a "data:{type};base64,{payload}" string into its
// content type and raw bytes. This is the single decode boundary for
// browser payloads; everything past it works with typed buffers.
func ParseDataURL(s string) (contentType string, data []byte, err error) {
	if !IsDataURL(s) {
		return "", nil, fmt.Errorf("%w: not a data URL", domain.ErrInvalidInput)
	}

	meta, payload, found := strings.Cut(s[len("data:"):], ",")
	if !found {
		return "", nil, fmt.Errorf("%w: data URL missing comma separator", domain.ErrInvalidInput)
	}

	contentType, _, _ = strings.Cut(meta, ";")
	if contentType == "" {
		return "", nil, fmt.Errorf("%w: data URL missing content type", domain.ErrInvalidInput)
	}
	if payload == "" {
		return "", nil, fmt.Errorf("%w: data URL has empty payload", domain.ErrInvalidInput)
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: data URL payload is not valid base64", domain.ErrInvalidInput)
	}
	return contentType, data, nil
}
