package media

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/nfnt/resize"

	"github.com/nojellyleg/gallery/internal/domain"
)

const (
	// MaxUploadBytes is the hard ingress ceiling; larger payloads are
	// rejected before any decoding happens.
	MaxUploadBytes = 10 << 20

	// MaxStoredBytes is the per-object storage ceiling after normalization.
	MaxStoredBytes = 3 << 20

	// maxDimensionPx caps either side of a stored image.
	maxDimensionPx = 1920
)

// Normalize turns raw uploaded bytes into a bounded-size, display-safe
// buffer. Images larger than 1920px on either side are scaled down with
// aspect preserved (never up), and anything over the storage ceiling is
// progressively recompressed to JPEG (quality 70, then 50). Non-image
// content passes through untouched; there is no video transcoding.
//
// Resizing is a best-effort optimization: if the image cannot be decoded,
// the original bytes are returned unchanged, provided they already fit the
// storage ceiling.
func Normalize(raw []byte, contentType string) ([]byte, string, error) {
	if len(raw) > MaxUploadBytes {
		return nil, "", domain.ErrPayloadTooLarge
	}
	if !strings.HasPrefix(contentType, "image/") {
		return raw, contentType, nil
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		if len(raw) <= MaxStoredBytes {
			return raw, contentType, nil
		}
		return nil, "", &domain.ImageTooLargeError{Size: len(raw)}
	}

	out := raw
	outType := contentType

	if tooWide(img) {
		img = resize.Thumbnail(maxDimensionPx, maxDimensionPx, img, resize.Lanczos3)
		out, outType, err = encode(img, format, 85)
		if err != nil {
			if len(raw) <= MaxStoredBytes {
				return raw, contentType, nil
			}
			return nil, "", &domain.ImageTooLargeError{Size: len(raw)}
		}
	}

	if len(out) <= MaxStoredBytes {
		return out, outType, nil
	}

	// Size clamp: re-encode lossy. PNG and GIF inputs that are still over
	// the ceiling get converted to JPEG outright; the content type changes
	// with them.
	for _, quality := range []int{70, 50} {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", &domain.ImageTooLargeError{Size: len(out)}
		}
		if buf.Len() < len(out) {
			out = buf.Bytes()
			outType = "image/jpeg"
		}
		if len(out) <= MaxStoredBytes {
			return out, outType, nil
		}
	}

	return nil, "", &domain.ImageTooLargeError{Size: len(out)}
}

func tooWide(img image.Image) bool {
	b := img.Bounds()
	return b.Dx() > maxDimensionPx || b.Dy() > maxDimensionPx
}

func encode(img image.Image, format string, quality int) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}
