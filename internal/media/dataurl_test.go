package media

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nojellyleg/gallery/internal/domain"
)

func TestParseDataURL(t *testing.T) {
	payload := []byte("hello bytes")
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	ct, data, err := ParseDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, payload, data)
}

func TestParseDataURLErrors(t *testing.T) {
	cases := map[string]string{
		"not a data url":   "https://example.com/a.png",
		"missing comma":    "data:image/png;base64",
		"missing type":     "data:;base64,aGk=",
		"empty payload":    "data:image/png;base64,",
		"bad base64":       "data:image/png;base64,!!!not-base64!!!",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseDataURL(input)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestIsDataURL(t *testing.T) {
	assert.True(t, IsDataURL("data:image/png;base64,aGk="))
	assert.False(t, IsDataURL("https://bucket.s3.amazonaws.com/covers/x.png"))
}
