package s3

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsPartialConfig(t *testing.T) {
	logger := slog.Default()

	cases := map[string]Config{
		"missing bucket": {Region: "ap-southeast-2", AccessKey: "ak", SecretKey: "sk"},
		"missing region": {Bucket: "club-media", AccessKey: "ak", SecretKey: "sk"},
		"missing keys":   {Bucket: "club-media", Region: "ap-southeast-2"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(context.Background(), cfg, logger)
			require.Error(t, err)
		})
	}
}

func TestNewAcceptsCompleteConfig(t *testing.T) {
	cfg := Config{Bucket: "club-media", Region: "ap-southeast-2", AccessKey: "ak", SecretKey: "sk"}
	store, err := New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestIsCanonical(t *testing.T) {
	store := &Store{bucket: "club-media", region: "ap-southeast-2", logger: slog.Default()}

	assert.True(t, store.IsCanonical("https://club-media.s3.ap-southeast-2.amazonaws.com/covers/cover-x.jpeg"))
	assert.True(t, store.IsCanonical("https://s3.ap-southeast-2.amazonaws.com/club-media/covers/cover-x.jpeg"))
	assert.False(t, store.IsCanonical("covers/cover-x.jpeg"))
	assert.False(t, store.IsCanonical("data:image/png;base64,aGk="))
	assert.False(t, store.IsCanonical("https://example.com/covers/cover-x.jpeg"))
}

func TestKeyFromLocation(t *testing.T) {
	assert.Equal(t, "covers/cover-x.jpeg",
		keyFromLocation("https://club-media.s3.ap-southeast-2.amazonaws.com/covers/cover-x.jpeg"))
	assert.Equal(t, "covers/cover-x.jpeg",
		keyFromLocation("https://s3.ap-southeast-2.amazonaws.com/club-media/covers/cover-x.jpeg"))
}
