package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg := Load()

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, "s3", cfg.BlobBackend)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/gallery.db")
	t.Setenv("S3_BUCKET", "club-media")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/gallery.db", cfg.DBPath)
	assert.Equal(t, "club-media", cfg.S3Bucket)
	assert.Equal(t, "eu-west-1", cfg.S3Region)
}

func TestValidateRejectsPartialS3Config(t *testing.T) {
	cfg := &Config{
		AdminUsername: "admin",
		AdminPassword: "secret",
		BlobBackend:   "s3",
		S3Bucket:      "club-media",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AWS_ACCESS_KEY_ID")

	cfg.S3Bucket = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
}

func TestValidateMemoryBackend(t *testing.T) {
	cfg := &Config{
		AdminUsername: "admin",
		AdminPassword: "secret",
		BlobBackend:   "memory",
	}
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresAdminCredentials(t *testing.T) {
	cfg := &Config{BlobBackend: "memory"}
	require.Error(t, cfg.Validate())
}

func TestValidateUnknownBackend(t *testing.T) {
	cfg := &Config{
		AdminUsername: "admin",
		AdminPassword: "secret",
		BlobBackend:   "carrier-pigeon",
	}
	require.Error(t, cfg.Validate())
}
