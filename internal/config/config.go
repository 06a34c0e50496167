package config

import (
	"fmt"
	"os"
)

type Config struct {
	ListenAddr    string
	DBPath        string
	AdminUsername string
	AdminPassword string
	BlobBackend   string
	S3Bucket      string
	S3Region      string
	S3AccessKey   string
	S3SecretKey   string
	AllowedOrigin string
	LogLevel      string
	LogFile       string
}

func Load() *Config {
	return &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		DBPath:        getEnv("DB_PATH", "/data/gallery.db"),
		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		BlobBackend:   getEnv("BLOB_BACKEND", "s3"),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Region:      getEnv("AWS_REGION", "ap-southeast-2"),
		S3AccessKey:   getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
	}
}

// Validate rejects partial object-store configuration up front. A gateway
// that starts without a bucket or credentials would fail on the first upload
// instead of at boot.
func (c *Config) Validate() error {
	if c.AdminUsername == "" || c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set")
	}
	switch c.BlobBackend {
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set when BLOB_BACKEND=s3")
		}
		if c.S3AccessKey == "" || c.S3SecretKey == "" {
			return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set when BLOB_BACKEND=s3")
		}
	case "memory":
		// no configuration required
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q (use: s3, memory)", c.BlobBackend)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
