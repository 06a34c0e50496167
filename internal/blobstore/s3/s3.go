// Package s3 implements the blobstore contract on AWS S3 with presigned
// GET URLs for retrieval.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v4"
)

const uploadTimeout = 30 * time.Second

type Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

type Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	region    string
	logger    *slog.Logger
}

// New builds the S3 gateway. Partial configuration is a constructor error,
// not a per-call one: a process missing its bucket or credentials must not
// come up at all.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("s3: bucket and region are required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3: access key and secret key are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		logger:    logger,
	}, nil
}

// Upload puts data under key and returns the object's canonical location.
// Transient failures are retried with exponential backoff reusing the same
// key, so a retry can at worst overwrite the identical object rather than
// orphan a duplicate.
func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	put := func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(put, policy); err != nil {
		return "", fmt.Errorf("s3: put %s: %w", key, err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// Resolve produces a presigned GET URL for a key or canonical location. Any
// signing failure degrades to returning the input verbatim.
func (s *Store) Resolve(ctx context.Context, keyOrLocation string, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = time.Hour
	}
	key := keyOrLocation
	if s.IsCanonical(keyOrLocation) {
		key = keyFromLocation(keyOrLocation)
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		s.logger.Warn("presign failed, returning unsigned reference",
			"key", key, "error", err)
		return keyOrLocation
	}
	return req.URL
}

// IsCanonical recognizes this store's own https locations by their
// amazonaws.com host.
func (s *Store) IsCanonical(loc string) bool {
	if !strings.HasPrefix(loc, "https://") {
		return false
	}
	u, err := url.Parse(loc)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Host, ".amazonaws.com")
}

// keyFromLocation extracts the path-relative object key from a canonical
// location. Both virtual-hosted (bucket in host) and path-style URLs occur
// in rows written by older tooling.
func keyFromLocation(loc string) string {
	u, err := url.Parse(loc)
	if err != nil {
		return loc
	}
	key := strings.TrimPrefix(u.Path, "/")
	// Path-style URLs carry the bucket as the first path segment.
	if strings.HasPrefix(u.Host, "s3.") || strings.HasPrefix(u.Host, "s3-") {
		if _, rest, found := strings.Cut(key, "/"); found {
			key = rest
		}
	}
	return key
}
