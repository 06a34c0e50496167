// Package memory implements the blobstore contract in process memory. It
// backs tests and credential-less local development; semantics mirror the S3
// gateway, including canonical-location recognition and pass-through resolve.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type object struct {
	data        []byte
	contentType string
}

type Store struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]object
}

func New(bucket string) *Store {
	return &Store{
		bucket:  bucket,
		objects: make(map[string]object),
	}
}

func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("memory: empty key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = object{data: cp, contentType: contentType}

	return s.locationFor(key), nil
}

func (s *Store) Resolve(ctx context.Context, keyOrLocation string, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = time.Hour
	}
	key := keyOrLocation
	if s.IsCanonical(keyOrLocation) {
		key = strings.TrimPrefix(keyOrLocation, s.locationFor(""))
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%s?expires=%d", s.locationFor(key), expires)
}

func (s *Store) IsCanonical(loc string) bool {
	return strings.HasPrefix(loc, s.locationFor(""))
}

// Get returns the stored bytes and content type for a key; tests use it to
// verify upload/resolve round trips.
func (s *Store) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.data, obj.contentType, ok
}

// Len reports the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *Store) locationFor(key string) string {
	return fmt.Sprintf("mem://%s/%s", s.bucket, key)
}
