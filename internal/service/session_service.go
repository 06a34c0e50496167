package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nojellyleg/gallery/internal/blobstore"
	"github.com/nojellyleg/gallery/internal/domain"
	"github.com/nojellyleg/gallery/internal/media"
)

// storeTimeout bounds every database round trip issued by the service.
const storeTimeout = 10 * time.Second

// sessionRepository is the subset of store.SessionStore that SessionService
// requires.
type sessionRepository interface {
	Create(ctx context.Context, sess *domain.Session, mediaKeys []string) (*domain.Session, error)
	GetByID(ctx context.Context, id int64) (*domain.Session, error)
	List(ctx context.Context) ([]*domain.Session, error)
	UpdateFields(ctx context.Context, id int64, patch domain.SessionPatch, coverKey *string) error
	AppendMedia(ctx context.Context, sessionID int64, keys []string) error
	ReplaceMedia(ctx context.Context, sessionID int64, keys []string) error
	DeleteMedia(ctx context.Context, sessionID, mediaID int64) error
	Delete(ctx context.Context, id int64) error
}

type SessionService struct {
	store  sessionRepository
	blobs  blobstore.Store
	logger *slog.Logger
}

func NewSessionService(store sessionRepository, blobs blobstore.Store, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:  store,
		blobs:  blobs,
		logger: logger,
	}
}

// SessionView is a session as presented to callers: every storage reference
// replaced by a freshly signed retrieval URL. Raw storage keys never leave
// the service.
type SessionView struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Location   string      `json:"location"`
	People     string      `json:"people"`
	Date       time.Time   `json:"date"`
	CoverURL   *string     `json:"cover_url"`
	MapEmbed   *string     `json:"map"`
	MediaCount int         `json:"media_count"`
	Media      []MediaView `json:"content_medias"`
}

// MediaView is one content entry with its stable identity, signed URL and
// inferred kind ("image" or "video").
type MediaView struct {
	ID   int64  `json:"id"`
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

// NewSessionInput carries the fields and raw media payloads for a create.
// Cover and Content entries are either base64 data URLs or already-canonical
// store locations.
type NewSessionInput struct {
	Name     string
	Location string
	People   string
	Date     time.Time
	MapEmbed *string
	Cover    string
	Content  []string
}

// UpdateSessionInput carries a partial field update. Cover, when non-empty,
// runs through the same ingestion pipeline as on create. The content list is
// deliberately not here; use AppendContentMedia / ReplaceContentMedia.
type UpdateSessionInput struct {
	Patch domain.SessionPatch
	Cover string
}

// ListAll returns every session, newest first, with signed URLs resolved per
// request (signed URLs are time-bounded and never cached).
func (s *SessionService) ListAll(ctx context.Context) ([]*SessionView, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	views := make([]*SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, s.view(ctx, sess))
	}
	return views, nil
}

// GetByID returns the resolved session, or nil when absent.
func (s *SessionService) GetByID(ctx context.Context, id int64) (*SessionView, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sess, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	if sess == nil {
		return nil, nil
	}
	return s.view(ctx, sess), nil
}

// Create ingests the cover and each content item, then persists the session
// row and its references in one transaction. If any single upload fails the
// whole create fails and nothing is persisted; objects already uploaded for
// the failed request are left behind in the store (accepted leak, there are
// no compensating deletes).
func (s *SessionService) Create(ctx context.Context, in NewSessionInput) (*SessionView, error) {
	if in.Name == "" || in.Location == "" {
		return nil, fmt.Errorf("%w: name and location are required", domain.ErrInvalidInput)
	}

	var coverKey *string
	if in.Cover != "" {
		loc, err := s.ingest(ctx, media.KindCover, in.Cover)
		if err != nil {
			return nil, err
		}
		coverKey = &loc
	}

	contentKeys, err := s.ingestAll(ctx, in.Content)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sess, err := s.store.Create(ctx, &domain.Session{
		Name:     in.Name,
		Location: in.Location,
		People:   in.People,
		Date:     in.Date,
		CoverKey: coverKey,
		MapEmbed: in.MapEmbed,
	}, contentKeys)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("session created",
		"session_id", sess.ID, "name", sess.Name, "media_count", len(sess.Media))
	return s.view(ctx, sess), nil
}

// Update applies a partial field update. A raw cover payload is uploaded
// first; an already-canonical cover passes through unchanged.
func (s *SessionService) Update(ctx context.Context, id int64, in UpdateSessionInput) (*SessionView, error) {
	var coverKey *string
	if in.Cover != "" {
		loc, err := s.ingest(ctx, media.KindCover, in.Cover)
		if err != nil {
			return nil, err
		}
		coverKey = &loc
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if in.Patch.Empty() && coverKey == nil {
		// Nothing to change; return current state untouched.
		return s.GetByID(ctx, id)
	}

	if err := s.store.UpdateFields(ctx, id, in.Patch, coverKey); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// AppendContentMedia ingests items and appends them to the session's content
// list. Appending a single item is the add-media operation of the admin UI.
func (s *SessionService) AppendContentMedia(ctx context.Context, id int64, items []string) (*SessionView, error) {
	keys, err := s.ingestAll(ctx, items)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.store.AppendMedia(ctx, id, keys); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// ReplaceContentMedia ingests items and swaps them in as the complete final
// content list; an explicitly empty list clears it.
func (s *SessionService) ReplaceContentMedia(ctx context.Context, id int64, items []string) (*SessionView, error) {
	keys, err := s.ingestAll(ctx, items)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.store.ReplaceMedia(ctx, id, keys); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// DeleteContentMedia removes one reference by its stable identity.
func (s *SessionService) DeleteContentMedia(ctx context.Context, sessionID, mediaID int64) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.store.DeleteMedia(ctx, sessionID, mediaID)
}

// Delete removes the session row. Objects in the blob store stay behind,
// consistent with create's non-transactional policy.
func (s *SessionService) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.store.Delete(ctx, id)
}

// ingest runs one media input through the pipeline: canonical locations pass
// through as a no-op; data URLs are decoded, normalized, addressed and
// uploaded.
func (s *SessionService) ingest(ctx context.Context, kind media.Kind, item string) (string, error) {
	if s.blobs.IsCanonical(item) {
		return item, nil
	}
	if !media.IsDataURL(item) {
		return "", fmt.Errorf("%w: media item is neither a store location nor a data URL", domain.ErrInvalidInput)
	}

	contentType, raw, err := media.ParseDataURL(item)
	if err != nil {
		return "", err
	}

	normalized, finalType, err := media.Normalize(raw, contentType)
	if err != nil {
		return "", err
	}

	key := media.DeriveKey(kind, finalType)
	loc, err := s.blobs.Upload(ctx, key, normalized, finalType)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.Info("media ingested",
		"kind", string(kind), "key", key, "content_type", finalType,
		"raw_bytes", len(raw), "stored_bytes", len(normalized))
	return loc, nil
}

func (s *SessionService) ingestAll(ctx context.Context, items []string) ([]string, error) {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		loc, err := s.ingest(ctx, media.KindContent, item)
		if err != nil {
			return nil, err
		}
		keys = append(keys, loc)
	}
	return keys, nil
}

func (s *SessionService) view(ctx context.Context, sess *domain.Session) *SessionView {
	v := &SessionView{
		ID:         sess.ID,
		Name:       sess.Name,
		Location:   sess.Location,
		People:     sess.People,
		Date:       sess.Date,
		MapEmbed:   sess.MapEmbed,
		MediaCount: len(sess.Media),
		Media:      make([]MediaView, 0, len(sess.Media)),
	}
	if sess.CoverKey != nil {
		url := s.blobs.Resolve(ctx, *sess.CoverKey, blobstore.DefaultTTL)
		v.CoverURL = &url
	}
	for _, m := range sess.Media {
		kind := "image"
		if media.IsVideoKey(m.StorageKey) {
			kind = "video"
		}
		v.Media = append(v.Media, MediaView{
			ID:   m.ID,
			URL:  s.blobs.Resolve(ctx, m.StorageKey, blobstore.DefaultTTL),
			Kind: kind,
		})
	}
	return v
}
