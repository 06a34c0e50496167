package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nojellyleg/gallery/internal/db"
	"github.com/nojellyleg/gallery/internal/domain"
)

// openTestDB opens a throwaway database through db.Open, so tests run against
// the real migrated schema and connection pragmas rather than a copy.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func newTestSession(t *testing.T, s *SessionStore, keys ...string) *domain.Session {
	t.Helper()
	sess, err := s.Create(context.Background(), &domain.Session{
		Name:     "Sunday Hills Loop",
		Location: "Adelaide Hills",
		People:   "Max, Lena, Theo",
	}, keys)
	require.NoError(t, err)
	return sess
}

func TestSessionStoreCreate(t *testing.T) {
	s := NewSessionStore(openTestDB(t))

	sess := newTestSession(t, s, "contents/content-a.jpeg", "contents/content-b.jpeg")

	assert.NotZero(t, sess.ID)
	assert.Equal(t, "Sunday Hills Loop", sess.Name)
	assert.Equal(t, "Adelaide Hills", sess.Location)
	assert.False(t, sess.Date.IsZero(), "date defaults to creation time")
	require.Len(t, sess.Media, 2)
	assert.Equal(t, "contents/content-a.jpeg", sess.Media[0].StorageKey)
	assert.Equal(t, 0, sess.Media[0].Position)
	assert.Equal(t, 1, sess.Media[1].Position)
}

func TestSessionStoreCreateWithExplicitDate(t *testing.T) {
	s := NewSessionStore(openTestDB(t))

	date := time.Date(2025, 11, 2, 8, 30, 0, 0, time.UTC)
	sess, err := s.Create(context.Background(), &domain.Session{
		Name: "Dawn Ride", Location: "Beach Rd", Date: date,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, date.Format("2006-01-02"), sess.Date.UTC().Format("2006-01-02"))
}

func TestSessionStoreGetByIDAbsent(t *testing.T) {
	s := NewSessionStore(openTestDB(t))

	sess, err := s.GetByID(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, sess, "absent session is nil, not an error")
}

func TestSessionStoreListOrdersByDateDescending(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()

	old := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.Create(ctx, &domain.Session{Name: "Old", Location: "A", Date: old}, nil)
	require.NoError(t, err)
	_, err = s.Create(ctx, &domain.Session{Name: "Recent", Location: "B", Date: recent}, nil)
	require.NoError(t, err)

	sessions, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "Recent", sessions[0].Name)
	assert.Equal(t, "Old", sessions[1].Name)
}

func TestSessionStoreUpdateFields(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	sess := newTestSession(t, s)

	name := "Renamed Ride"
	cover := "covers/cover-new.jpeg"
	err := s.UpdateFields(ctx, sess.ID, domain.SessionPatch{Name: &name}, &cover)
	require.NoError(t, err)

	got, err := s.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Ride", got.Name)
	assert.Equal(t, "Adelaide Hills", got.Location, "untouched fields survive")
	require.NotNil(t, got.CoverKey)
	assert.Equal(t, cover, *got.CoverKey)
}

func TestSessionStoreUpdateFieldsEmptyPatchIsNoOp(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	sess := newTestSession(t, s, "contents/content-a.jpeg")

	require.NoError(t, s.UpdateFields(ctx, sess.ID, domain.SessionPatch{}, nil))

	got, err := s.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Name, got.Name)
	assert.Equal(t, sess.Version, got.Version)
	assert.Len(t, got.Media, 1)
}

func TestSessionStoreUpdateFieldsAbsent(t *testing.T) {
	s := NewSessionStore(openTestDB(t))

	name := "x"
	err := s.UpdateFields(context.Background(), 9999, domain.SessionPatch{Name: &name}, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStoreAppendMedia(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	sess := newTestSession(t, s, "contents/content-a.jpeg")

	require.NoError(t, s.AppendMedia(ctx, sess.ID, []string{"contents/content-b.jpeg"}))

	got, err := s.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Media, 2)
	assert.Equal(t, "contents/content-b.jpeg", got.Media[1].StorageKey)
	assert.Greater(t, got.Version, sess.Version, "list mutation bumps version")
}

func TestSessionStoreConcurrentAppendsBothLand(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	sess := newTestSession(t, s)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, key := range []string{"contents/content-a.jpeg", "contents/content-b.jpeg"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			errs <- s.AppendMedia(ctx, sess.ID, []string{key})
		}(key)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Media, 2, "neither concurrent append may be lost")
	assert.NotEqual(t, got.Media[0].Position, got.Media[1].Position)
}

func TestSessionStoreReplaceMedia(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	sess := newTestSession(t, s, "contents/content-a.jpeg", "contents/content-b.jpeg")

	require.NoError(t, s.ReplaceMedia(ctx, sess.ID, []string{"contents/content-c.jpeg"}))

	got, err := s.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Media, 1)
	assert.Equal(t, "contents/content-c.jpeg", got.Media[0].StorageKey)
}

func TestSessionStoreReplaceMediaWithEmptyListClears(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	sess := newTestSession(t, s, "contents/content-a.jpeg")

	require.NoError(t, s.ReplaceMedia(ctx, sess.ID, nil))

	got, err := s.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Media)
}

func TestSessionStoreDeleteMediaByIdentity(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	sess := newTestSession(t, s, "contents/content-a.jpeg", "contents/content-b.jpeg")

	require.NoError(t, s.DeleteMedia(ctx, sess.ID, sess.Media[0].ID))

	got, err := s.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Media, 1)
	assert.Equal(t, "contents/content-b.jpeg", got.Media[0].StorageKey)

	err = s.DeleteMedia(ctx, sess.ID, sess.Media[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "deleting the same identity twice fails")
}

func TestSessionStoreDelete(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	sess := newTestSession(t, s, "contents/content-a.jpeg")

	require.NoError(t, s.Delete(ctx, sess.ID))

	got, err := s.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, s.Delete(ctx, sess.ID), domain.ErrNotFound)
}

func TestSessionStoreDeleteLeavesNoMediaRows(t *testing.T) {
	d := openTestDB(t)
	s := NewSessionStore(d)
	ctx := context.Background()
	sess := newTestSession(t, s, "contents/content-a.jpeg", "contents/content-b.jpeg")

	require.NoError(t, s.Delete(ctx, sess.ID))

	var orphans int
	require.NoError(t, d.QueryRow(
		`SELECT COUNT(*) FROM session_media WHERE session_id = ?`, sess.ID,
	).Scan(&orphans))
	assert.Zero(t, orphans, "media rows must not outlive their session")
}

func TestSessionStoreMutationsOnAbsentSession(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()

	assert.ErrorIs(t, s.AppendMedia(ctx, 9999, []string{"k"}), domain.ErrNotFound)
	assert.ErrorIs(t, s.ReplaceMedia(ctx, 9999, []string{"k"}), domain.ErrNotFound)
	assert.ErrorIs(t, s.DeleteMedia(ctx, 9999, 1), domain.ErrNotFound)
}
