package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nojellyleg/gallery/internal/domain"
)

// casAttempts bounds the optimistic-concurrency retry loop on media-list
// mutations.
const casAttempts = 3

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create inserts the session row and its initial media references in one
// transaction. sess carries the field values; a zero Date means "now".
func (s *SessionStore) Create(ctx context.Context, sess *domain.Session, mediaKeys []string) (*domain.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var result sql.Result
	if sess.Date.IsZero() {
		result, err = tx.ExecContext(ctx, `
			INSERT INTO sessions (name, location, people, cover_key, map_embed)
			VALUES (?, ?, ?, ?, ?)
		`, sess.Name, sess.Location, sess.People, sess.CoverKey, sess.MapEmbed)
	} else {
		result, err = tx.ExecContext(ctx, `
			INSERT INTO sessions (name, location, people, cover_key, map_embed, date)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sess.Name, sess.Location, sess.People, sess.CoverKey, sess.MapEmbed, sess.Date)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	for i, key := range mediaKeys {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_media (session_id, storage_key, position) VALUES (?, ?, ?)
		`, id, key, i)
		if err != nil {
			return nil, fmt.Errorf("failed to create media reference: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *SessionStore) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	sess := &domain.Session{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, location, people, date, cover_key, map_embed, version, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(
		&sess.ID, &sess.Name, &sess.Location, &sess.People, &sess.Date,
		&sess.CoverKey, &sess.MapEmbed, &sess.Version, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if sess.Media, err = s.mediaFor(ctx, sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

// List returns every session, newest outing first, with media references
// loaded.
func (s *SessionStore) List(ctx context.Context) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, location, people, date, cover_key, map_embed, version, created_at, updated_at
		FROM sessions ORDER BY date DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		sess := &domain.Session{}
		if err := rows.Scan(
			&sess.ID, &sess.Name, &sess.Location, &sess.People, &sess.Date,
			&sess.CoverKey, &sess.MapEmbed, &sess.Version, &sess.CreatedAt, &sess.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	for _, sess := range sessions {
		if sess.Media, err = s.mediaFor(ctx, sess.ID); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// UpdateFields applies a partial update of scalar fields plus, when coverKey
// is non-nil, the cover reference. Nil pointers leave columns alone; a fully
// empty patch is a no-op.
func (s *SessionStore) UpdateFields(ctx context.Context, id int64, patch domain.SessionPatch, coverKey *string) error {
	var sets []string
	var args []any

	if patch.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *patch.Name)
	}
	if patch.Location != nil {
		sets, args = append(sets, "location = ?"), append(args, *patch.Location)
	}
	if patch.People != nil {
		sets, args = append(sets, "people = ?"), append(args, *patch.People)
	}
	if patch.Date != nil {
		sets, args = append(sets, "date = ?"), append(args, *patch.Date)
	}
	if patch.MapEmbed != nil {
		sets, args = append(sets, "map_embed = ?"), append(args, *patch.MapEmbed)
	}
	if coverKey != nil {
		sets, args = append(sets, "cover_key = ?"), append(args, *coverKey)
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = datetime('now')")
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendMedia adds keys to the end of the session's content list. The
// mutation is guarded by a version compare-and-swap so two concurrent
// appends both land instead of one silently overwriting the other.
func (s *SessionStore) AppendMedia(ctx context.Context, sessionID int64, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.withVersionCAS(ctx, sessionID, func(tx *sql.Tx) error {
		for _, key := range keys {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO session_media (session_id, storage_key, position)
				VALUES (?, ?, COALESCE((SELECT MAX(position) + 1 FROM session_media WHERE session_id = ?), 0))
			`, sessionID, key, sessionID)
			if err != nil {
				return fmt.Errorf("failed to append media reference: %w", err)
			}
		}
		return nil
	})
}

// ReplaceMedia swaps the session's content list for exactly keys; an empty
// slice clears it.
func (s *SessionStore) ReplaceMedia(ctx context.Context, sessionID int64, keys []string) error {
	return s.withVersionCAS(ctx, sessionID, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM session_media WHERE session_id = ?
		`, sessionID); err != nil {
			return fmt.Errorf("failed to clear media references: %w", err)
		}
		for i, key := range keys {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO session_media (session_id, storage_key, position) VALUES (?, ?, ?)
			`, sessionID, key, i); err != nil {
				return fmt.Errorf("failed to insert media reference: %w", err)
			}
		}
		return nil
	})
}

// DeleteMedia removes one media reference by its stable id, never by
// position in the list.
func (s *SessionStore) DeleteMedia(ctx context.Context, sessionID, mediaID int64) error {
	return s.withVersionCAS(ctx, sessionID, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			DELETE FROM session_media WHERE id = ? AND session_id = ?
		`, mediaID, sessionID)
		if err != nil {
			return fmt.Errorf("failed to delete media reference: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// Delete removes the session row (media rows cascade). Objects in the blob
// store are left behind.
func (s *SessionStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *SessionStore) mediaFor(ctx context.Context, sessionID int64) ([]domain.MediaRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, storage_key, position, created_at
		FROM session_media WHERE session_id = ? ORDER BY position ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	var media []domain.MediaRef
	for rows.Next() {
		var m domain.MediaRef
		if err := rows.Scan(&m.ID, &m.SessionID, &m.StorageKey, &m.Position, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media reference: %w", err)
		}
		media = append(media, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media references: %w", err)
	}
	return media, nil
}

// withVersionCAS runs fn inside a transaction that first bumps the session's
// version with a compare-and-swap. Losing the swap means another writer got
// in between the read and the update; the whole transaction is retried a
// bounded number of times before giving up with ErrConflict.
func (s *SessionStore) withVersionCAS(ctx context.Context, sessionID int64, fn func(tx *sql.Tx) error) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		swapped, err := s.tryVersionCAS(ctx, sessionID, fn)
		if err != nil {
			return err
		}
		if swapped {
			return nil
		}
	}
	return domain.ErrConflict
}

func (s *SessionStore) tryVersionCAS(ctx context.Context, sessionID int64, fn func(tx *sql.Tx) error) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var version int64
	err = tx.QueryRowContext(ctx, `
		SELECT version FROM sessions WHERE id = ?
	`, sessionID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read session version: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE sessions SET version = version + 1, updated_at = datetime('now')
		WHERE id = ? AND version = ?
	`, sessionID, version)
	if err != nil {
		return false, fmt.Errorf("failed to bump session version: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		// Lost the race; caller retries with a fresh version.
		return false, nil
	}

	if err := fn(tx); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit media mutation: %w", err)
	}
	return true, nil
}
