// Command gallery-migrate imports sessions from the legacy database layout,
// where each session kept its media list in a single JSON column and rows
// could still reference base64 payloads or files on local disk. Every media
// item is pushed through the normal ingestion pipeline, so the target
// database ends up holding canonical object-store locations only.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nojellyleg/gallery/internal/blobstore"
	"github.com/nojellyleg/gallery/internal/blobstore/memory"
	"github.com/nojellyleg/gallery/internal/blobstore/s3"
	"github.com/nojellyleg/gallery/internal/config"
	"github.com/nojellyleg/gallery/internal/db"
	"github.com/nojellyleg/gallery/internal/domain"
	"github.com/nojellyleg/gallery/internal/logging"
	"github.com/nojellyleg/gallery/internal/media"
	"github.com/nojellyleg/gallery/internal/store"
)

func main() {
	src := flag.String("src", "", "path to the legacy sqlite database (required)")
	dst := flag.String("dst", "", "path to the target sqlite database (required)")
	mediaDir := flag.String("media-dir", "", "directory resolving legacy local file references")
	dryRun := flag.Bool("dry-run", false, "report what would be migrated without writing")
	flag.Parse()

	if *src == "" || *dst == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(context.Background(), cfg, logger, *src, *dst, *mediaDir, *dryRun); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, src, dst, mediaDir string, dryRun bool) error {
	legacy, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", src))
	if err != nil {
		return fmt.Errorf("open legacy database: %w", err)
	}
	defer legacy.Close()

	rows, err := readLegacySessions(ctx, legacy)
	if err != nil {
		return err
	}
	logger.Info("legacy sessions loaded", "count", len(rows))

	if dryRun {
		for _, row := range rows {
			logger.Info("would migrate",
				"name", row.Name, "location", row.Location,
				"cover", row.Cover != "", "media_count", len(row.Media))
		}
		return nil
	}

	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	target, err := db.Open(dst)
	if err != nil {
		return fmt.Errorf("open target database: %w", err)
	}
	defer target.Close()
	sessions := store.NewSessionStore(target)

	migrator := &migrator{blobs: blobs, mediaDir: mediaDir, logger: logger}
	for _, row := range rows {
		if err := migrator.migrate(ctx, sessions, row); err != nil {
			return fmt.Errorf("migrate session %q: %w", row.Name, err)
		}
	}
	logger.Info("migration complete", "sessions", len(rows))
	return nil
}

// legacySession mirrors one row of the old single-table layout.
type legacySession struct {
	Name     string
	Location string
	People   string
	Date     time.Time
	Cover    string
	Media    []string
	MapEmbed *string
}

func readLegacySessions(ctx context.Context, legacy *sql.DB) ([]legacySession, error) {
	rows, err := legacy.QueryContext(ctx, `
		SELECT name, location, people, date, cover_media, session_media_s3, map
		FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read legacy sessions: %w", err)
	}
	defer rows.Close()

	var out []legacySession
	for rows.Next() {
		var (
			s                         legacySession
			people, date, cover, list sql.NullString
			mapEmbed                  sql.NullString
		)
		if err := rows.Scan(&s.Name, &s.Location, &people, &date, &cover, &list, &mapEmbed); err != nil {
			return nil, fmt.Errorf("scan legacy session: %w", err)
		}
		s.People = people.String
		s.Date = parseLegacyDate(date.String)
		s.Cover = cover.String
		s.Media = decodeMediaList(list)
		if mapEmbed.Valid && mapEmbed.String != "" {
			s.MapEmbed = &mapEmbed.String
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// decodeMediaList handles the three shapes the legacy column accumulated over
// time: NULL, a JSON array of strings, and a bare single reference.
func decodeMediaList(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	trimmed := strings.TrimSpace(raw.String)
	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
			return items
		}
	}
	return []string{trimmed}
}

func parseLegacyDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type migrator struct {
	blobs    blobstore.Store
	mediaDir string
	logger   *slog.Logger
}

func (m *migrator) migrate(ctx context.Context, sessions *store.SessionStore, row legacySession) error {
	var coverKey *string
	if row.Cover != "" {
		loc, err := m.ingest(ctx, media.KindCover, row.Cover)
		if err != nil {
			return err
		}
		coverKey = &loc
	}

	keys := make([]string, 0, len(row.Media))
	for _, item := range row.Media {
		loc, err := m.ingest(ctx, media.KindContent, item)
		if err != nil {
			return err
		}
		keys = append(keys, loc)
	}

	created, err := sessions.Create(ctx, &domain.Session{
		Name:     row.Name,
		Location: row.Location,
		People:   row.People,
		Date:     row.Date,
		CoverKey: coverKey,
		MapEmbed: row.MapEmbed,
	}, keys)
	if err != nil {
		return err
	}
	m.logger.Info("session migrated", "session_id", created.ID, "name", created.Name, "media_count", len(keys))
	return nil
}

// ingest converts one legacy media reference to a canonical location.
// Canonical locations pass through untouched; data URLs and local files go
// through the full normalize-address-upload pipeline.
func (m *migrator) ingest(ctx context.Context, kind media.Kind, item string) (string, error) {
	if m.blobs.IsCanonical(item) {
		return item, nil
	}

	var (
		raw         []byte
		contentType string
		err         error
	)
	switch {
	case media.IsDataURL(item):
		contentType, raw, err = media.ParseDataURL(item)
		if err != nil {
			return "", err
		}
	default:
		raw, contentType, err = m.readLocalFile(item)
		if err != nil {
			return "", err
		}
	}

	normalized, finalType, err := media.Normalize(raw, contentType)
	if err != nil {
		return "", err
	}
	key := media.DeriveKey(kind, finalType)
	return m.blobs.Upload(ctx, key, normalized, finalType)
}

func (m *migrator) readLocalFile(ref string) ([]byte, string, error) {
	if m.mediaDir == "" {
		return nil, "", fmt.Errorf("local file reference %q but no -media-dir given", ref)
	}
	path := filepath.Join(m.mediaDir, filepath.Base(ref))
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read legacy media file: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return raw, contentType, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blobstore.Store, error) {
	if cfg.BlobBackend == "memory" {
		return memory.New("gallery"), nil
	}
	return s3.New(ctx, s3.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}, logger)
}
