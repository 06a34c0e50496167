package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/nojellyleg/gallery/internal/blobstore"
	"github.com/nojellyleg/gallery/internal/blobstore/memory"
	"github.com/nojellyleg/gallery/internal/blobstore/s3"
	"github.com/nojellyleg/gallery/internal/config"
	"github.com/nojellyleg/gallery/internal/db"
	"github.com/nojellyleg/gallery/internal/logging"
	"github.com/nojellyleg/gallery/internal/service"
	"github.com/nojellyleg/gallery/internal/store"
	"github.com/nojellyleg/gallery/internal/web"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	blobs, err := newBlobStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize object store", "backend", cfg.BlobBackend, "error", err)
		return
	}

	sessionStore := store.NewSessionStore(database)
	sessionService := service.NewSessionService(sessionStore, blobs, logger)
	server := web.NewServer(sessionService, cfg.AdminUsername, cfg.AdminPassword, cfg.AllowedOrigin, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newBlobStore(cfg *config.Config, logger *slog.Logger) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case "memory":
		logger.Info("using in-memory object store; uploads do not survive restarts")
		return memory.New("gallery"), nil
	default:
		logger.Info("using s3 object store", "bucket", cfg.S3Bucket, "region", cfg.S3Region)
		return s3.New(context.Background(), s3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}, logger)
	}
}
