// Package logging builds the process-wide slog logger: JSON to stderr, with
// an optional tee into a log file for deployments that keep local history.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON *slog.Logger at the given level. When logFile is
// non-empty the file is opened append-only and every record goes to both
// destinations. The cleanup func closes the file; callers must defer it.
// The logger is passed explicitly through constructors rather than installed
// as the slog default.
func New(level, logFile string) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	cleanup := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		cleanup = func() { _ = f.Close() }
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	return slog.New(slog.NewJSONHandler(w, opts)), cleanup, nil
}

// parseLevel maps a config string to a slog level; anything unrecognized
// falls back to info rather than failing startup over a typo.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
