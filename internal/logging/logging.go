// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the process logger from LogConfig: readable text on
// stderr, plus an optional JSON copy of every record in a file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// ParseLevel maps debug, info, warn or error to a slog level. Empty means
// info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, types.Invalid(fmt.Errorf("unknown log level %q", s))
	}
}

// Setup creates the logger described by cfg. The returned cleanup closes
// the log file, if any.
func Setup(cfg types.LogConfig, stderr io.Writer) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	textHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})

	if cfg.File == "" {
		return slog.New(textHandler), func() error { return nil }, nil
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(textHandler)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", cfg.File)
		return logger, func() error { return nil }, nil
	}
	return WithWriters(stderr, file, level), file.Close, nil
}

// WithWriters fans records out to a text handler on stderr and a JSON
// handler on file.
func WithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	))
}
