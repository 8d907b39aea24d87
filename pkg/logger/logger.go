// Package logger provides the slog.Logger construction and scoping
// conventions shared across the service.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Scope returns the attribute used to tag log lines with their originating
// component, e.g. logger.Scope("embedworker").
func Scope(name string) slog.Attr {
	return slog.String("scope", name)
}

// Error returns the canonical attribute for attaching an error to a log line.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// NewLogger builds the root logger from LOG_LEVEL and GO_ENV. JSON output is
// used outside local development so log aggregators get structured fields;
// local development gets a human-readable text handler.
func NewLogger() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("GO_ENV"), "local") || os.Getenv("GO_ENV") == "" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
