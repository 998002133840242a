// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var level = new(slog.LevelVar)

// New builds a text or JSON slog logger writing to w (stdout when nil) and installs it
// as slog.Default. The level can later be changed with SetLevel.
func New(w io.Writer, lvl, format string) (*slog.Logger, error) {
	if w == nil {
		w = os.Stdout
	}
	if err := SetLevel(lvl); err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l, nil
}

// SetLevel changes the level of every logger built by New.
func SetLevel(lvl string) error {
	parsed, err := ParseLevel(lvl)
	if err != nil {
		return err
	}
	level.Set(parsed)
	return nil
}

// ParseLevel accepts debug, info, warn/warning and error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
