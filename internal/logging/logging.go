// Package logging builds the process logger. Output always goes to the
// writer it is given (stderr in production); stdout carries the protocol.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jeanpaul/cursor-memory-mcp/internal/config"
)

// ParseLevel maps a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// New returns a logger writing to w. The returned LevelVar changes the level
// of the running logger.
func New(w io.Writer, cfg config.LogConfig) (*slog.Logger, *slog.LevelVar, error) {
	level := new(slog.LevelVar)
	if err := Apply(level, cfg); err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(handler), level, nil
}

// Apply sets level from cfg.
func Apply(level *slog.LevelVar, cfg config.LogConfig) error {
	l, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	level.Set(l)
	return nil
}
