package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/frankbria/auto-author/internal/config"
)

// NewLogger builds the process logger on stderr and installs it as the slog
// default. Format "json" is for production; anything else is text with
// source locations. Every line carries the binary name.
func NewLogger(cfg config.LogConfig, binary string) *slog.Logger {
	logger := newLogger(os.Stderr, cfg).With(slog.String("app", binary))
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	json := strings.EqualFold(cfg.Format, "json")
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: !json,
	}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
