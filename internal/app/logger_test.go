package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/frankbria/auto-author/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	logger.Log(context.Background(), slog.LevelWarn, "kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn should pass, got %q", buf.String())
	}
}

func TestNewLogger_Formats(t *testing.T) {
	var jsonBuf, textBuf bytes.Buffer
	newLogger(&jsonBuf, config.LogConfig{Level: "info", Format: "json"}).Info("hello", slog.String("book_id", "b1"))
	newLogger(&textBuf, config.LogConfig{Level: "info", Format: "text"}).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(jsonBuf.Bytes(), &line); err != nil {
		t.Fatalf("json format produced invalid JSON: %v", err)
	}
	if line["book_id"] != "b1" {
		t.Errorf("book_id = %v", line["book_id"])
	}
	if _, ok := line["source"]; ok {
		t.Error("json format should not include source")
	}
	if !strings.Contains(textBuf.String(), "source=") {
		t.Error("text format should include source")
	}
}

func TestNewLogger_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(config.LogConfig{Level: "info", Format: "json"}, "tocd")
	if slog.Default().Handler() != logger.Handler() {
		t.Error("NewLogger should install the logger as default")
	}
}
