package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/semshift/semshift/internal/config"
)

func TestSetupText(t *testing.T) {
	logger, err := Setup(config.LogConfig{Level: "info", Format: "text"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if logger == nil {
		t.Fatal("nil logger")
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug enabled at info level")
	}
}

func TestSetupFileTee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "semshift.log")
	logger, err := Setup(config.LogConfig{Level: "debug", Format: "json", File: path})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	logger.Info("migration started", "app", "Sales")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"migration started"`) {
		t.Errorf("log file = %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
