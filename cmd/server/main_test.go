package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skypro1111/wordclip-service/internal/config"
)

func TestInitLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, closeLog := initLogger(config.LoggingConfig{Level: tt.level, Format: "text", Output: "stderr"})
			defer closeLog()

			if !logger.Enabled(context.Background(), tt.want) {
				t.Errorf("Expected level %s to be enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && logger.Enabled(context.Background(), tt.want-1) {
				t.Errorf("Expected level below %s to be disabled", tt.want)
			}
		})
	}
}

func TestInitLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	logger, closeLog := initLogger(config.LoggingConfig{Level: "info", Format: "json", Output: path})
	logger.Info("hello", slog.String("component", "test"))
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if !strings.Contains(string(data), `"msg":"hello"`) || !strings.Contains(string(data), `"component":"test"`) {
		t.Errorf("Unexpected log output %q", data)
	}
}
