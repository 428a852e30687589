package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/mortgage-compare/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		config        config.LoggingConfig
		override      string
		wantError     bool
		expectedLevel zapcore.Level
	}{
		{"defaults", config.LoggingConfig{}, "", false, zapcore.InfoLevel},
		{"config level", config.LoggingConfig{Level: "warn", Format: "console"}, "", false, zapcore.WarnLevel},
		{"override wins", config.LoggingConfig{Level: "error"}, "debug", false, zapcore.DebugLevel},
		{"warning alias", config.LoggingConfig{Level: "warning"}, "", false, zapcore.WarnLevel},
		{"invalid level", config.LoggingConfig{Level: "verbose"}, "", true, zapcore.InfoLevel},
		{"invalid override", config.LoggingConfig{}, "loud", true, zapcore.InfoLevel},
		{"invalid format", config.LoggingConfig{Format: "xml"}, "", true, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config, tt.override)
			if tt.wantError {
				if err == nil {
					t.Errorf("New() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if !logger.Core().Enabled(tt.expectedLevel) {
				t.Errorf("Expected level %s to be enabled", tt.expectedLevel)
			}
			if tt.expectedLevel > zapcore.DebugLevel && logger.Core().Enabled(tt.expectedLevel-1) {
				t.Errorf("Expected level %s to be disabled", tt.expectedLevel-1)
			}
		})
	}
}

func TestNewOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "compare.log")

	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", OutputFile: path}, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("written to file")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("Expected log line in file, got %q", string(data))
	}
}
