package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    LoggingConfig
		wantDebug bool
	}{
		{name: "json info", config: LoggingConfig{Level: "info", Format: "json"}},
		{name: "text debug", config: LoggingConfig{Level: "debug", Format: "text"}, wantDebug: true},
		{name: "uppercase level", config: LoggingConfig{Level: "DEBUG"}, wantDebug: true},
		{name: "warning alias", config: LoggingConfig{Level: "warning", Output: "stderr"}},
		{name: "invalid defaults to info", config: LoggingConfig{Level: "invalid"}},
		{name: "discard output", config: LoggingConfig{Level: "error", Output: "discard"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			if logger == nil {
				t.Fatal("NewLogger returned nil")
			}
			if got := logger.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
		})
	}
}

func TestNewLogger_LevelThresholds(t *testing.T) {
	logger := NewLogger(LoggingConfig{Level: "warn", Output: "discard"})
	ctx := context.Background()

	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Enabled(ctx, slog.LevelWarn) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	// Should not panic
	logger.Info("dropped", "key", "value")
	logger.With("run_id", "x").Error("dropped")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" Info ":  slog.LevelInfo,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewLoggerTo_Formats(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(LoggingConfig{Format: "json"}, &buf).With("run_id", "abc").Info("started")
	if !strings.Contains(buf.String(), `"run_id":"abc"`) {
		t.Errorf("json output = %s", buf.String())
	}

	buf.Reset()
	NewLoggerTo(LoggingConfig{Format: "TEXT"}, &buf).Info("started", "format", "csv")
	if !strings.Contains(buf.String(), "format=csv") {
		t.Errorf("text output = %s", buf.String())
	}
}
