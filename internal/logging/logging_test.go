package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  slog.LevelInfo,
		Format: FormatText,
		Output: &buf,
	})

	logger.Info("backup complete", "file", "demo.zip")

	out := buf.String()
	if !strings.Contains(out, "backup complete") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "file=demo.zip") {
		t.Errorf("output missing attribute: %q", out)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  slog.LevelInfo,
		Format: FormatJSON,
		Output: &buf,
	})

	logger.Info("split", "fragments", 10)

	out := buf.String()
	if !strings.Contains(out, `"msg":"split"`) {
		t.Errorf("JSON output missing msg: %q", out)
	}
	if !strings.Contains(out, `"fragments":10`) {
		t.Errorf("JSON output missing attribute: %q", out)
	}
}

func TestHandler_MasksPassword(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  slog.LevelDebug,
		Format: FormatText,
		Output: &buf,
	})

	logger.Debug("encrypting", "password", "hunter2")

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Errorf("password leaked to log output: %q", out)
	}
	if !strings.Contains(out, "password=***") {
		t.Errorf("expected masked attribute, got %q", out)
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  slog.LevelWarn,
		Format: FormatText,
		Output: &buf,
	})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should have been filtered: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		want      slog.Level
	}{
		{0, slog.LevelInfo},
		{1, slog.LevelDebug},
		{2, slog.LevelDebug - 4},
		{5, slog.LevelDebug - 4},
	}

	for _, tt := range tests {
		got := LevelFromVerbosity(tt.verbosity)
		if got != tt.want {
			t.Errorf("LevelFromVerbosity(%d) = %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	handler := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	)
	logger := slog.New(handler)

	logger.Info("fan out")

	if !strings.Contains(a.String(), "fan out") {
		t.Error("first handler missed the record")
	}
	if !strings.Contains(b.String(), "fan out") {
		t.Error("second handler missed the record")
	}
}
