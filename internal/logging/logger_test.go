package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLevelFiltering(t *testing.T) {
	ctx := context.Background()

	debug := New("debug")
	if !debug.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug logger must enable debug records")
	}

	warn := New("warn")
	if warn.Enabled(ctx, slog.LevelInfo) {
		t.Error("warn logger must drop info records")
	}
	if !warn.Enabled(ctx, slog.LevelWarn) {
		t.Error("warn logger must enable warn records")
	}

	// Unknown levels fall back to info.
	fallback := New("verbose")
	if fallback.Enabled(ctx, slog.LevelDebug) {
		t.Error("unknown level must fall back to info")
	}
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")

	logger.Debug("hidden")
	logger.Info("task added", "task_id", 7)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record must be filtered at info level")
	}
	if !strings.Contains(out, "task added") || !strings.Contains(out, "task_id=7") {
		t.Errorf("missing info record in %q", out)
	}
}
