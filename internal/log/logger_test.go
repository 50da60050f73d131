package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Output: &buf, Component: ComponentPersist})
	logger.Info("saved", FieldUserID, "u1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentPersist || rec[FieldUserID] != "u1" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: FormatText, Output: &buf})
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestTintHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatTint, Output: &buf})
	logger.Info("colored")
	if !strings.Contains(buf.String(), "colored") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestLogStoreFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Output: &buf, Component: ComponentPersist})
	NewStructuredLogger(logger).LogStoreFailure(context.Background(), OpSave, "u1", "rooms", "users/u1/rooms/r1", errors.New("permission denied"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec[FieldDocPath] != "users/u1/rooms/r1" || rec[FieldError] != "permission denied" || rec[FieldOperation] != OpSave {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec["level"] != "ERROR" {
		t.Fatalf("expected error level, got %v", rec["level"])
	}
}

func TestFromContext(t *testing.T) {
	logger := New(DefaultConfig()).WithComponent(ComponentSession)
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx).Component() != ComponentSession {
		t.Fatal("logger not found in context")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}
