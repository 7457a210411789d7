package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newBufferLogger(level zerolog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewWithWriter(&buf, level), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Expected valid JSON output, got error: %v (%q)", err, buf.String())
	}
	return entry
}

func TestNew_ProductionMode(t *testing.T) {
	log := New("production")
	if log == nil {
		t.Fatal("Expected logger to be created")
	}
	if log.GetZerolog().GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level in production, got %s", log.GetZerolog().GetLevel())
	}
}

func TestNew_DevelopmentMode(t *testing.T) {
	log := New("development")
	if log.GetZerolog().GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level in development, got %s", log.GetZerolog().GetLevel())
	}
}

func TestInfo_WritesFields(t *testing.T) {
	log, buf := newBufferLogger(zerolog.DebugLevel)

	log.Info("target created", map[string]interface{}{
		"target_name": "Sala A",
		"coord_x":     50.0,
	})

	entry := decodeLine(t, buf)
	if entry["message"] != "target created" {
		t.Errorf("Expected message field, got %v", entry["message"])
	}
	if entry["target_name"] != "Sala A" {
		t.Errorf("Expected target_name field, got %v", entry["target_name"])
	}
	if entry["level"] != "info" {
		t.Errorf("Expected info level, got %v", entry["level"])
	}
}

func TestError_IncludesError(t *testing.T) {
	log, buf := newBufferLogger(zerolog.DebugLevel)

	log.Error("upload failed", errors.New("bucket unreachable"), map[string]interface{}{
		"key": "visitas/1.jpg",
	})

	entry := decodeLine(t, buf)
	if entry["error"] != "bucket unreachable" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
	if entry["key"] != "visitas/1.jpg" {
		t.Errorf("Expected key field, got %v", entry["key"])
	}
}

func TestWarnAndDebug(t *testing.T) {
	log, buf := newBufferLogger(zerolog.DebugLevel)

	log.Warn("stale result discarded", map[string]interface{}{"plan": "p1"})
	if !strings.Contains(buf.String(), "stale result discarded") {
		t.Error("Expected warn output")
	}

	buf.Reset()
	log.Debug("tick", nil)
	if !strings.Contains(buf.String(), "tick") {
		t.Error("Expected debug output")
	}
}

func TestLevelFiltering(t *testing.T) {
	log, buf := newBufferLogger(zerolog.InfoLevel)

	log.Debug("hidden", nil)
	if buf.Len() != 0 {
		t.Errorf("Debug message should be filtered at info level, got %q", buf.String())
	}

	log.Info("visible", nil)
	if !strings.Contains(buf.String(), "visible") {
		t.Error("Info message should be written at info level")
	}
}

func TestChildLoggers(t *testing.T) {
	log, buf := newBufferLogger(zerolog.DebugLevel)

	log.With(map[string]interface{}{"project_id": "p-1"}).
		WithComponent("viewer").
		WithSession("s-9").
		WithRequestID("req-12345").
		Info("compare entered", nil)

	entry := decodeLine(t, buf)
	for key, want := range map[string]string{
		"project_id": "p-1",
		"component":  "viewer",
		"session_id": "s-9",
		"request_id": "req-12345",
	} {
		if entry[key] != want {
			t.Errorf("Expected %s=%s, got %v", key, want, entry[key])
		}
	}
}

func TestNewNop_DiscardsOutput(t *testing.T) {
	log := NewNop()
	// Must not panic and must not write anywhere observable.
	log.Info("ignored", map[string]interface{}{"k": "v"})
	log.Error("ignored", errors.New("x"), nil)
}
