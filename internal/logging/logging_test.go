package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "posserver", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithLicenseKey(ctx, "CSTY-AAAA-BBBB-CCCC")
	log.Error(ctx, "verify failed", errors.New("database is locked"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json entry: %v (%s)", err, buf.String())
	}
	if entry["request_id"] != "req-123" {
		t.Errorf("expected request_id, entry=%s", buf.String())
	}
	if entry["license_key"] != "CSTY-AAAA-BBBB-CCCC" {
		t.Errorf("expected license_key, entry=%s", buf.String())
	}
	if entry["error"] != "database is locked" {
		t.Errorf("expected error field, entry=%s", buf.String())
	}
	if entry["service"] != "posserver" {
		t.Errorf("expected service field, entry=%s", buf.String())
	}
	if _, ok := entry["stack"]; ok {
		t.Errorf("stack should be off by default")
	}
}

func TestErrorStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "posserver", Output: buf, ErrorStack: true})
	log.Error(context.Background(), "boom", nil)
	if !strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("expected stack when enabled, entry=%s", buf.String())
	}
}

func TestLevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "posserver", Level: ParseLevel("warn"), Output: buf})
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %s", buf.String())
	}
	log.Warn(context.Background(), "shown", nil)
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn entry, got %s", buf.String())
	}
}

func TestConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "posserver", Format: "console", Output: buf})
	log.Info(context.Background(), "hello")
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("expected console output, got %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected info, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fall back to info, got %v", lvl)
	}
	if lvl := ParseLevel("DEBUG"); lvl != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %v", lvl)
	}
}
