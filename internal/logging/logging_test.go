package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_JSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := NewWithWriter(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}
	log.Info("dropped")
	log.Warn("kept", zap.String("key", "proxyRules"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines=%d, want=1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("json: %v", err)
	}
	if entry["msg"] != "kept" || entry["level"] != "warn" || entry["key"] != "proxyRules" {
		t.Fatalf("entry=%v", entry)
	}
}

func TestNew_AtomicLevelChange(t *testing.T) {
	var buf bytes.Buffer
	log, lv, err := NewWithWriter(&buf, "", "console")
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}
	log.Debug("hidden")
	lv.SetLevel(zap.DebugLevel)
	log.Debug("shown")
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") || !strings.Contains(out, "DEBUG") {
		t.Fatalf("out=%q", out)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, _, err := New("loud", "console"); err == nil {
		t.Fatalf("expected error for bad level")
	}
	if _, _, err := New("info", "xml"); err == nil {
		t.Fatalf("expected error for bad format")
	}
}
