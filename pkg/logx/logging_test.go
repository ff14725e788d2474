package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriterLoggerFieldsAndLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := NewWriter(&buf, "info").With(String("comp", "test"))

	l.Debug("hidden")
	l.Info("shown", Int("n", 3), Duration("d", time.Second), Err(errors.New("boom")), Bool("ok", true))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines=%d: %q", len(lines), buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("json: %v", err)
	}
	if m["message"] != "shown" || m["comp"] != "test" || m["n"] != float64(3) || m["ok"] != true {
		t.Fatalf("unexpected fields: %v", m)
	}
	if _, ok := m["caller"]; !ok {
		t.Fatalf("missing caller: %v", m)
	}
	if !l.Enabled(LevelWarn) || l.Enabled(LevelDebug) {
		t.Fatal("level gating")
	}
}

func TestZeroAndNop(t *testing.T) {
	t.Parallel()
	var zero Logger
	if !zero.IsZero() {
		t.Fatal("zero logger should be zero")
	}
	zero.Info("dropped") // must not panic
	if Nop().IsZero() {
		t.Fatal("nop is configured")
	}
}

func TestServiceApplyFileSink(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "out.log")
	svc, l := New(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	l.Debug("to file", String("k", "v"))

	svc.Apply(Config{Level: "error", File: FileConfig{Enabled: true, Path: path}})
	l.Info("filtered")
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `"to file"`) || strings.Contains(string(b), "filtered") {
		t.Fatalf("file content: %q", b)
	}
}
