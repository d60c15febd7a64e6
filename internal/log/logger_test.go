package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Output: &buf, Level: slog.LevelInfo, Component: ComponentHTTP})
	l.Info("hello", FieldCoupleID, "c1")
	l.WithComponent(ComponentWorker).Info("again")
	l.Debug("hidden")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0][FieldComponent] != ComponentHTTP || lines[0][FieldCoupleID] != "c1" {
		t.Fatalf("unexpected first line: %v", lines[0])
	}
	if lines[1][FieldComponent] != ComponentWorker {
		t.Fatalf("component not replaced: %v", lines[1])
	}
	if l.WithComponent(ComponentCache).Component() != ComponentCache {
		t.Fatalf("Component() mismatch")
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Output: &buf, Level: slog.LevelInfo, Component: ComponentPlanner})

	ctx := NewContext(context.Background(), l.With(FieldRequestID, "req_1"))
	FromContext(ctx).Info("inside")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0][FieldComponent] != ComponentPlanner || lines[0][FieldRequestID] != "req_1" {
		t.Fatalf("unexpected lines: %v", lines)
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf, Level: slog.LevelInfo}))
	r := httptest.NewRequest(http.MethodPost, "/dashboard/events", nil)

	sl.LogHTTPEnd(context.Background(), r, "req_2", http.StatusUnprocessableEntity, 15*time.Millisecond, "10.0.0.1")
	sl.LogHTTPEnd(context.Background(), r, "", http.StatusBadGateway, time.Millisecond, "10.0.0.1")
	sl.LogChange(context.Background(), "create", "c1", "event", "e1")
	sl.LogChange(context.Background(), "delete", "c1", "couple", "")

	lines := decodeLines(t, &buf)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[0]["level"] != "WARN" || lines[0][FieldStatusCode] != float64(422) || lines[0][FieldRequestID] != "req_2" {
		t.Fatalf("unexpected http line: %v", lines[0])
	}
	if _, ok := lines[0][FieldQuery]; ok {
		t.Fatalf("empty query should be omitted: %v", lines[0])
	}
	if lines[1]["level"] != "ERROR" {
		t.Fatalf("5xx should log at error: %v", lines[1])
	}
	if _, ok := lines[1][FieldRequestID]; ok {
		t.Fatalf("empty request id should be omitted: %v", lines[1])
	}
	if lines[2][FieldEntity] != "event" || lines[2][FieldOperation] != "create" || lines[2][FieldEntityID] != "e1" {
		t.Fatalf("unexpected change line: %v", lines[2])
	}
	if _, ok := lines[3][FieldEntityID]; ok {
		t.Fatalf("empty entity id should be omitted: %v", lines[3])
	}
}
