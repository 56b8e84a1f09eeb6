package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"mixed case Trace", "Trace", LevelTrace},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
	}{
		{"info filters debug", "info", false},
		{"debug passes debug", "debug", true},
		{"trace passes debug", "trace", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			hasDebug := strings.Contains(buf.String(), "debug message")
			if hasDebug != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v (buf: %q)", hasDebug, tt.logAtDebug, buf.String())
			}

			buf.Reset()
			logger.Info("info message")
			if !strings.Contains(buf.String(), "info message") {
				t.Errorf("info message missing at level %s", tt.level)
			}
		})
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)
	logger.Log(context.Background(), LevelTrace, "script body")

	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("expected TRACE label, got %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic and must not be nil.
	l := Discard()
	if l == nil {
		t.Fatal("Discard() returned nil")
	}
	l.Error("dropped")
}

func TestOpenSweepLog_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	l, err := OpenSweepLog(dir, "info")
	if err != nil || l != nil {
		t.Fatalf("OpenSweepLog(info) = %v, %v, want nil, nil", l, err)
	}

	l.Write(Event{Kind: EventSkip})
	if err := l.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
	if l.Path() != "" {
		t.Errorf("nil Path() = %q", l.Path())
	}
	if _, err := os.Stat(filepath.Join(dir, EventsFile)); err == nil {
		t.Errorf("%s should not exist at info level", EventsFile)
	}
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	var events []Event
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("bad event line %q: %v", line, err)
		}
		events = append(events, e)
	}
	return events
}

func TestSweepLog_WritesEvents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "traces")
	l, err := OpenSweepLog(dir, "debug")
	if err != nil {
		t.Fatalf("OpenSweepLog() error = %v", err)
	}
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	l.now = func() time.Time { return at }

	l.Write(Event{Kind: EventRun, Sweep: "s1", Index: 3, Label: "neuron_a", DurationMs: 1100, Exc: []float64{200, 300}})
	l.Write(Event{Kind: EventDone, Sweep: "s1", Index: 3, Label: "neuron_a"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	events := readEvents(t, l.Path())
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	run := events[0]
	if run.Kind != EventRun || run.Index != 3 || run.DurationMs != 1100 || len(run.Exc) != 2 {
		t.Errorf("run event = %+v", run)
	}
	if !run.Time.Equal(at) || run.Time.Location() != time.UTC {
		t.Errorf("Time = %v, want %v in UTC", run.Time, at)
	}
	if events[1].Kind != EventDone {
		t.Errorf("second event = %s, want done", events[1].Kind)
	}
}

func TestSweepLog_Appends(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		l, err := OpenSweepLog(dir, "trace")
		if err != nil {
			t.Fatalf("OpenSweepLog() error = %v", err)
		}
		l.Write(Event{Kind: EventSkip, Index: i})
		l.Close()
	}
	if got := readEvents(t, filepath.Join(dir, EventsFile)); len(got) != 2 || got[1].Index != 1 {
		t.Errorf("events after reopen = %+v", got)
	}
}

func TestSweepLog_WriteAfterClose(t *testing.T) {
	l, err := OpenSweepLog(t.TempDir(), "debug")
	if err != nil {
		t.Fatal(err)
	}
	l.Close()
	l.Write(Event{Kind: EventDone})
	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestOpenSweepLog_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenSweepLog(filepath.Join(file, "sub"), "debug"); err == nil {
		t.Error("OpenSweepLog() under a regular file: error = nil")
	}
}
