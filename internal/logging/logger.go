// Package logging sets up ffi's stderr logger and the per-sweep event
// file written next to the traces.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace sits below Debug; generated simulator scripts are logged at it.
const LevelTrace = slog.LevelDebug - 4

// EventsFile is the event log's name inside the trace directory.
const EventsFile = "sweep-events.jsonl"

var levelNames = map[string]slog.Level{
	"info":  slog.LevelInfo,
	"debug": slog.LevelDebug,
	"trace": LevelTrace,
}

// ParseLevel accepts info, debug or trace in any case. Anything else is info.
func ParseLevel(s string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(s)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// NewLogger returns a text logger on w at the named level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: labelTrace,
	}))
}

// labelTrace prints LevelTrace as TRACE instead of DEBUG-4.
func labelTrace(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		return slog.String(slog.LevelKey, "TRACE")
	}
	return a
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// EventKind is what happened to a combination.
type EventKind string

const (
	EventSkip EventKind = "skip"
	EventRun  EventKind = "run"
	EventDone EventKind = "done"
	EventFail EventKind = "error"
)

// Event is one line of the event log.
type Event struct {
	Time  time.Time `json:"time"`
	Kind  EventKind `json:"event"`
	Sweep string    `json:"sweep"`
	Index int       `json:"index"`
	Label string    `json:"label"`

	// Run events carry the simulated time and both stimulus trains.
	DurationMs float64   `json:"duration_ms,omitempty"`
	Exc        []float64 `json:"exc,omitempty"`
	Inh        []float64 `json:"inh,omitempty"`

	Error string `json:"error,omitempty"`
}

// SweepLog appends events to <dir>/sweep-events.jsonl. A nil *SweepLog
// discards everything, which is what OpenSweepLog returns at info level.
type SweepLog struct {
	mu   sync.Mutex
	f    *os.File
	enc  *json.Encoder
	err  error
	now  func() time.Time
	path string
}

// OpenSweepLog opens the event log for append when level is debug or
// trace, creating dir if needed.
func OpenSweepLog(dir, level string) (*SweepLog, error) {
	if ParseLevel(level) > slog.LevelDebug {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	path := filepath.Join(dir, EventsFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &SweepLog{f: f, enc: json.NewEncoder(f), now: time.Now, path: path}, nil
}

// Path is the event file, or "" for a nil log.
func (l *SweepLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Write stamps e with the current UTC time and appends it. After the
// first failure further events are dropped; Close reports that failure.
func (l *SweepLog) Write(e Event) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil || l.err != nil {
		return
	}
	e.Time = l.now().UTC()
	if err := l.enc.Encode(e); err != nil {
		l.err = fmt.Errorf("writing event %s for %s: %w", e.Kind, e.Label, err)
	}
}

// Close closes the file and returns the first write error, if any.
func (l *SweepLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return l.err
	}
	cerr := l.f.Close()
	l.f = nil
	if l.err != nil {
		return l.err
	}
	return cerr
}
