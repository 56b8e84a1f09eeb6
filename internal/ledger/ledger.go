// Package ledger records which parameter combinations have already been
// simulated so an interrupted sweep can resume where it stopped.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// Entry is one completed run.
type Entry struct {
	Key         string    `json:"key"`
	Artifact    string    `json:"artifact"`
	SweepID     string    `json:"sweep_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Ledger answers whether a combination is done and records new completions.
type Ledger interface {
	Completed(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, e Entry) error
}

// MemoryLedger is an in-process set of completed keys.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryLedger returns a ledger pre-seeded with keys.
func NewMemoryLedger(keys ...string) *MemoryLedger {
	m := &MemoryLedger{entries: make(map[string]Entry, len(keys))}
	for _, k := range keys {
		m.entries[k] = Entry{Key: k}
	}
	return m
}

func (m *MemoryLedger) Completed(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok, nil
}

func (m *MemoryLedger) Record(_ context.Context, e Entry) error {
	if e.Key == "" {
		return errors.New("ledger entry key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Key] = e
	return nil
}

// Entries returns all recorded entries sorted by key.
func (m *MemoryLedger) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ArtifactLedger treats a combination as done when its trace file exists.
// Path maps a key to the artifact that proves completion.
type ArtifactLedger struct {
	Path func(key string) string
}

func (a ArtifactLedger) Completed(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(a.Path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking artifact for %s: %w", key, err)
}

// Record is a no-op: the simulator writing the artifact is the record.
func (a ArtifactLedger) Record(context.Context, Entry) error { return nil }

// Chain consults several ledgers. A key is complete if any member says so;
// records go to every member.
type Chain []Ledger

func (c Chain) Completed(ctx context.Context, key string) (bool, error) {
	for _, l := range c {
		done, err := l.Completed(ctx, key)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
	}
	return false, nil
}

func (c Chain) Record(ctx context.Context, e Entry) error {
	for _, l := range c {
		if err := l.Record(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// BeginSweep registers the sweep with every member that tracks sweeps.
func (c Chain) BeginSweep(ctx context.Context, id string, combinations int) error {
	for _, l := range c {
		sr, ok := l.(interface {
			BeginSweep(context.Context, string, int) error
		})
		if !ok {
			continue
		}
		if err := sr.BeginSweep(ctx, id, combinations); err != nil {
			return err
		}
	}
	return nil
}
