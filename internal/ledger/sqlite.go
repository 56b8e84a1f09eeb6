package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteLedger persists completed runs in a SQLite database so that
// resumability doesn't depend on trace files staying where they were
// written.
type SQLiteLedger struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteLedger opens (or creates) the ledger database at path.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := prepareLedger(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &SQLiteLedger{db: db, dbPath: path}, nil
}

// Path returns the database file path.
func (s *SQLiteLedger) Path() string { return s.dbPath }

func (s *SQLiteLedger) Completed(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query run %s: %w", key, err)
	}
	return true, nil
}

func (s *SQLiteLedger) Record(ctx context.Context, e Entry) error {
	if e.Key == "" {
		return errors.New("ledger entry key is required")
	}
	if e.CompletedAt.IsZero() {
		e.CompletedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (key, artifact, sweep_id, completed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			artifact = excluded.artifact,
			sweep_id = excluded.sweep_id,
			completed_at = excluded.completed_at`,
		e.Key, e.Artifact, e.SweepID, e.CompletedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", e.Key, err)
	}
	return nil
}

// BeginSweep records the start of a sweep invocation.
func (s *SQLiteLedger) BeginSweep(ctx context.Context, id string, combinations int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sweeps (id, started_at, combinations) VALUES (?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), combinations)
	if err != nil {
		return fmt.Errorf("failed to record sweep %s: %w", id, err)
	}
	return nil
}

// Entries lists recorded runs, optionally restricted to one sweep.
func (s *SQLiteLedger) Entries(ctx context.Context, sweepID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT key, artifact, sweep_id, completed_at FROM runs`
	var args []any
	if sweepID != "" {
		query += ` WHERE sweep_id = ?`
		args = append(args, sweepID)
	}
	query += ` ORDER BY completed_at, key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var completed string
		if err := rows.Scan(&e.Key, &e.Artifact, &e.SweepID, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		e.CompletedAt, err = time.Parse(time.RFC3339Nano, completed)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at %q: %w", completed, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Forget removes a run so the next sweep simulates it again.
func (s *SQLiteLedger) Forget(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to forget run %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteLedger) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
