package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SchemaVersion is stored in the database header (PRAGMA user_version).
const SchemaVersion = 1

// ErrSchemaVersion is returned when a ledger file was written with a
// schema this build does not know.
var ErrSchemaVersion = errors.New("unsupported ledger schema version")

const ledgerTables = `
CREATE TABLE IF NOT EXISTS runs (
    key TEXT PRIMARY KEY,
    artifact TEXT NOT NULL,
    sweep_id TEXT NOT NULL,
    completed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_sweep ON runs(sweep_id);

CREATE TABLE IF NOT EXISTS sweeps (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    combinations INTEGER NOT NULL
);
`

// prepareLedger creates the tables in an empty file, checks an existing
// ledger for corruption, and refuses versions it cannot read.
func prepareLedger(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading ledger version: %w", err)
	}

	switch version {
	case 0:
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting ledger setup: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, ledgerTables); err != nil {
			return fmt.Errorf("creating ledger tables: %w", err)
		}
		// PRAGMA takes no bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, SchemaVersion)); err != nil {
			return fmt.Errorf("stamping ledger version: %w", err)
		}
		return tx.Commit()

	case SchemaVersion:
		var status string
		if err := db.QueryRowContext(ctx, `PRAGMA quick_check`).Scan(&status); err != nil {
			return fmt.Errorf("checking ledger: %w", err)
		}
		if status != "ok" {
			return fmt.Errorf("ledger is corrupt: %s", status)
		}
		return nil

	default:
		return fmt.Errorf("%w: file has %d, this build reads %d", ErrSchemaVersion, version, SchemaVersion)
	}
}
