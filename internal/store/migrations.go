package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all provenance tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id              TEXT PRIMARY KEY,
		descriptor_path TEXT NOT NULL DEFAULT '',
		state           TEXT NOT NULL DEFAULT 'LOADED',
		timestamps      INTEGER NOT NULL DEFAULT 0,
		succeeded       INTEGER NOT NULL DEFAULT 0,
		failed          INTEGER NOT NULL DEFAULT 0,
		skipped         INTEGER NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL,
		completed_at    TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS step_results (
		run_id        TEXT NOT NULL,
		timestamp     TEXT NOT NULL,
		state         TEXT NOT NULL,
		error_kind    TEXT NOT NULL DEFAULT '',
		error         TEXT NOT NULL DEFAULT '',
		namelist_path TEXT NOT NULL DEFAULT '',
		skipped       INTEGER NOT NULL DEFAULT 0,
		descriptor    TEXT NOT NULL DEFAULT '',
		record        TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (run_id, timestamp)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_step_results_run_id ON step_results(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
