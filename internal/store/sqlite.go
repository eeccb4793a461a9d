package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/c-hydro/shybox/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Run CRUD ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, descriptor_path, state, timestamps, succeeded, failed, skipped, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.DescriptorPath, run.State.String(),
		run.Timestamps, run.Succeeded, run.Failed, run.Skipped,
		run.CreatedAt.Format(time.RFC3339Nano), formatTimePtr(run.CompletedAt),
	)
	return err
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, timestamps = ?, succeeded = ?, failed = ?, skipped = ?, completed_at = ?
		 WHERE id = ?`,
		run.State.String(), run.Timestamps, run.Succeeded, run.Failed, run.Skipped,
		formatTimePtr(run.CompletedAt), run.ID,
	)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, descriptor_path, state, timestamps, succeeded, failed, skipped, created_at, completed_at
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs")

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, descriptor_path, state, timestamps, succeeded, failed, skipped, created_at, completed_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- Step results ---

func (s *SQLiteStore) CreateStepResult(ctx context.Context, runID string, res *model.StepResult) error {
	s.logger.Debug("sql", "op", "insert", "table", "step_results",
		"run_id", runID, "timestamp", res.Timestamp)

	recordJSON, err := json.Marshal(res.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	descJSON := ""
	if res.Descriptor != nil {
		data, err := json.Marshal(res.Descriptor)
		if err != nil {
			return fmt.Errorf("marshal descriptor: %w", err)
		}
		descJSON = string(data)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO step_results (run_id, timestamp, state, error_kind, error, namelist_path, skipped, descriptor, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Timestamp.Format(time.RFC3339Nano), res.State.String(),
		res.ErrorKind.String(), res.Error, res.NamelistPath,
		boolToInt(res.NamelistSkipped), descJSON, string(recordJSON),
	)
	return err
}

func (s *SQLiteStore) ListStepResults(ctx context.Context, runID string) ([]*model.StepResult, error) {
	s.logger.Debug("sql", "op", "select", "table", "step_results", "run_id", runID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, state, error_kind, error, namelist_path, skipped, descriptor, record
		 FROM step_results WHERE run_id = ? ORDER BY timestamp`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.StepResult
	for rows.Next() {
		var res model.StepResult
		var timestamp, state, errorKind, descJSON, recordJSON string
		var skipped int
		if err := rows.Scan(&timestamp, &state, &errorKind, &res.Error,
			&res.NamelistPath, &skipped, &descJSON, &recordJSON); err != nil {
			return nil, err
		}
		if res.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		res.State = model.StepState(state)
		res.ErrorKind = model.ErrorKind(errorKind)
		res.NamelistSkipped = skipped != 0
		if descJSON != "" {
			res.Descriptor = &model.ExecutionDescriptor{}
			if err := json.Unmarshal([]byte(descJSON), res.Descriptor); err != nil {
				return nil, fmt.Errorf("unmarshal descriptor: %w", err)
			}
		}
		if err := json.Unmarshal([]byte(recordJSON), &res.Record); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var state, createdAt string
	var completedAt sql.NullString
	if err := row.Scan(&run.ID, &run.DescriptorPath, &state,
		&run.Timestamps, &run.Succeeded, &run.Failed, &run.Skipped,
		&createdAt, &completedAt); err != nil {
		return nil, err
	}
	run.State = model.RunState(state)
	var err error
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if completedAt.Valid && completedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
