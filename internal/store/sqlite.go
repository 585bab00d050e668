package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/opencivic/opendata-cli/internal/analysis"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	query       TEXT NOT NULL,
	mode        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS run_results (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	dataset_id TEXT NOT NULL,
	result     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_results_run_id ON run_results(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, query, mode string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, query, mode, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, query, mode, StatusRunning, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert run")
	}
	return id, nil
}

func (s *SQLiteStore) SaveResult(ctx context.Context, runID string, res analysis.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_results (id, run_id, dataset_id, result, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), runID, res.DatasetID, string(raw), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert result for run %s", runID)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, succeeded bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		statusFor(succeeded), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	var finished sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, mode, status, created_at, finished_at FROM runs WHERE id = ?`,
		runID,
	).Scan(&run.ID, &run.Query, &run.Mode, &run.Status, &run.CreatedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM run_results WHERE run_id = ? ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get results for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		var res analysis.Result
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
		run.Results = append(run.Results, res)
	}
	return &run, eris.Wrap(rows.Err(), "sqlite: iterate results")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, mode, status, created_at, finished_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var run Run
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.Query, &run.Mode, &run.Status, &run.CreatedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}
