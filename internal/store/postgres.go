package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/opencivic/opendata-cli/internal/analysis"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock implements it
// for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          UUID PRIMARY KEY,
	query       TEXT NOT NULL,
	mode        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_results (
	id         UUID PRIMARY KEY,
	run_id     UUID NOT NULL REFERENCES runs(id),
	dataset_id TEXT NOT NULL,
	result     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_results_run_id ON run_results(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, query, mode string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, query, mode, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, query, mode, StatusRunning, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert run")
	}
	return id, nil
}

func (s *PostgresStore) SaveResult(ctx context.Context, runID string, res analysis.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO run_results (id, run_id, dataset_id, result, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), runID, res.DatasetID, raw, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert result for run %s", runID)
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, succeeded bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, finished_at = $2 WHERE id = $3`,
		statusFor(succeeded), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	var finished *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT id, query, mode, status, created_at, finished_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Query, &run.Mode, &run.Status, &run.CreatedAt, &finished)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("postgres: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	run.FinishedAt = finished

	rows, err := s.pool.Query(ctx,
		`SELECT result FROM run_results WHERE run_id = $1 ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get results for run %s", runID)
	}
	defer rows.Close()

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		var res analysis.Result
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
		run.Results = append(run.Results, res)
	}
	return &run, eris.Wrap(rows.Err(), "postgres: iterate results")
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, query, mode, status, created_at, finished_at FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var finished *time.Time
		if err := rows.Scan(&run.ID, &run.Query, &run.Mode, &run.Status, &run.CreatedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		run.FinishedAt = finished
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
