package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/opendata-cli/internal/analysis"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgres_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "incidenti", "all-matches", StatusRunning, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.CreateRun(context.Background(), "incidenti", "all-matches")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO run_results`).
		WithArgs(pgxmock.AnyArg(), "run-1", "ds1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveResult(context.Background(), "run-1", analysis.Result{DatasetID: "ds1", Succeeded: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FinishRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs(StatusSucceeded, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FinishRun(context.Background(), "run-1", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs(StatusFailed, pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Now().UTC()
	finished := created.Add(time.Minute)
	mock.ExpectQuery(`SELECT id, query, mode, status, created_at, finished_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "query", "mode", "status", "created_at", "finished_at"}).
			AddRow("run-1", "incidenti", "single", StatusSucceeded, created, &finished))

	resJSON, err := json.Marshal(analysis.Result{DatasetID: "ds1", Succeeded: true, ValidPoints: 95})
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT result FROM run_results WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow(resJSON))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "incidenti", run.Query)
	assert.Equal(t, StatusSucceeded, run.Status)
	require.NotNil(t, run.FinishedAt)
	require.Len(t, run.Results, 1)
	assert.Equal(t, 95, run.Results[0].ValidPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, query, mode, status, created_at, finished_at FROM runs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, query, mode, status, created_at, finished_at FROM runs ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "query", "mode", "status", "created_at", "finished_at"}).
			AddRow("run-2", "b", "single", StatusRunning, created, (*time.Time)(nil)).
			AddRow("run-1", "a", "single", StatusFailed, created, (*time.Time)(nil)))

	runs, err := s.ListRuns(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Nil(t, runs[0].FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
