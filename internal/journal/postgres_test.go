package journal

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_RecordRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)

	run := Run{
		ID:         "run-1",
		Phase:      "researched",
		StartedAt:  started,
		FinishedAt: finished,
	}
	run.Result.Phase = "researched"
	run.Result.Record(model.OutcomeAdvanced, "alice@example.com")
	run.Result.RecordFailure("bob@example.com", &model.FailureReason{
		Code:    model.CodeRetryExhausted,
		Message: "enrich timed out",
	})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", "researched", pgxmock.AnyArg(), started, finished).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO run_outcomes`).
		WithArgs(pgxmock.AnyArg(), "run-1", "alice@example.com", model.OutcomeAdvanced, nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO run_outcomes`).
		WithArgs(pgxmock.AnyArg(), "run-1", "bob@example.com", model.OutcomeFailed,
			string(model.CodeRetryExhausted), "enrich timed out").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	id, err := s.RecordRun(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, "run-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordRun_GeneratesID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "drafted", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	id, err := s.RecordRun(context.Background(), Run{Phase: "drafted"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordRun_InsertError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-2", "synced", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrTxClosed)
	mock.ExpectRollback()

	_, err := s.RecordRun(context.Background(), Run{ID: "run-2", Phase: "synced"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "phase", "result", "started_at", "finished_at"}).
		AddRow("run-1", "researched", []byte(`{"phase":"researched","advanced":2,"skipped_invalid":0,"failed":0,"unchanged":1}`), started, started.Add(time.Minute))

	mock.ExpectQuery(`SELECT id, phase, result, started_at, finished_at FROM runs`).
		WithArgs(10).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, 2, runs[0].Result.Advanced)
	assert.Equal(t, 1, runs[0].Result.Unchanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListOutcomes(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "run_id", "prospect_key", "outcome", "code", "message"}).
		AddRow("o-1", "run-1", "bob@example.com", model.OutcomeFailed, "RETRY_EXHAUSTED", "enrich timed out").
		AddRow("o-2", "run-1", "alice@example.com", model.OutcomeAdvanced, nil, nil)

	mock.ExpectQuery(`SELECT id, run_id, prospect_key, outcome, code, message FROM run_outcomes`).
		WithArgs("run-1").
		WillReturnRows(rows)

	outcomes, err := s.ListOutcomes(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "RETRY_EXHAUSTED", outcomes[0].Code)
	assert.Empty(t, outcomes[1].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
