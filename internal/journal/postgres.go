package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store against a PostgreSQL database.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to the database at the given DSN and verifies the
// connection with a ping.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse dsn")
	}
	cfg.MaxConns = 8
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          UUID PRIMARY KEY,
	phase       TEXT NOT NULL,
	result      JSONB NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS run_outcomes (
	id           UUID PRIMARY KEY,
	run_id       UUID NOT NULL REFERENCES runs(id),
	prospect_key TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	code         TEXT,
	message      TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_phase ON runs(phase);
CREATE INDEX IF NOT EXISTS idx_run_outcomes_run_id ON run_outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_run_outcomes_key ON run_outcomes(prospect_key);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal result")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, phase, result, started_at, finished_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Phase, resultJSON, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert run")
	}

	for _, o := range outcomesFromResult(run.ID, &run.Result) {
		_, err = tx.Exec(ctx,
			`INSERT INTO run_outcomes (id, run_id, prospect_key, outcome, code, message) VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), run.ID, o.ProspectKey, o.Outcome, nullable(o.Code), nullable(o.Message),
		)
		if err != nil {
			return "", eris.Wrapf(err, "postgres: insert outcome for %s", o.ProspectKey)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrap(err, "postgres: commit run")
	}
	return run.ID, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, phase, result, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var resultJSON []byte
		if err := rows.Scan(&r.ID, &r.Phase, &resultJSON, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(resultJSON, &r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) ListOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, prospect_key, outcome, code, message FROM run_outcomes WHERE run_id = $1`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list outcomes for %s", runID)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		var code, message sql.NullString
		if err := rows.Scan(&o.ID, &o.RunID, &o.ProspectKey, &o.Outcome, &code, &message); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		o.Code = code.String
		o.Message = message.String
		outcomes = append(outcomes, o)
	}
	return outcomes, eris.Wrap(rows.Err(), "postgres: list outcomes iterate")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
