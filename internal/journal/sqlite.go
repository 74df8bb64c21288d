package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
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
	phase       TEXT NOT NULL,
	result      TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS run_outcomes (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES runs(id),
	prospect_key TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	code         TEXT,
	message      TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_phase ON runs(phase);
CREATE INDEX IF NOT EXISTS idx_run_outcomes_run_id ON run_outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_run_outcomes_key ON run_outcomes(prospect_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal result")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, phase, result, started_at, finished_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Phase, string(resultJSON), run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert run")
	}

	for _, o := range outcomesFromResult(run.ID, &run.Result) {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_outcomes (id, run_id, prospect_key, outcome, code, message) VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), run.ID, o.ProspectKey, o.Outcome, o.Code, o.Message,
		)
		if err != nil {
			return "", eris.Wrapf(err, "sqlite: insert outcome for %s", o.ProspectKey)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit run")
	}
	return run.ID, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, phase, result, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var resultJSON string
		var started, finished time.Time
		if err := rows.Scan(&r.ID, &r.Phase, &resultJSON, &started, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if err := json.Unmarshal([]byte(resultJSON), &r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
		r.StartedAt = started
		r.FinishedAt = finished
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, prospect_key, outcome, code, message FROM run_outcomes WHERE run_id = ?`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list outcomes for %s", runID)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		var code, message sql.NullString
		if err := rows.Scan(&o.ID, &o.RunID, &o.ProspectKey, &o.Outcome, &code, &message); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome")
		}
		o.Code = code.String
		o.Message = message.String
		outcomes = append(outcomes, o)
	}
	return outcomes, eris.Wrap(rows.Err(), "sqlite: list outcomes iterate")
}
