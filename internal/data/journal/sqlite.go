package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	apperrors "mongoprov/internal/errors"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	command       TEXT NOT NULL,
	database_name TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at DESC);
CREATE TABLE IF NOT EXISTS run_actions (
	run_id     TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	collection TEXT NOT NULL,
	target     TEXT NOT NULL,
	status     TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);`

// SQLiteRepository stores runs in a SQLite database file.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository wraps an open database handle.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Open creates the parent directory of path, opens the database and
// bootstraps the schema.
func Open(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, journalError("journal.Open", "failed to create journal directory", err).WithField("path", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, journalError("journal.Open", "failed to open journal", err).WithField("path", path)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	repo := NewSQLiteRepository(db)
	if err := repo.Bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Bootstrap creates the schema.
func (r *SQLiteRepository) Bootstrap(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return journalError("journal.Bootstrap", "failed to enable foreign keys", err)
	}
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return journalError("journal.Bootstrap", "failed to create journal schema", err)
	}
	return nil
}

// Record stores run and its actions in one transaction. An empty ID is
// replaced by a new UUID.
func (r *SQLiteRepository) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return journalError("journal.Record", "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, command, database_name, started_at, finished_at, outcome, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.Database,
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		string(run.Outcome), run.Error,
	)
	if err != nil {
		return journalError("journal.Record", "failed to insert run", err).WithField("run_id", run.ID)
	}

	for i, a := range run.Actions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_actions (run_id, seq, kind, collection, target, status, detail)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, a.Kind, a.Collection, a.Target, a.Status, a.Detail,
		)
		if err != nil {
			return journalError("journal.Record", "failed to insert run action", err).
				WithFields(apperrors.Metadata{"run_id": run.ID, "seq": i})
		}
	}

	if err := tx.Commit(); err != nil {
		return journalError("journal.Record", "failed to commit run", err).WithField("run_id", run.ID)
	}
	return nil
}

// Recent returns up to limit runs, newest first, with their actions.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, command, database_name, started_at, finished_at, outcome, error
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, journalError("journal.Recent", "failed to query runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			started, finished string
			outcome           string
		)
		if err := rows.Scan(&run.ID, &run.Command, &run.Database, &started, &finished, &outcome, &run.Error); err != nil {
			return nil, journalError("journal.Recent", "failed to scan run", err)
		}
		run.Outcome = Outcome(outcome)
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, journalError("journal.Recent", "corrupt run timestamp", err).WithField("run_id", run.ID)
		}
		if run.FinishedAt, err = parseTime(finished); err != nil {
			return nil, journalError("journal.Recent", "corrupt run timestamp", err).WithField("run_id", run.ID)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, journalError("journal.Recent", "failed to read runs", err)
	}

	for i := range runs {
		actions, err := r.actions(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Actions = actions
	}
	return runs, nil
}

func (r *SQLiteRepository) actions(ctx context.Context, runID string) ([]Action, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, collection, target, status, detail
		 FROM run_actions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, journalError("journal.Recent", "failed to query run actions", err).WithField("run_id", runID)
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.Kind, &a.Collection, &a.Target, &a.Status, &a.Detail); err != nil {
			return nil, journalError("journal.Recent", "failed to scan run action", err).WithField("run_id", runID)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return errors.Wrap(r.db.Close(), "close journal")
}

// timeLayout is fixed width so that text order equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func journalError(operation, message string, err error) *apperrors.AppError {
	return apperrors.SystemError(apperrors.CodeSystemGeneric, message, err).
		WithModule("journal").
		WithOperation(operation)
}

var _ Repository = (*SQLiteRepository)(nil)
