package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// RunStatus is the lifecycle state of a recorded step.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunOK      RunStatus = "ok"
	RunFailed  RunStatus = "failed"
)

// Run is one recorded orchestrator step.
type Run struct {
	ID         int64
	Bot        string
	Strategy   string
	Step       string
	Status     RunStatus
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	bot         TEXT    NOT NULL,
	strategy    TEXT    NOT NULL,
	step        TEXT    NOT NULL,
	status      TEXT    NOT NULL,
	detail      TEXT    NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS runs_bot ON runs (bot, id);
`

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating run history schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// StartRun inserts a running step.
func (s *SQLiteStore) StartRun(ctx context.Context, bot, strategy, step string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (bot, strategy, step, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		bot, strategy, step, string(RunRunning), s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("recording run start: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stamps the step's outcome.
func (s *SQLiteStore) FinishRun(ctx context.Context, id int64, runErr error) error {
	status, detail := RunOK, ""
	if runErr != nil {
		status, detail = RunFailed, runErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, detail = ?, finished_at = ? WHERE id = ?`,
		string(status), detail, s.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs for bot, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, bot string, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bot, strategy, step, status, detail, started_at, finished_at
		   FROM runs WHERE bot = ? ORDER BY id DESC LIMIT ?`, bot, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			status            string
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.Bot, &r.Strategy, &r.Step, &status, &r.Detail, &started, &finished); err != nil {
			return nil, err
		}
		r.Status = RunStatus(status)
		r.StartedAt = time.UnixMilli(started)
		if finished > 0 {
			r.FinishedAt = time.UnixMilli(finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
