package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"seiir/internal/failure"
)

// Status is the state of a run or stage.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded invocation.
type Run struct {
	ID              string
	Command         string
	ForecastVersion string
	Scenario        string
	Draws           int
	Stage           string
	Status          Status
	FailureKind     string
	ErrorMessage    string
	StartedAt       time.Time
	UpdatedAt       time.Time
	FinishedAt      *time.Time
}

// Stage is one recorded stage of a run.
type Stage struct {
	Name       string
	Status     Status
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Store persists runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the ledger database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ledger: database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: ensure directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite db: %w", err)
	}
	// One connection keeps pragmas applied to every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ledger: apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records a new running run and returns its id.
func (s *Store) Begin(ctx context.Context, command, forecastVersion, scenario string) (string, error) {
	id := uuid.NewString()
	now := timestamp(time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, forecast_version, scenario, status, started_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, command, forecastVersion, nullableString(scenario), StatusRunning, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("ledger: insert run: %w", err)
	}
	return id, nil
}

// SetDraws records how many draws the run covers.
func (s *Store) SetDraws(ctx context.Context, id string, draws int) error {
	return s.exec(ctx, "set draws", id,
		`UPDATE runs SET draws = ?, updated_at = ? WHERE id = ?`,
		draws, timestamp(time.Now()), id)
}

// StartStage marks stage as the run's current stage.
func (s *Store) StartStage(ctx context.Context, id, stage string) error {
	now := timestamp(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin stage tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE runs SET stage = ?, updated_at = ? WHERE id = ?`, stage, now, id)
	if err != nil {
		return fmt.Errorf("ledger: start stage: %w", err)
	}
	if err := requireRow(res, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO run_stages (run_id, stage, status, started_at) VALUES (?, ?, ?, ?)
         ON CONFLICT (run_id, stage) DO UPDATE SET status = excluded.status, started_at = excluded.started_at, finished_at = NULL`,
		id, stage, StatusRunning, now,
	); err != nil {
		return fmt.Errorf("ledger: insert stage: %w", err)
	}
	return tx.Commit()
}

// FinishStage records the outcome of stage.
func (s *Store) FinishStage(ctx context.Context, id, stage string, stageErr error) error {
	status := StatusSucceeded
	if stageErr != nil {
		status = StatusFailed
	}
	return s.exec(ctx, "finish stage", id,
		`UPDATE run_stages SET status = ?, finished_at = ? WHERE run_id = ? AND stage = ?`,
		status, timestamp(time.Now()), id, stage)
}

// Finish closes the run. A nil runErr marks it succeeded.
func (s *Store) Finish(ctx context.Context, id string, runErr error) error {
	status, kind, message := StatusSucceeded, "", ""
	if runErr != nil {
		status, kind, message = StatusFailed, failure.Kind(runErr), runErr.Error()
	}
	now := timestamp(time.Now())
	return s.exec(ctx, "finish run", id,
		`UPDATE runs SET status = ?, failure_kind = ?, error_message = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
		status, nullableString(kind), nullableString(message), now, now, id)
}

// Get returns one run, or nil when id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, most recent first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Stages returns a run's stages in start order.
func (s *Store) Stages(ctx context.Context, id string) ([]Stage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, status, started_at, finished_at FROM run_stages WHERE run_id = ? ORDER BY started_at, rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("ledger: list stages: %w", err)
	}
	defer rows.Close()

	var stages []Stage
	for rows.Next() {
		var (
			stage    Stage
			started  string
			finished sql.NullString
			status   string
		)
		if err := rows.Scan(&stage.Name, &status, &started, &finished); err != nil {
			return nil, fmt.Errorf("ledger: scan stage: %w", err)
		}
		stage.Status = Status(status)
		stage.StartedAt = parseTimestamp(started)
		stage.FinishedAt = parseNullableTimestamp(finished)
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

func (s *Store) exec(ctx context.Context, op, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ledger: %s: %w", op, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger: rows affected: %w", err)
	}
	if n == 0 {
		return failure.Wrap(failure.ErrNotFound, "ledger", "update", fmt.Sprintf("run %s", id), nil)
	}
	return nil
}
