// Package runstore keeps a registry of pipeline runs in SQLite. Each run moves
// pending -> processing -> completed | failed; the store rejects any other move.
package runstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/Jalkey-Chen/InterLines/internal/logger"
)

// Status is a run lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

const previewLimit = 120

// ErrNotFound is returned for an unknown run id.
var ErrNotFound = errors.New("run not found")

// ErrInvalidTransition is returned when a run cannot move to the requested status.
var ErrInvalidTransition = errors.New("invalid run status transition")

// Run is one registry row.
type Run struct {
	ID           string
	Status       Status
	InputPreview string
	Strategy     string
	RefineUsed   bool
	BriefPath    string
	Error        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Completion carries the facts recorded when a run completes.
type Completion struct {
	Strategy   string
	RefineUsed bool
	BriefPath  string
}

// Store persists runs.
type Store struct {
	db  *sql.DB
	now func() time.Time
	log *logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// Open opens the SQLite database at path and applies migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("run store path cannot be empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, now: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.applyPragmas(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) applyPragmas() error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			if stmt == "PRAGMA journal_mode=WAL;" {
				s.log.WarnErr(err, "sqlite: WAL mode not enabled")
				continue
			}
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return nil
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its base FS and dialect in package state.
var migrateMu sync.Mutex

func migrate(db *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Create registers a new pending run and returns it.
func (s *Store) Create(ctx context.Context, input string) (Run, error) {
	now := s.now().UTC()
	run := Run{
		ID:           uuid.NewString(),
		Status:       StatusPending,
		InputPreview: preview(input),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO runs(run_id, status, input_preview, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), run.InputPreview, formatTime(now), formatTime(now)); err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// MarkProcessing moves a pending run to processing.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusProcessing, func(tx *sql.Tx, stamp string) error {
		_, err := tx.ExecContext(ctx, `UPDATE runs SET status=?, updated_at=? WHERE run_id=?`,
			string(StatusProcessing), stamp, id)
		return err
	})
}

// Complete moves a processing run to completed.
func (s *Store) Complete(ctx context.Context, id string, c Completion) error {
	return s.transition(ctx, id, StatusCompleted, func(tx *sql.Tx, stamp string) error {
		_, err := tx.ExecContext(ctx, `UPDATE runs SET status=?, strategy=?, refine_used=?, brief_path=?, updated_at=? WHERE run_id=?`,
			string(StatusCompleted), c.Strategy, boolToInt(c.RefineUsed), c.BriefPath, stamp, id)
		return err
	})
}

// Fail moves a pending or processing run to failed, recording cause.
func (s *Store) Fail(ctx context.Context, id string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return s.transition(ctx, id, StatusFailed, func(tx *sql.Tx, stamp string) error {
		_, err := tx.ExecContext(ctx, `UPDATE runs SET status=?, error=?, updated_at=? WHERE run_id=?`,
			string(StatusFailed), msg, stamp, id)
		return err
	})
}

func (s *Store) transition(ctx context.Context, id string, to Status, apply func(tx *sql.Tx, stamp string) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin update run: %w", err)
	}

	var current string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM runs WHERE run_id=?`, id).Scan(&current); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("read run status: %w", err)
	}
	if !allowed(Status(current), to) {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, to)
	}

	if err := apply(tx, formatTime(s.now().UTC())); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update run: %w", err)
	}
	s.log.WithRun(id).Debug("run status " + string(to))
	return nil
}

// Get returns the run with id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id, status, input_preview, strategy, refine_used, brief_path, error, created_at, updated_at
		FROM runs WHERE run_id=?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// List returns up to limit runs, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, status, input_preview, strategy, refine_used, brief_path, error, created_at, updated_at
		FROM runs ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run                  Run
		status               string
		refine               int
		createdAt, updatedAt string
	)
	if err := row.Scan(&run.ID, &status, &run.InputPreview, &run.Strategy, &refine, &run.BriefPath, &run.Error, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = Status(status)
	run.RefineUsed = refine != 0

	var err error
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return Run{}, err
	}
	if run.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Run{}, err
	}
	return run, nil
}

func allowed(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.Format(timeLayout) }

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse run timestamp %q: %w", raw, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func preview(input string) string {
	flat := strings.Join(strings.Fields(input), " ")
	runes := []rune(flat)
	if len(runes) <= previewLimit {
		return flat
	}
	return string(runes[:previewLimit]) + "…"
}
