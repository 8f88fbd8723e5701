// Package store persists planner runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"liftplan/internal/logging"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// RunRecord is one planner invocation on one task.
type RunRecord struct {
	ID        string
	Domain    string
	Problem   string
	Engine    string
	Heuristic string
	Generator string
	// Outcome is "solved", "failed" or "error"
	Outcome    string
	Reason     string
	PlanLength int
	Plan       string
	Expanded   int
	Evaluated  int
	Generated  int
	DurationMs int64
	CreatedAt  time.Time
}

// Solved reports whether the run found a plan.
func (r RunRecord) Solved() bool { return r.Outcome == "solved" }

// RunFilter narrows List. Zero values match everything.
type RunFilter struct {
	Domain  string
	Outcome string
	// Limit caps the result; 0 means 50.
	Limit int
}

// RunStore keeps run records in a SQLite database.
type RunStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*RunStore, error) {
	logging.Store("Opening run store at path: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &RunStore{db: db, dbPath: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure run schema: %w", err)
	}
	logging.StoreDebug("Run store schema ready")
	return s, nil
}

// ensureSchema creates the runs table if it doesn't exist.
func (s *RunStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		problem TEXT NOT NULL,
		engine TEXT NOT NULL,
		heuristic TEXT,
		generator TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT,
		plan_length INTEGER,
		plan TEXT,
		expanded INTEGER,
		evaluated INTEGER,
		generated INTEGER,
		duration_ms INTEGER,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain);
	CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file.
func (s *RunStore) Path() string { return s.dbPath }

// Close closes the database.
func (s *RunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Record inserts r, assigning an ID and CreatedAt when unset.
func (s *RunStore) Record(ctx context.Context, r *RunRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, domain, problem, engine, heuristic, generator, outcome, reason,
			plan_length, plan, expanded, evaluated, generated, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Domain, r.Problem, r.Engine, r.Heuristic, r.Generator, r.Outcome, r.Reason,
		r.PlanLength, r.Plan, r.Expanded, r.Evaluated, r.Generated, r.DurationMs, r.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", r.ID, err)
	}
	logging.StoreDebug("Recorded run %s (%s/%s %s)", r.ID, r.Domain, r.Problem, r.Outcome)
	return nil
}

const runColumns = `id, domain, problem, engine, heuristic, generator, outcome, reason,
	plan_length, plan, expanded, evaluated, generated, duration_ms, created_at`

// Get returns the run with the given id.
func (s *RunStore) Get(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return r, nil
}

// List returns matching runs, newest first.
func (s *RunStore) List(ctx context.Context, f RunFilter) ([]RunRecord, error) {
	var where []string
	var args []any
	if f.Domain != "" {
		where = append(where, "domain = ?")
		args = append(args, f.Domain)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, f.Outcome)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT " + runColumns + " FROM runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunRecord, error) {
	var r RunRecord
	var heuristic, reason, plan sql.NullString
	var created int64
	err := sc.Scan(&r.ID, &r.Domain, &r.Problem, &r.Engine, &heuristic, &r.Generator, &r.Outcome, &reason,
		&r.PlanLength, &plan, &r.Expanded, &r.Evaluated, &r.Generated, &r.DurationMs, &created)
	if err != nil {
		return nil, err
	}
	r.Heuristic = heuristic.String
	r.Reason = reason.String
	r.Plan = plan.String
	r.CreatedAt = time.Unix(0, created)
	return &r, nil
}
