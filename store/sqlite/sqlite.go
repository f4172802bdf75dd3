/*
Package sqlite provides a SQLite-backed implementation of planning.Store.

PURPOSE:
  Persists the planner's inputs (tasks, busy intervals, constraints) and
  its outputs (plans) so the server survives restarts. The planning engine
  never sees the database: the API loads a Snapshot, plans, and saves the
  resulting PlanRecord.

KEY TABLES:
  tasks:            Work to place, in creation order (seq)
  busy_intervals:   Imported calendar events and manual blocks
  constraints:      Single-row availability settings
  plans:            One row per saved planning run
  plan_assignments: Assignments of a plan, in allocation order
  plan_infeasible:  Infeasible tasks of a plan with their reason

INDEXES:
  - idx_busy_start: range lookups when loading a horizon
  - idx_busy_source: dropping all imported intervals before a re-import
  - idx_plans_generated: latest plan lookup

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/planner.db")
  if err != nil {
      log.Fatal().Err(err).Msg("open store")
  }
  defer store.Close()

  snap, err := planning.LoadSnapshot(ctx, store, time.Now(), loc, 30)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - planning/store.go: Interface definition
  - planning/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/task-planner/planning"
)

// Store implements planning.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ planning.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is a distinct database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Tasks (seq keeps creation order stable across updates)
	CREATE TABLE IF NOT EXISTS tasks (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		deadline TEXT NOT NULL,
		priority INTEGER NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Busy intervals (imported + manual)
	CREATE TABLE IF NOT EXISTS busy_intervals (
		id TEXT PRIMARY KEY,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		source TEXT NOT NULL,
		title TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_busy_start
		ON busy_intervals(start_at);
	CREATE INDEX IF NOT EXISTS idx_busy_source
		ON busy_intervals(source);

	-- Constraints (single row, id = 1)
	CREATE TABLE IF NOT EXISTS constraints (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		max_minutes_per_day INTEGER NOT NULL,
		work_start INTEGER NOT NULL,
		work_end INTEGER NOT NULL,
		exclude_sunday BOOLEAN NOT NULL,
		lunch_start INTEGER,
		lunch_end INTEGER,
		min_block_minutes INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Plans
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		generated_at TEXT NOT NULL,
		horizon_start TEXT NOT NULL,
		horizon_end TEXT NOT NULL,
		location TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_plans_generated
		ON plans(created_at DESC);

	CREATE TABLE IF NOT EXISTS plan_assignments (
		plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		task_id TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		PRIMARY KEY (plan_id, position)
	);

	CREATE TABLE IF NOT EXISTS plan_infeasible (
		plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		task_id TEXT NOT NULL,
		title TEXT,
		deadline TEXT NOT NULL,
		scheduled_minutes INTEGER NOT NULL,
		remaining_minutes INTEGER NOT NULL,
		reason TEXT NOT NULL,
		PRIMARY KEY (plan_id, position)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TASKS
// =============================================================================

// SaveTask inserts or updates a task. An update keeps the original seq so
// the task keeps its place in ListTasks.
func (s *Store) SaveTask(ctx context.Context, t planning.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tasks (id, title, duration_minutes, deadline, priority, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			duration_minutes = excluded.duration_minutes,
			deadline = excluded.deadline,
			priority = excluded.priority,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`

	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, query,
		string(t.ID), t.Title, minutes(t.Duration), formatTime(t.Deadline),
		int(t.Priority), nullString(t.Notes), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// GetTask returns a task by id.
func (s *Store) GetTask(ctx context.Context, id planning.TaskID) (planning.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, duration_minutes, deadline, priority, notes
		FROM tasks WHERE id = ?
	`, string(id))

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return planning.Task{}, planning.ErrNotFound
	}
	return t, err
}

// ListTasks returns all tasks in creation order.
func (s *Store) ListTasks(ctx context.Context) ([]planning.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, duration_minutes, deadline, priority, notes
		FROM tasks ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []planning.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id planning.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteOne(ctx, "DELETE FROM tasks WHERE id = ?", string(id))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (planning.Task, error) {
	var (
		id, title, deadline string
		durationMinutes     int64
		priority            int
		notes               sql.NullString
	)
	if err := row.Scan(&id, &title, &durationMinutes, &deadline, &priority, &notes); err != nil {
		return planning.Task{}, err
	}

	due, err := parseTime(deadline)
	if err != nil {
		return planning.Task{}, fmt.Errorf("task %s: %w", id, err)
	}
	t, err := planning.NewTask(planning.TaskID(id), title, time.Duration(durationMinutes)*time.Minute, due, planning.Priority(priority))
	if err != nil {
		return planning.Task{}, fmt.Errorf("task %s: %w", id, err)
	}
	t.Notes = notes.String
	return t, nil
}

// =============================================================================
// BUSY INTERVALS
// =============================================================================

// SaveBusy inserts or replaces a busy interval.
func (s *Store) SaveBusy(ctx context.Context, b planning.BusyInterval) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO busy_intervals (id, start_at, end_at, source, title, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			source = excluded.source,
			title = excluded.title
	`

	_, err := s.db.ExecContext(ctx, query,
		string(b.ID), formatTime(b.Start), formatTime(b.End), string(b.Source),
		nullString(b.Title), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save busy interval: %w", err)
	}
	return nil
}

// ListBusy returns intervals overlapping [from, to), ordered by start.
// Timestamps are stored as fixed-width UTC text, so string comparison is
// chronological.
func (s *Store) ListBusy(ctx context.Context, from, to time.Time) ([]planning.BusyInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, start_at, end_at, source, title
		FROM busy_intervals
		WHERE 1 = 1`
	var args []any
	if !from.IsZero() {
		query += " AND end_at > ?"
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		query += " AND start_at < ?"
		args = append(args, formatTime(to))
	}
	query += " ORDER BY start_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query busy intervals: %w", err)
	}
	defer rows.Close()

	var result []planning.BusyInterval
	for rows.Next() {
		var (
			id, start, end, source string
			title                  sql.NullString
		)
		if err := rows.Scan(&id, &start, &end, &source, &title); err != nil {
			return nil, err
		}
		b := planning.BusyInterval{
			ID:     planning.BusyID(id),
			Source: planning.Source(source),
			Title:  title.String,
		}
		if b.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if b.End, err = parseTime(end); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// DeleteBusy removes one interval.
func (s *Store) DeleteBusy(ctx context.Context, id planning.BusyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteOne(ctx, "DELETE FROM busy_intervals WHERE id = ?", string(id))
}

// DeleteBusyBySource removes every interval of a source.
func (s *Store) DeleteBusyBySource(ctx context.Context, source planning.Source) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM busy_intervals WHERE source = ?", string(source))
	if err != nil {
		return 0, fmt.Errorf("failed to delete busy intervals: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// =============================================================================
// CONSTRAINTS
// =============================================================================

// GetConstraints returns the saved set, or the defaults if none was saved.
func (s *Store) GetConstraints(ctx context.Context) (planning.ConstraintSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		maxMinutes, minBlock int64
		workStart, workEnd   int
		excludeSunday        bool
		lunchStart, lunchEnd sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT max_minutes_per_day, work_start, work_end, exclude_sunday,
		       lunch_start, lunch_end, min_block_minutes
		FROM constraints WHERE id = 1
	`).Scan(&maxMinutes, &workStart, &workEnd, &excludeSunday, &lunchStart, &lunchEnd, &minBlock)
	if errors.Is(err, sql.ErrNoRows) {
		return planning.DefaultConstraints(), nil
	}
	if err != nil {
		return planning.ConstraintSet{}, fmt.Errorf("failed to load constraints: %w", err)
	}

	c := planning.ConstraintSet{
		MaxPerDay:     time.Duration(maxMinutes) * time.Minute,
		WorkStart:     planning.Clock(workStart),
		WorkEnd:       planning.Clock(workEnd),
		ExcludeSunday: excludeSunday,
		MinBlock:      time.Duration(minBlock) * time.Minute,
	}
	if lunchStart.Valid && lunchEnd.Valid {
		c.Lunch = &planning.Window{Start: planning.Clock(lunchStart.Int64), End: planning.Clock(lunchEnd.Int64)}
	}
	return c, nil
}

// SaveConstraints replaces the constraint set.
func (s *Store) SaveConstraints(ctx context.Context, c planning.ConstraintSet) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var lunchStart, lunchEnd sql.NullInt64
	if c.Lunch != nil {
		lunchStart = sql.NullInt64{Int64: int64(c.Lunch.Start), Valid: true}
		lunchEnd = sql.NullInt64{Int64: int64(c.Lunch.End), Valid: true}
	}

	query := `
		INSERT INTO constraints (id, max_minutes_per_day, work_start, work_end, exclude_sunday,
		                         lunch_start, lunch_end, min_block_minutes, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			max_minutes_per_day = excluded.max_minutes_per_day,
			work_start = excluded.work_start,
			work_end = excluded.work_end,
			exclude_sunday = excluded.exclude_sunday,
			lunch_start = excluded.lunch_start,
			lunch_end = excluded.lunch_end,
			min_block_minutes = excluded.min_block_minutes,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		minutes(c.MaxPerDay), int(c.WorkStart), int(c.WorkEnd), c.ExcludeSunday,
		lunchStart, lunchEnd, minutes(c.MinBlock), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save constraints: %w", err)
	}
	return nil
}

// =============================================================================
// PLANS
// =============================================================================

// SavePlan writes a plan with its assignments and infeasible tasks
// atomically.
func (s *Store) SavePlan(ctx context.Context, p *planning.PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	loc := "UTC"
	if p.HorizonStart.Loc != nil {
		loc = p.HorizonStart.Loc.String()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO plans (id, generated_at, horizon_start, horizon_end, location, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, formatTime(p.GeneratedAt), p.HorizonStart.String(), p.HorizonEnd.String(), loc, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}

	for i, a := range p.Assignments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO plan_assignments (plan_id, position, task_id, start_at, end_at)
			VALUES (?, ?, ?, ?, ?)
		`, p.ID, i, string(a.TaskID), formatTime(a.Start), formatTime(a.End))
		if err != nil {
			return fmt.Errorf("failed to save assignment: %w", err)
		}
	}

	for i, inf := range p.Infeasible {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO plan_infeasible (plan_id, position, task_id, title, deadline,
			                             scheduled_minutes, remaining_minutes, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, i, string(inf.TaskID), nullString(inf.Title), formatTime(inf.Deadline),
			minutes(inf.Scheduled), minutes(inf.Remaining), inf.Reason)
		if err != nil {
			return fmt.Errorf("failed to save infeasible task: %w", err)
		}
	}

	return tx.Commit()
}

// LatestPlan returns the most recently saved plan.
func (s *Store) LatestPlan(ctx context.Context) (*planning.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p                                planning.PlanRecord
		generatedAt, start, end, locName string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, generated_at, horizon_start, horizon_end, location
		FROM plans ORDER BY created_at DESC, rowid DESC LIMIT 1
	`).Scan(&p.ID, &generatedAt, &start, &end, &locName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, planning.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	loc, err := time.LoadLocation(locName)
	if err != nil {
		loc = time.UTC
	}
	if p.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return nil, err
	}
	if p.HorizonStart, err = planning.ParseDay(start, loc); err != nil {
		return nil, err
	}
	if p.HorizonEnd, err = planning.ParseDay(end, loc); err != nil {
		return nil, err
	}

	if p.Assignments, err = s.loadAssignments(ctx, p.ID); err != nil {
		return nil, err
	}
	if p.Infeasible, err = s.loadInfeasible(ctx, p.ID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) loadAssignments(ctx context.Context, planID string) ([]planning.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, start_at, end_at FROM plan_assignments
		WHERE plan_id = ? ORDER BY position ASC
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var result []planning.Assignment
	for rows.Next() {
		var taskID, start, end string
		if err := rows.Scan(&taskID, &start, &end); err != nil {
			return nil, err
		}
		a := planning.Assignment{TaskID: planning.TaskID(taskID)}
		if a.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if a.End, err = parseTime(end); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) loadInfeasible(ctx context.Context, planID string) ([]planning.Infeasibility, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, title, deadline, scheduled_minutes, remaining_minutes, reason
		FROM plan_infeasible WHERE plan_id = ? ORDER BY position ASC
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query infeasible tasks: %w", err)
	}
	defer rows.Close()

	var result []planning.Infeasibility
	for rows.Next() {
		var (
			taskID, deadline, reason string
			title                    sql.NullString
			scheduled, remaining     int64
		)
		if err := rows.Scan(&taskID, &title, &deadline, &scheduled, &remaining, &reason); err != nil {
			return nil, err
		}
		inf := planning.Infeasibility{
			TaskID:    planning.TaskID(taskID),
			Title:     title.String,
			Scheduled: time.Duration(scheduled) * time.Minute,
			Remaining: time.Duration(remaining) * time.Minute,
			Reason:    reason,
		}
		if inf.Deadline, err = parseTime(deadline); err != nil {
			return nil, err
		}
		result = append(result, inf)
	}
	return result, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"plan_infeasible", "plan_assignments", "plans", "busy_intervals", "tasks", "constraints"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) deleteOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return planning.ErrNotFound
	}
	return nil
}

// Helper functions

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}

func minutes(d time.Duration) int64 {
	return int64(d / time.Minute)
}

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
