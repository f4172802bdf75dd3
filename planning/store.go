/*
store.go - Persistence interface for the planner's records

PURPOSE:
  Defines the boundary between the planning engine and a database. The
  engine itself never touches a Store: callers load a Snapshot from it,
  run the Planner, and persist the returned plan.

KEY INTERFACES:
  Store: tasks, busy intervals, constraints and plans

ORDERING CONTRACT:
  ListTasks returns tasks in creation order. Task ordering ties fall back to
  input order, so a store that shuffled its rows would make repeated runs
  disagree.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite for the server
  - planning/store/memory.go: In-memory for tests and the CLI

SEE ALSO:
  - planner.go: Snapshot and Result
*/
package planning

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists everything a planning run reads and produces.
type Store interface {
	// SaveTask inserts or replaces a task. Replacing keeps its position.
	SaveTask(ctx context.Context, t Task) error
	GetTask(ctx context.Context, id TaskID) (Task, error)
	ListTasks(ctx context.Context) ([]Task, error)
	DeleteTask(ctx context.Context, id TaskID) error

	SaveBusy(ctx context.Context, b BusyInterval) error
	// ListBusy returns intervals overlapping [from, to) ordered by start.
	// A zero bound is open.
	ListBusy(ctx context.Context, from, to time.Time) ([]BusyInterval, error)
	DeleteBusy(ctx context.Context, id BusyID) error
	// DeleteBusyBySource drops every interval of a source, e.g. before a
	// fresh calendar import. Returns the number removed.
	DeleteBusyBySource(ctx context.Context, source Source) (int, error)

	// GetConstraints returns DefaultConstraints until a set is saved.
	GetConstraints(ctx context.Context) (ConstraintSet, error)
	SaveConstraints(ctx context.Context, c ConstraintSet) error

	SavePlan(ctx context.Context, p *PlanRecord) error
	// LatestPlan returns ErrNotFound when no plan was ever saved.
	LatestPlan(ctx context.Context) (*PlanRecord, error)

	// Reset clears all data (for tests and demo scenarios).
	Reset(ctx context.Context) error
}

// PlanRecord is the persisted form of a Result.
type PlanRecord struct {
	ID           string
	GeneratedAt  time.Time
	HorizonStart Day
	HorizonEnd   Day
	Assignments  []Assignment
	Infeasible   []Infeasibility
}

// NewPlanRecord captures a result under a fresh id.
func NewPlanRecord(r *Result) *PlanRecord {
	return &PlanRecord{
		ID:           uuid.NewString(),
		GeneratedAt:  r.GeneratedAt,
		HorizonStart: r.HorizonStart,
		HorizonEnd:   r.HorizonEnd,
		Assignments:  append([]Assignment(nil), r.Assignments...),
		Infeasible:   append([]Infeasibility(nil), r.Infeasible...),
	}
}

// LoadSnapshot reads the current state of a store into a snapshot.
// Only busy intervals that can touch the horizon are loaded.
func LoadSnapshot(ctx context.Context, s Store, now time.Time, loc *time.Location, horizonDays int) (Snapshot, error) {
	snap := Snapshot{Now: now, Location: orUTC(loc), HorizonDays: horizonDays}

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	constraints, err := s.GetConstraints(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	from := snap.HorizonStart().Midnight()
	to := snap.HorizonEnd().AddDays(1).Midnight()
	busy, err := s.ListBusy(ctx, from, to)
	if err != nil {
		return Snapshot{}, err
	}

	snap.Tasks = tasks
	snap.Busy = busy
	snap.Constraints = constraints
	return snap, nil
}
