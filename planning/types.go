/*
Package planning provides the task allocation engine.

PURPOSE:
  Places user tasks (duration, deadline, priority) into the free portions
  of a horizon that is otherwise occupied by busy intervals and by the
  user's availability constraints. The engine is a deterministic greedy
  heuristic: earliest deadline first, each task takes the earliest eligible
  capacity, nothing is reconsidered.

KEY CONCEPTS IN THIS FILE (types.go):
  - Task: work to place, with a mutable remaining duration
  - Priority: ordered enum used as a tie-break
  - BusyInterval: committed time (imported from a calendar or manual)
  - FreeSlot: derived free time on a day, regenerated per run
  - Assignment: the output unit, a task occupying an interval

DATA FLOW:
  ConstraintSet + busy intervals -> SlotGenerator -> ordered free slots
  Tasks -> Order -> ordered tasks
  both -> Allocator -> assignments + infeasible report

DESIGN PRINCIPLES:
  1. Snapshots: a run operates on an immutable Snapshot, never on shared state
  2. Validation at the boundary: constructors reject bad values early
  3. Infeasibility is an outcome, not an error

SEE ALSO:
  - interval.go: interval algebra
  - slots.go: free-slot generation
  - ordering.go: task ordering policy
  - allocator.go: greedy allocation
  - planner.go: the Plan entry point
*/
package planning

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TaskID string
type BusyID string

// NewTaskID returns a short random identifier.
func NewTaskID() TaskID { return TaskID(uuid.NewString()[:8]) }

// NewBusyID returns a random identifier for a busy interval.
func NewBusyID() BusyID { return BusyID(uuid.NewString()) }

// =============================================================================
// PRIORITY
// =============================================================================

// Priority ranks tasks that share a deadline. Higher values sort first.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// ParsePriority accepts english names and the french labels used by the
// original task planner UI. Matching is case-insensitive.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "basse", "1":
		return PriorityLow, nil
	case "medium", "normal", "normale", "2", "":
		return PriorityMedium, nil
	case "high", "haute", "3":
		return PriorityHigh, nil
	default:
		return 0, invalid(ErrInvalidTask, "priority", s, "must be low, medium or high")
	}
}

func (p Priority) Valid() bool { return p >= PriorityLow && p <= PriorityHigh }

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// =============================================================================
// TASK
// =============================================================================

// Task is a unit of work to place. Duration and Deadline are fixed once the
// task is built; remaining is consumed by the allocator on its own copy.
//
// INVARIANT: 0 <= remaining <= Duration. Fully scheduled iff remaining == 0.
type Task struct {
	ID       TaskID
	Title    string
	Duration time.Duration
	Deadline time.Time // inclusive; compared at day granularity
	Priority Priority
	Notes    string

	remaining time.Duration
}

// NewTask validates its inputs and returns a task with remaining == duration.
// An empty id is replaced by a generated one.
func NewTask(id TaskID, title string, duration time.Duration, deadline time.Time, priority Priority) (Task, error) {
	if id == "" {
		id = NewTaskID()
	}
	t := Task{
		ID:        id,
		Title:     title,
		Duration:  duration,
		Deadline:  deadline,
		Priority:  priority,
		remaining: duration,
	}
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Validate checks the fields that do not depend on the planning horizon.
func (t Task) Validate() error {
	if t.ID == "" {
		return invalid(ErrInvalidTask, "id", nil, "must not be empty")
	}
	if t.Duration <= 0 {
		return invalid(ErrInvalidTask, "duration", t.Duration, "must be positive")
	}
	if t.Deadline.IsZero() {
		return invalid(ErrInvalidTask, "deadline", nil, "must be set")
	}
	if !t.Priority.Valid() {
		return invalid(ErrInvalidTask, "priority", int(t.Priority), "must be low, medium or high")
	}
	return nil
}

// Remaining is the duration not yet placed.
func (t Task) Remaining() time.Duration { return t.remaining }

// Scheduled is the duration already placed.
func (t Task) Scheduled() time.Duration { return t.Duration - t.remaining }

// FullyScheduled reports remaining == 0.
func (t Task) FullyScheduled() bool { return t.remaining == 0 }

// Reset returns a copy with remaining restored to the full duration.
// Stores hand out reset tasks.
func (t Task) Reset() Task {
	t.remaining = t.Duration
	return t
}

// consume places d of the task. Callers guarantee d <= remaining.
func (t *Task) consume(d time.Duration) {
	if d > t.remaining {
		d = t.remaining
	}
	t.remaining -= d
}

// =============================================================================
// BUSY INTERVAL
// =============================================================================

// Source tags where a busy interval came from. The engine treats both alike.
type Source string

const (
	SourceImported Source = "imported"
	SourceManual   Source = "manual"
)

func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(s)) {
	case SourceImported:
		return SourceImported, nil
	case SourceManual, "":
		return SourceManual, nil
	default:
		return "", invalid(ErrInvalidBusyInterval, "source", s, "must be imported or manual")
	}
}

// BusyInterval is committed time the allocator must not schedule into.
type BusyInterval struct {
	ID     BusyID
	Start  time.Time
	End    time.Time
	Source Source
	Title  string
}

// NewBusyInterval validates start < end.
func NewBusyInterval(id BusyID, start, end time.Time, source Source, title string) (BusyInterval, error) {
	if id == "" {
		id = NewBusyID()
	}
	b := BusyInterval{ID: id, Start: start, End: end, Source: source, Title: title}
	if err := b.Validate(); err != nil {
		return BusyInterval{}, err
	}
	return b, nil
}

func (b BusyInterval) Validate() error {
	if !b.Start.Before(b.End) {
		return invalid(ErrInvalidBusyInterval, "end", b.End.Format(time.RFC3339), "must be after start "+b.Start.Format(time.RFC3339))
	}
	if b.Source != SourceImported && b.Source != SourceManual {
		return invalid(ErrInvalidBusyInterval, "source", string(b.Source), "must be imported or manual")
	}
	return nil
}

func (b BusyInterval) Interval() Interval { return Interval{Start: b.Start, End: b.End} }

// =============================================================================
// FREE SLOT & ASSIGNMENT
// =============================================================================

// FreeSlot is derived free time on a day. Never persisted.
type FreeSlot struct {
	Day   Day
	Start time.Time
	End   time.Time
}

func (s FreeSlot) Duration() time.Duration { return s.End.Sub(s.Start) }
func (s FreeSlot) Interval() Interval      { return Interval{Start: s.Start, End: s.End} }

// Assignment is a task occupying [Start, End). It is what export and
// presentation collaborators consume.
type Assignment struct {
	TaskID TaskID
	Start  time.Time
	End    time.Time
}

func (a Assignment) Duration() time.Duration { return a.End.Sub(a.Start) }
func (a Assignment) Interval() Interval      { return Interval{Start: a.Start, End: a.End} }
