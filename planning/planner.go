package planning

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultHorizonDays matches the original planner: today plus 30 days.
const DefaultHorizonDays = 30

// =============================================================================
// SNAPSHOT - Immutable input of one planning run
// =============================================================================

// Snapshot captures everything a run depends on. Two runs over equal
// snapshots produce equal results.
type Snapshot struct {
	Now      time.Time
	Location *time.Location

	// HorizonDays counts days after today; today itself is always included,
	// so the horizon spans HorizonDays+1 calendar days.
	HorizonDays int

	Tasks       []Task
	Busy        []BusyInterval
	Constraints ConstraintSet
}

// HorizonStart is the day containing Now.
func (s Snapshot) HorizonStart() Day { return DayOf(s.Now, s.Location) }

// HorizonEnd is the last day of the horizon (inclusive).
func (s Snapshot) HorizonEnd() Day { return s.HorizonStart().AddDays(s.HorizonDays) }

// Validate rejects the snapshot before any work is done.
func (s Snapshot) Validate() error {
	if s.Now.IsZero() {
		return invalid(ErrInvalidSnapshot, "now", nil, "must be set")
	}
	if s.HorizonDays < 0 {
		return invalid(ErrInvalidSnapshot, "horizon_days", s.HorizonDays, "must not be negative")
	}
	if err := s.Constraints.Validate(); err != nil {
		return withPrefix(err, "constraints")
	}

	start := s.HorizonStart()
	seen := make(map[TaskID]bool, len(s.Tasks))
	for i, t := range s.Tasks {
		prefix := fmt.Sprintf("tasks[%d]", i)
		if err := t.Validate(); err != nil {
			return withPrefix(err, prefix)
		}
		if DayOf(t.Deadline, s.Location).Before(start) {
			return withPrefix(invalid(ErrInvalidTask, "deadline", t.Deadline.Format(time.RFC3339), "is before the horizon start "+start.String()), prefix)
		}
		if seen[t.ID] {
			return invalid(ErrInvalidSnapshot, prefix+".id", string(t.ID), "duplicate task id")
		}
		seen[t.ID] = true
	}
	for i, b := range s.Busy {
		if err := b.Validate(); err != nil {
			return withPrefix(err, fmt.Sprintf("busy[%d]", i))
		}
	}
	return nil
}

// =============================================================================
// RESULT
// =============================================================================

// Infeasibility explains why a task is not fully scheduled.
type Infeasibility struct {
	TaskID    TaskID
	Title     string
	Deadline  time.Time
	Scheduled time.Duration
	Remaining time.Duration
	Reason    string
}

// Result is built fresh per run.
type Result struct {
	GeneratedAt  time.Time
	HorizonStart Day
	HorizonEnd   Day

	// Assignments in allocation order: by task order, then chronologically.
	Assignments []Assignment

	// Tasks in allocation order with remaining durations after the run.
	Tasks []Task

	// Infeasible lists every task with remaining > 0, in allocation order.
	Infeasible []Infeasibility
}

// Task looks up a task of the result by id.
func (r *Result) Task(id TaskID) (Task, bool) {
	for _, t := range r.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// IsInfeasible reports whether the task is in the infeasible set.
func (r *Result) IsInfeasible(id TaskID) bool {
	for _, inf := range r.Infeasible {
		if inf.TaskID == id {
			return true
		}
	}
	return false
}

// AssignmentsFor returns the assignments of one task, chronologically.
func (r *Result) AssignmentsFor(id TaskID) []Assignment {
	var out []Assignment
	for _, a := range r.Assignments {
		if a.TaskID == id {
			out = append(out, a)
		}
	}
	return out
}

// DaySchedule is the presentation view of one day.
type DaySchedule struct {
	Day         Day
	Assignments []Assignment // sorted by start
	Total       time.Duration
}

// ByDay groups assignments per day in loc, days ascending.
func (r *Result) ByDay(loc *time.Location) []DaySchedule {
	index := make(map[string]int)
	var days []DaySchedule
	for _, a := range r.Assignments {
		d := DayOf(a.Start, loc)
		i, ok := index[d.String()]
		if !ok {
			i = len(days)
			index[d.String()] = i
			days = append(days, DaySchedule{Day: d})
		}
		days[i].Assignments = append(days[i].Assignments, a)
		days[i].Total += a.Duration()
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day.Before(days[j].Day) })
	for i := range days {
		as := days[i].Assignments
		sort.Slice(as, func(x, y int) bool { return as[x].Start.Before(as[y].Start) })
	}
	return days
}

// Summary aggregates a result in decimal hours.
type Summary struct {
	Tasks          int
	FullyScheduled int
	Infeasible     int
	Assignments    int
	RequestedHours decimal.Decimal
	ScheduledHours decimal.Decimal
	UnplacedHours  decimal.Decimal
}

// Summary counts tasks and totals hours over the whole result.
func (r *Result) Summary() Summary {
	var requested, scheduled time.Duration
	s := Summary{Tasks: len(r.Tasks), Infeasible: len(r.Infeasible), Assignments: len(r.Assignments)}
	for _, t := range r.Tasks {
		requested += t.Duration
		scheduled += t.Scheduled()
		if t.FullyScheduled() {
			s.FullyScheduled++
		}
	}
	s.RequestedHours = Hours(requested)
	s.ScheduledHours = Hours(scheduled)
	s.UnplacedHours = Hours(requested - scheduled)
	return s
}

// =============================================================================
// PLANNER
// =============================================================================

// Planner runs the whole pipeline over a snapshot. It holds no state
// between runs and is safe for concurrent use.
type Planner struct {
	Logger zerolog.Logger
}

// Plan validates the snapshot, orders the tasks, generates free slots and
// allocates. Validation failures return a *ValidationError and no result.
func (p *Planner) Plan(snap Snapshot) (*Result, error) {
	if snap.Location == nil {
		snap.Location = time.UTC
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	start := snap.HorizonStart()
	gen := NewSlotGenerator(snap.Constraints, snap.Busy, start, snap.HorizonDays+1, snap.Now)
	ordered := Order(snap.Tasks)

	alloc := &Allocator{Location: snap.Location, Logger: p.Logger}
	out := alloc.Allocate(ordered, gen.Slots())

	result := &Result{
		GeneratedAt:  snap.Now,
		HorizonStart: start,
		HorizonEnd:   snap.HorizonEnd(),
		Assignments:  out.Assignments,
		Tasks:        out.Tasks,
	}
	for _, t := range out.Tasks {
		if t.FullyScheduled() {
			continue
		}
		result.Infeasible = append(result.Infeasible, Infeasibility{
			TaskID:    t.ID,
			Title:     t.Title,
			Deadline:  t.Deadline,
			Scheduled: t.Scheduled(),
			Remaining: t.Remaining(),
			Reason:    explain(t, gen, snap.Location),
		})
	}

	p.Logger.Info().
		Time("now", snap.Now).
		Str("horizon_start", result.HorizonStart.String()).
		Str("horizon_end", result.HorizonEnd.String()).
		Int("tasks", len(snap.Tasks)).
		Int("busy", len(snap.Busy)).
		Int("assignments", len(result.Assignments)).
		Int("infeasible", len(result.Infeasible)).
		Msg("planning run complete")

	return result, nil
}

// explain builds the human-readable reason of an infeasible task.
func explain(t Task, gen *SlotGenerator, loc *time.Location) string {
	deadline := DayOf(t.Deadline, loc)
	if t.Scheduled() > 0 {
		return fmt.Sprintf("only %sh of %sh scheduled before the deadline of %s",
			Hours(t.Scheduled()), Hours(t.Duration), deadline)
	}
	available := gen.Capacity(deadline)
	if available < t.Duration {
		return fmt.Sprintf("not enough free time before %s (%sh available, %sh needed)",
			deadline, Hours(available), Hours(t.Duration))
	}
	return fmt.Sprintf("free time before %s is taken by tasks with earlier deadlines or higher priority", deadline)
}
