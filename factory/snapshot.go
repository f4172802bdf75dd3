package factory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/task-planner/planning"
)

// =============================================================================
// SNAPSHOT DOCUMENTS
// =============================================================================
//
// A snapshot document carries everything one planning run needs, so a plan
// can be reproduced from a file:
//
//   now: "2025-03-10T07:00:00+01:00"
//   timezone: Europe/Paris
//   horizon_days: 30
//   constraints: {max_hours_per_day: 6}
//   tasks:
//     - title: Thesis chapter 2
//       duration_minutes: 300
//       deadline: "2025-03-14"
//       priority: haute
//   busy:
//     - start: "2025-03-10T14:00:00+01:00"
//       end: "2025-03-10T16:00:00+01:00"
//       title: Seminar

// SnapshotJSON is the document form of a planning.Snapshot.
type SnapshotJSON struct {
	Now         string           `json:"now,omitempty" yaml:"now,omitempty"`
	Timezone    string           `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	HorizonDays *int             `json:"horizon_days,omitempty" yaml:"horizon_days,omitempty"`
	Constraints *ConstraintsJSON `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Tasks       []TaskJSON       `json:"tasks" yaml:"tasks"`
	Busy        []BusyJSON       `json:"busy" yaml:"busy"`
}

// TaskJSON is a normalized task record.
type TaskJSON struct {
	ID              string `json:"id,omitempty" yaml:"id,omitempty"`
	Title           string `json:"title" yaml:"title"`
	DurationMinutes int    `json:"duration_minutes" yaml:"duration_minutes"`
	Deadline        string `json:"deadline" yaml:"deadline"`
	Priority        string `json:"priority,omitempty" yaml:"priority,omitempty"`
	Notes           string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// BusyJSON is a busy interval record.
type BusyJSON struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Start  string `json:"start" yaml:"start"`
	End    string `json:"end" yaml:"end"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
}

// ParseSnapshot decodes a JSON or YAML snapshot document. now is used when
// the document doesn't pin one.
func ParseSnapshot(data []byte, now time.Time) (planning.Snapshot, error) {
	var sj SnapshotJSON
	if err := decode(data, &sj); err != nil {
		return planning.Snapshot{}, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return SnapshotFromJSON(sj, now)
}

// SnapshotFromJSON builds a snapshot. Record-level errors are reported with
// the record's position, e.g. "tasks[2].deadline".
func SnapshotFromJSON(sj SnapshotJSON, now time.Time) (planning.Snapshot, error) {
	loc := time.UTC
	if sj.Timezone != "" {
		l, err := time.LoadLocation(sj.Timezone)
		if err != nil {
			return planning.Snapshot{}, &planning.ValidationError{
				Kind: planning.ErrInvalidSnapshot, Field: "timezone", Value: sj.Timezone, Message: err.Error(),
			}
		}
		loc = l
	}

	snap := planning.Snapshot{Now: now, Location: loc, HorizonDays: planning.DefaultHorizonDays}
	if sj.Now != "" {
		t, err := ParseTime(sj.Now, loc)
		if err != nil {
			return planning.Snapshot{}, &planning.ValidationError{
				Kind: planning.ErrInvalidSnapshot, Field: "now", Value: sj.Now, Message: err.Error(),
			}
		}
		snap.Now = t
	}
	if sj.HorizonDays != nil {
		snap.HorizonDays = *sj.HorizonDays
	}

	constraints := planning.DefaultConstraints()
	if sj.Constraints != nil {
		c, err := NewConstraintFactory().FromJSON(*sj.Constraints)
		if err != nil {
			return planning.Snapshot{}, prefixed(err, "constraints")
		}
		constraints = c
	}
	snap.Constraints = constraints

	for i, tj := range sj.Tasks {
		t, err := TaskFromJSON(tj, loc)
		if err != nil {
			return planning.Snapshot{}, prefixed(err, fmt.Sprintf("tasks[%d]", i))
		}
		snap.Tasks = append(snap.Tasks, t)
	}
	for i, bj := range sj.Busy {
		b, err := BusyFromJSON(bj, loc)
		if err != nil {
			return planning.Snapshot{}, prefixed(err, fmt.Sprintf("busy[%d]", i))
		}
		snap.Busy = append(snap.Busy, b)
	}
	return snap, nil
}

// TaskFromJSON builds a validated task. A date-only deadline means the end
// of that day in loc.
func TaskFromJSON(tj TaskJSON, loc *time.Location) (planning.Task, error) {
	if tj.Deadline == "" {
		return planning.Task{}, &planning.ValidationError{Kind: planning.ErrInvalidTask, Field: "deadline", Message: "must be set"}
	}
	deadline, err := ParseTime(tj.Deadline, loc)
	if err != nil {
		return planning.Task{}, &planning.ValidationError{Kind: planning.ErrInvalidTask, Field: "deadline", Value: tj.Deadline, Message: err.Error()}
	}
	priority, err := planning.ParsePriority(tj.Priority)
	if err != nil {
		return planning.Task{}, err
	}
	t, err := planning.NewTask(planning.TaskID(tj.ID), tj.Title, time.Duration(tj.DurationMinutes)*time.Minute, deadline, priority)
	if err != nil {
		return planning.Task{}, err
	}
	t.Notes = tj.Notes
	return t, nil
}

// TaskToJSON is the inverse of TaskFromJSON.
func TaskToJSON(t planning.Task) TaskJSON {
	return TaskJSON{
		ID:              string(t.ID),
		Title:           t.Title,
		DurationMinutes: int(t.Duration / time.Minute),
		Deadline:        t.Deadline.Format(time.RFC3339),
		Priority:        t.Priority.String(),
		Notes:           t.Notes,
	}
}

// BusyFromJSON builds a validated busy interval; an empty source is manual.
func BusyFromJSON(bj BusyJSON, loc *time.Location) (planning.BusyInterval, error) {
	start, err := ParseTime(bj.Start, loc)
	if err != nil {
		return planning.BusyInterval{}, &planning.ValidationError{Kind: planning.ErrInvalidBusyInterval, Field: "start", Value: bj.Start, Message: err.Error()}
	}
	end, err := ParseTime(bj.End, loc)
	if err != nil {
		return planning.BusyInterval{}, &planning.ValidationError{Kind: planning.ErrInvalidBusyInterval, Field: "end", Value: bj.End, Message: err.Error()}
	}
	source, err := planning.ParseSource(bj.Source)
	if err != nil {
		return planning.BusyInterval{}, err
	}
	return planning.NewBusyInterval(planning.BusyID(bj.ID), start, end, source, bj.Title)
}

// BusyToJSON is the inverse of BusyFromJSON.
func BusyToJSON(b planning.BusyInterval) BusyJSON {
	return BusyJSON{
		ID:     string(b.ID),
		Start:  b.Start.Format(time.RFC3339),
		End:    b.End.Format(time.RFC3339),
		Source: string(b.Source),
		Title:  b.Title,
	}
}

// ParseTime accepts RFC 3339, "2006-01-02T15:04" and "2006-01-02 15:04"
// in loc, or a bare date meaning 23:59 that day.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if d, err := planning.ParseDay(s, loc); err == nil {
		return d.At(planning.NewClock(23, 59)), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q (use RFC 3339 or YYYY-MM-DD)", s)
}

func prefixed(err error, prefix string) error {
	var verr *planning.ValidationError
	if errors.As(err, &verr) {
		cp := *verr
		cp.Field = prefix + "." + verr.Field
		return &cp
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
