package planning

import (
	"iter"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// GREEDY ALLOCATOR
// =============================================================================

// Allocation is the raw output of the allocator.
type Allocation struct {
	Assignments []Assignment
	Tasks       []Task // same order as the input, remaining updated
}

// Allocator places ordered tasks into a free-slot sequence.
//
// ALGORITHM:
//
//	One cursor walks the slot sequence forward and is shared by all tasks.
//	For each task, in order:
//	  1. look at the slot under the cursor; stop if its day is after the
//	     task's deadline day or the sequence is exhausted
//	  2. take min(remaining, slot) from the front of the slot
//	  3. a fully used slot advances the cursor; a partly used one stays
//	     under the cursor, shrunk, for the next task
//	  4. repeat until remaining == 0 or step 1 stops
//
//	Tasks arrive deadline-ascending, so a slot beyond one task's deadline is
//	still eligible for the next task and is never skipped. Every step either
//	finishes a task or consumes a slot: O(tasks + slots).
type Allocator struct {
	// Location is where deadlines are turned into days. Defaults to UTC.
	Location *time.Location
	Logger   zerolog.Logger
}

// Allocate consumes slots for tasks in the given order. Tasks are copied
// and reset to their full duration; the caller's slice is untouched.
func (a *Allocator) Allocate(tasks []Task, slots iter.Seq[FreeSlot]) Allocation {
	next, stop := iter.Pull(slots)
	defer stop()

	out := Allocation{Tasks: make([]Task, len(tasks))}

	var current FreeSlot
	var haveSlot, exhausted bool

	for i, t := range tasks {
		task := t.Reset()
		deadline := DayOf(task.Deadline, a.Location)

		for task.Remaining() > 0 {
			if !haveSlot {
				if exhausted {
					break
				}
				current, haveSlot = next()
				if !haveSlot {
					exhausted = true
					break
				}
			}
			if current.Day.After(deadline) {
				break
			}

			use := min(task.Remaining(), current.Duration())
			assignment := Assignment{
				TaskID: task.ID,
				Start:  current.Start,
				End:    current.Start.Add(use),
			}
			out.Assignments = append(out.Assignments, assignment)
			task.consume(use)

			a.Logger.Debug().
				Str("task_id", string(task.ID)).
				Str("day", current.Day.String()).
				Time("start", assignment.Start).
				Time("end", assignment.End).
				Dur("remaining", task.Remaining()).
				Msg("assigned")

			current.Start = assignment.End
			if current.Duration() <= 0 {
				haveSlot = false
			}
		}

		out.Tasks[i] = task
	}
	return out
}
