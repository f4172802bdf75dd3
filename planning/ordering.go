package planning

import "sort"

// =============================================================================
// TASK ORDERING POLICY
// =============================================================================

// Compare orders tasks for allocation:
//  1. earlier deadline first
//  2. higher priority first
//  3. shorter duration first
//
// Tasks equal on all three compare as 0; Order keeps their input order.
func Compare(a, b Task) int {
	switch {
	case a.Deadline.Before(b.Deadline):
		return -1
	case a.Deadline.After(b.Deadline):
		return 1
	}
	if a.Priority != b.Priority {
		if a.Priority > b.Priority {
			return -1
		}
		return 1
	}
	switch {
	case a.Duration < b.Duration:
		return -1
	case a.Duration > b.Duration:
		return 1
	}
	return 0
}

// Order returns a sorted copy of tasks. The sort is stable, so ties keep
// the caller's order and repeated runs are reproducible.
func Order(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool { return Compare(out[i], out[j]) < 0 })
	return out
}
