package planning_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/task-planner/planning"
)

func newTask(t *testing.T, id string, duration time.Duration, deadline time.Time, p planning.Priority) planning.Task {
	t.Helper()
	task, err := planning.NewTask(planning.TaskID(id), id, duration, deadline, p)
	require.NoError(t, err)
	return task
}

func ids(tasks []planning.Task) []planning.TaskID {
	out := make([]planning.TaskID, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

func TestOrder_DeadlineThenPriorityThenDuration(t *testing.T) {
	// GIVEN: Tasks differing on each key
	// WHEN: Ordering
	// THEN: Deadline asc, then priority desc, then duration asc

	tasks := []planning.Task{
		newTask(t, "late", time.Hour, at(14, 18, 0), planning.PriorityHigh),
		newTask(t, "low", time.Hour, at(12, 18, 0), planning.PriorityLow),
		newTask(t, "high-long", 3*time.Hour, at(12, 18, 0), planning.PriorityHigh),
		newTask(t, "high-short", time.Hour, at(12, 18, 0), planning.PriorityHigh),
		newTask(t, "early", 5*time.Hour, at(11, 9, 0), planning.PriorityLow),
	}

	ordered := planning.Order(tasks)

	assert.Equal(t, []planning.TaskID{"early", "high-short", "high-long", "low", "late"}, ids(ordered))
}

func TestOrder_TiesKeepInputOrder(t *testing.T) {
	// GIVEN: Tasks identical on deadline, priority and duration
	// WHEN: Ordering many times
	// THEN: Always the input order

	deadline := at(12, 18, 0)
	tasks := []planning.Task{
		newTask(t, "zeta", time.Hour, deadline, planning.PriorityMedium),
		newTask(t, "alpha", time.Hour, deadline, planning.PriorityMedium),
		newTask(t, "mike", time.Hour, deadline, planning.PriorityMedium),
	}

	for i := 0; i < 50; i++ {
		assert.Equal(t, []planning.TaskID{"zeta", "alpha", "mike"}, ids(planning.Order(tasks)))
	}
}

func TestOrder_DoesNotMutateInput(t *testing.T) {
	tasks := []planning.Task{
		newTask(t, "b", time.Hour, at(13, 18, 0), planning.PriorityMedium),
		newTask(t, "a", time.Hour, at(12, 18, 0), planning.PriorityMedium),
	}
	planning.Order(tasks)
	assert.Equal(t, []planning.TaskID{"b", "a"}, ids(tasks))
}

func TestCompare(t *testing.T) {
	a := newTask(t, "a", time.Hour, at(12, 18, 0), planning.PriorityMedium)
	b := newTask(t, "b", time.Hour, at(12, 18, 0), planning.PriorityMedium)
	assert.Equal(t, 0, planning.Compare(a, b))

	b.Priority = planning.PriorityHigh
	assert.Equal(t, 1, planning.Compare(a, b))
	assert.Equal(t, -1, planning.Compare(b, a))
}

func TestParsePriority(t *testing.T) {
	cases := map[string]planning.Priority{
		"low":     planning.PriorityLow,
		"Basse":   planning.PriorityLow,
		"":        planning.PriorityMedium,
		"Normale": planning.PriorityMedium,
		"HIGH":    planning.PriorityHigh,
		"haute":   planning.PriorityHigh,
		"3":       planning.PriorityHigh,
	}
	for in, want := range cases {
		got, err := planning.ParsePriority(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := planning.ParsePriority("urgent")
	assert.ErrorIs(t, err, planning.ErrInvalidTask)
}
