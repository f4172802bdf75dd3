package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/task-planner/planning"
)

var base = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func TestMemory_TasksKeepCreationOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, id := range []planning.TaskID{"c", "a", "b"} {
		task, err := planning.NewTask(id, string(id), time.Hour, base.AddDate(0, 0, 2), planning.PriorityMedium)
		require.NoError(t, err)
		require.NoError(t, m.SaveTask(ctx, task))
	}

	// Updating doesn't move a task.
	task, err := planning.NewTask("c", "c v2", 2*time.Hour, base.AddDate(0, 0, 2), planning.PriorityHigh)
	require.NoError(t, err)
	require.NoError(t, m.SaveTask(ctx, task))

	tasks, err := m.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, planning.TaskID("c"), tasks[0].ID)
	assert.Equal(t, "c v2", tasks[0].Title)
	assert.Equal(t, planning.TaskID("a"), tasks[1].ID)

	require.NoError(t, m.DeleteTask(ctx, "a"))
	_, err = m.GetTask(ctx, "a")
	assert.ErrorIs(t, err, planning.ErrNotFound)
	assert.ErrorIs(t, m.DeleteTask(ctx, "a"), planning.ErrNotFound)
}

func TestMemory_BusyRangeAndSource(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	add := func(id planning.BusyID, startHour, endHour int, src planning.Source) {
		b, err := planning.NewBusyInterval(id, base.Add(time.Duration(startHour)*time.Hour), base.Add(time.Duration(endHour)*time.Hour), src, "")
		require.NoError(t, err)
		require.NoError(t, m.SaveBusy(ctx, b))
	}
	add("late", 20, 22, planning.SourceManual)
	add("early", 8, 9, planning.SourceImported)
	add("next-day", 32, 33, planning.SourceImported)

	busy, err := m.ListBusy(ctx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, busy, 2)
	assert.Equal(t, planning.BusyID("early"), busy[0].ID)
	assert.Equal(t, planning.BusyID("late"), busy[1].ID)

	// An interval ending exactly at from doesn't overlap.
	busy, err = m.ListBusy(ctx, base.Add(9*time.Hour), time.Time{})
	require.NoError(t, err)
	assert.Len(t, busy, 2)

	n, err := m.DeleteBusyBySource(ctx, planning.SourceImported)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	busy, err = m.ListBusy(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.Equal(t, planning.BusyID("late"), busy[0].ID)
}

func TestMemory_ConstraintsAreCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	c, err := m.GetConstraints(ctx)
	require.NoError(t, err)
	assert.Equal(t, planning.DefaultConstraints(), c)

	c.MaxPerDay = 4 * time.Hour
	require.NoError(t, m.SaveConstraints(ctx, c))
	c.Lunch.Start = planning.NewClock(11, 0)

	got, err := m.GetConstraints(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, got.MaxPerDay)
	assert.Equal(t, planning.NewClock(12, 0), got.Lunch.Start)

	bad := got
	bad.WorkEnd = bad.WorkStart
	assert.True(t, planning.IsValidation(m.SaveConstraints(ctx, bad)))
}

func TestMemory_PlansAndReset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.LatestPlan(ctx)
	assert.ErrorIs(t, err, planning.ErrNotFound)

	require.NoError(t, m.SavePlan(ctx, &planning.PlanRecord{ID: "p1"}))
	require.NoError(t, m.SavePlan(ctx, &planning.PlanRecord{ID: "p2"}))
	latest, err := m.LatestPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p2", latest.ID)

	require.NoError(t, m.Reset(ctx))
	_, err = m.LatestPlan(ctx)
	assert.ErrorIs(t, err, planning.ErrNotFound)
	tasks, err := m.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
