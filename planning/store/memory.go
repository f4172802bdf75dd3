// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/task-planner/planning"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	tasks       map[planning.TaskID]planning.Task
	taskOrder   []planning.TaskID
	busy        map[planning.BusyID]planning.BusyInterval
	constraints *planning.ConstraintSet
	plans       []*planning.PlanRecord
}

var _ planning.Store = (*Memory)(nil)

func NewMemory() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.tasks = make(map[planning.TaskID]planning.Task)
	m.taskOrder = nil
	m.busy = make(map[planning.BusyID]planning.BusyInterval)
	m.constraints = nil
	m.plans = nil
}

// =============================================================================
// TASKS
// =============================================================================

func (m *Memory) SaveTask(_ context.Context, t planning.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[t.ID]; !ok {
		m.taskOrder = append(m.taskOrder, t.ID)
	}
	m.tasks[t.ID] = t.Reset()
	return nil
}

func (m *Memory) GetTask(_ context.Context, id planning.TaskID) (planning.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return planning.Task{}, planning.ErrNotFound
	}
	return t, nil
}

// ListTasks returns tasks in creation order.
func (m *Memory) ListTasks(_ context.Context) ([]planning.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]planning.Task, 0, len(m.taskOrder))
	for _, id := range m.taskOrder {
		result = append(result, m.tasks[id])
	}
	return result, nil
}

func (m *Memory) DeleteTask(_ context.Context, id planning.TaskID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return planning.ErrNotFound
	}
	delete(m.tasks, id)
	for i, existing := range m.taskOrder {
		if existing == id {
			m.taskOrder = append(m.taskOrder[:i], m.taskOrder[i+1:]...)
			break
		}
	}
	return nil
}

// =============================================================================
// BUSY INTERVALS
// =============================================================================

func (m *Memory) SaveBusy(_ context.Context, b planning.BusyInterval) error {
	if err := b.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy[b.ID] = b
	return nil
}

func (m *Memory) ListBusy(_ context.Context, from, to time.Time) ([]planning.BusyInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []planning.BusyInterval
	for _, b := range m.busy {
		if !from.IsZero() && !b.End.After(from) {
			continue
		}
		if !to.IsZero() && !b.Start.Before(to) {
			continue
		}
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Start.Equal(result[j].Start) {
			return result[i].ID < result[j].ID
		}
		return result[i].Start.Before(result[j].Start)
	})
	return result, nil
}

func (m *Memory) DeleteBusy(_ context.Context, id planning.BusyID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.busy[id]; !ok {
		return planning.ErrNotFound
	}
	delete(m.busy, id)
	return nil
}

func (m *Memory) DeleteBusyBySource(_ context.Context, source planning.Source) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, b := range m.busy {
		if b.Source == source {
			delete(m.busy, id)
			removed++
		}
	}
	return removed, nil
}

// =============================================================================
// CONSTRAINTS & PLANS
// =============================================================================

func (m *Memory) GetConstraints(_ context.Context) (planning.ConstraintSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.constraints == nil {
		return planning.DefaultConstraints(), nil
	}
	return copyConstraints(*m.constraints), nil
}

func (m *Memory) SaveConstraints(_ context.Context, c planning.ConstraintSet) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c = copyConstraints(c)
	m.constraints = &c
	return nil
}

func (m *Memory) SavePlan(_ context.Context, p *planning.PlanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	cp.Assignments = append([]planning.Assignment(nil), p.Assignments...)
	cp.Infeasible = append([]planning.Infeasibility(nil), p.Infeasible...)
	m.plans = append(m.plans, &cp)
	return nil
}

func (m *Memory) LatestPlan(_ context.Context) (*planning.PlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.plans) == 0 {
		return nil, planning.ErrNotFound
	}
	cp := *m.plans[len(m.plans)-1]
	return &cp, nil
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

// copyConstraints detaches the lunch window so callers can't mutate ours.
func copyConstraints(c planning.ConstraintSet) planning.ConstraintSet {
	if c.Lunch != nil {
		lunch := *c.Lunch
		c.Lunch = &lunch
	}
	return c
}
