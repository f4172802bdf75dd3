package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplanScheduler_RunOnce(t *testing.T) {
	// GIVEN: A loaded scenario and a calendar
	// WHEN: One scheduler pass runs
	// THEN: The calendar is imported and a plan is persisted

	h, router := setupTestHandler(t)
	fake := &fakeCalendar{}
	h.Calendar = fake
	require.NoError(t, h.LoadScenarioByID(context.Background(), "single-task"))

	rs := NewReplanScheduler(h, time.Hour)
	require.True(t, rs.ImportCalendar)
	rs.RunOnce(context.Background())

	assert.Equal(t, 1, rs.Runs())
	assert.False(t, fake.from.IsZero())

	rec := do(t, router, http.MethodGet, "/api/plan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// the imported 09:00 meeting splits the essay in two
	assert.Len(t, decodeBody[PlanDTO](t, rec).Assignments, 2)
}

func TestReplanScheduler_StartStop(t *testing.T) {
	h, _ := setupTestHandler(t)
	rs := NewReplanScheduler(h, 10*time.Millisecond)

	rs.Start()
	rs.Start()
	assert.Eventually(t, func() bool { return rs.Runs() >= 2 }, 2*time.Second, 5*time.Millisecond)
	rs.Stop()

	runs := rs.Runs()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, runs, rs.Runs())
	rs.Stop()
}

func TestReplanScheduler_Disabled(t *testing.T) {
	h, _ := setupTestHandler(t)
	rs := NewReplanScheduler(h, 0)

	rs.Start()
	rs.Stop()
	assert.Zero(t, rs.Runs())
}
