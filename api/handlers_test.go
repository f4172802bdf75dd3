/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Task, busy time and constraint CRUD with error mapping
- Planning runs: infeasible tasks are a 200, validation is a 400
- Calendar endpoints through a fake CalendarSync
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/task-planner/calendar"
	"github.com/warp/task-planner/factory"
	"github.com/warp/task-planner/metrics"
	"github.com/warp/task-planner/planning"
	"github.com/warp/task-planner/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// testNow is Monday 2025-03-10 07:00 UTC.
var testNow = time.Date(2025, time.March, 10, 7, 0, 0, 0, time.UTC)

func setupTestHandler(t *testing.T) (*Handler, http.Handler) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, zerolog.Nop())
	h.Now = func() time.Time { return testNow }
	h.Metrics = metrics.New()
	return h, NewRouter(h, []string{"http://localhost:5173"})
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func hours(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// TASKS
// =============================================================================

func TestTasks_CRUD(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Creating, updating and deleting a task over HTTP
	// THEN: Each step is visible and the id is generated server-side

	_, router := setupTestHandler(t)

	rec := do(t, router, http.MethodPost, "/api/tasks", factory.TaskJSON{
		Title: "Essay", DurationMinutes: 90, Deadline: "2025-03-12", Priority: "haute",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[TaskDTO](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "high", created.Priority)
	assert.True(t, hours("1.5").Equal(created.Hours))
	assert.Equal(t, "2025-03-12T23:59:00Z", created.Deadline)

	rec = do(t, router, http.MethodPut, "/api/tasks/"+created.ID, factory.TaskJSON{
		Title: "Essay v2", DurationMinutes: 120, Deadline: "2025-03-13T18:00", Notes: "cite sources",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := decodeBody[[]TaskDTO](t, rec)
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)
	assert.Equal(t, "Essay v2", tasks[0].Title)
	assert.Equal(t, 120, tasks[0].DurationMinutes)
	assert.Equal(t, "medium", tasks[0].Priority)
	assert.Equal(t, "cite sources", tasks[0].Notes)

	rec = do(t, router, http.MethodDelete, "/api/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, router, http.MethodPut, "/api/tasks/"+created.ID, factory.TaskJSON{Title: "x", DurationMinutes: 1, Deadline: "2025-03-12"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTask_ValidationNamesField(t *testing.T) {
	_, router := setupTestHandler(t)

	cases := map[string]factory.TaskJSON{
		"duration": {Title: "zero", DurationMinutes: 0, Deadline: "2025-03-12"},
		"deadline": {Title: "no deadline", DurationMinutes: 30},
		"priority": {Title: "bad priority", DurationMinutes: 30, Deadline: "2025-03-12", Priority: "urgent"},
	}
	for field, body := range cases {
		rec := do(t, router, http.MethodPost, "/api/tasks", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, field)
		assert.Equal(t, field, decodeBody[ErrorResponse](t, rec).Field)
	}

	rec := do(t, router, http.MethodPost, "/api/tasks", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// BUSY TIME
// =============================================================================

func TestBusy_CreateListDelete(t *testing.T) {
	_, router := setupTestHandler(t)

	rec := do(t, router, http.MethodPost, "/api/busy", factory.BusyJSON{
		ID: "gym", Start: "2025-03-10T18:00", End: "2025-03-10T19:30", Title: "Gym",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "manual", decodeBody[factory.BusyJSON](t, rec).Source)

	rec = do(t, router, http.MethodPost, "/api/busy", factory.BusyJSON{Start: "2025-03-20T09:00", End: "2025-03-20T10:00"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/busy?from=2025-03-10T00:00&to=2025-03-11T00:00", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	busy := decodeBody[[]factory.BusyJSON](t, rec)
	require.Len(t, busy, 1)
	assert.Equal(t, "gym", busy[0].ID)

	rec = do(t, router, http.MethodPost, "/api/busy", factory.BusyJSON{Start: "2025-03-10T10:00", End: "2025-03-10T09:00"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "end", decodeBody[ErrorResponse](t, rec).Field)

	assert.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/api/busy/gym", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/busy/gym", nil).Code)

	rec = do(t, router, http.MethodGet, "/api/busy?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CONSTRAINTS
// =============================================================================

func TestConstraints_PutAndPresets(t *testing.T) {
	// GIVEN: Default constraints
	// WHEN: Replacing them with a YAML body, then applying a preset
	// THEN: Each change is persisted; invalid bodies name the field

	_, router := setupTestHandler(t)

	rec := do(t, router, http.MethodGet, "/api/constraints", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[factory.ConstraintsJSON](t, rec)
	assert.Equal(t, "08:00", got.WorkStart)
	require.NotNil(t, got.Lunch)

	rec = do(t, router, http.MethodPut, "/api/constraints", "max_hours_per_day: 4\nwork_start: \"09:00\"\nlunch: null\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = decodeBody[factory.ConstraintsJSON](t, rec)
	assert.True(t, hours("4").Equal(*got.MaxHoursPerDay))
	assert.Nil(t, got.Lunch)

	rec = do(t, router, http.MethodGet, "/api/constraints", nil)
	got = decodeBody[factory.ConstraintsJSON](t, rec)
	assert.Equal(t, "09:00", got.WorkStart)
	assert.Nil(t, got.Lunch)

	rec = do(t, router, http.MethodPut, "/api/constraints", `{"work_start": "20:00", "work_end": "08:00"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "work_start", decodeBody[ErrorResponse](t, rec).Field)

	rec = do(t, router, http.MethodGet, "/api/constraints/presets", nil)
	assert.Equal(t, []string{"default", "office", "student"}, decodeBody[[]string](t, rec))

	rec = do(t, router, http.MethodPost, "/api/constraints/presets/office", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/constraints", nil)
	got = decodeBody[factory.ConstraintsJSON](t, rec)
	assert.Equal(t, "18:00", got.WorkEnd)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodPost, "/api/constraints/presets/night-owl", nil).Code)
}

// =============================================================================
// PLANS
// =============================================================================

func TestPlan_InfeasibleTasksAreASuccessfulPlan(t *testing.T) {
	// GIVEN: A 2h task and a 40h task, both due tomorrow
	// WHEN: Planning
	// THEN: 200; the small task fits, the big one is reported with a reason,
	//       and the persisted plan can be read back

	_, router := setupTestHandler(t)
	for _, body := range []factory.TaskJSON{
		{ID: "fits", Title: "Fits", DurationMinutes: 120, Deadline: "2025-03-11"},
		{ID: "huge", Title: "Huge", DurationMinutes: 40 * 60, Deadline: "2025-03-11"},
	} {
		require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/tasks", body).Code)
	}

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/plan", nil).Code)

	rec := do(t, router, http.MethodPost, "/api/plan", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decodeBody[PlanDTO](t, rec)

	assert.Equal(t, "2025-03-10", plan.HorizonStart)
	assert.Equal(t, "2025-04-09", plan.HorizonEnd)
	require.NotEmpty(t, plan.Assignments)
	assert.Equal(t, "fits", plan.Assignments[0].TaskID)
	assert.Equal(t, "Fits", plan.Assignments[0].Title)
	assert.Equal(t, "2025-03-10T08:00:00Z", plan.Assignments[0].Start)

	require.Len(t, plan.Infeasible, 1)
	assert.Equal(t, "huge", plan.Infeasible[0].TaskID)
	assert.True(t, hours("14").Equal(plan.Infeasible[0].ScheduledHours))
	assert.True(t, hours("26").Equal(plan.Infeasible[0].RemainingHours))
	assert.Contains(t, plan.Infeasible[0].Reason, "only 14h of 40h")

	require.NotNil(t, plan.Summary)
	assert.Equal(t, 2, plan.Summary.Tasks)
	assert.Equal(t, 1, plan.Summary.FullyScheduled)
	assert.True(t, hours("16").Equal(plan.Summary.ScheduledHours))

	rec = do(t, router, http.MethodGet, "/api/plan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	latest := decodeBody[PlanDTO](t, rec)
	assert.Equal(t, plan.ID, latest.ID)
	assert.Equal(t, plan.Assignments, latest.Assignments)

	rec = do(t, router, http.MethodGet, "/api/plan/days", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	days := decodeBody[[]DayDTO](t, rec)
	require.Len(t, days, 2)
	assert.Equal(t, "2025-03-10", days[0].Date)
	assert.Equal(t, "Monday", days[0].Weekday)
	assert.True(t, hours("8").Equal(days[0].TotalHours))
	assert.True(t, hours("8").Equal(days[1].TotalHours))
}

func TestPlan_OverdueTasksAreSetAside(t *testing.T) {
	h, router := setupTestHandler(t)
	ctx := context.Background()

	late, err := planning.NewTask("late", "Late", time.Hour, testNow.AddDate(0, 0, -3), planning.PriorityHigh)
	require.NoError(t, err)
	require.NoError(t, h.Store.SaveTask(ctx, late))

	rec := do(t, router, http.MethodPost, "/api/plan", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decodeBody[PlanDTO](t, rec)
	assert.Empty(t, plan.Assignments)
	require.Len(t, plan.Overdue, 1)
	assert.Equal(t, "late", plan.Overdue[0].ID)
}

// =============================================================================
// CALENDAR
// =============================================================================

type fakeCalendar struct {
	from, to time.Time
	exported *planning.Result
}

func (f *fakeCalendar) Import(ctx context.Context, s planning.Store, from, to time.Time) (int, error) {
	f.from, f.to = from, to
	b, err := planning.NewBusyInterval(calendar.BusyID("ev1"), from.Add(9*time.Hour), from.Add(10*time.Hour), planning.SourceImported, "Meeting")
	if err != nil {
		return 0, err
	}
	return 1, s.SaveBusy(ctx, b)
}

func (f *fakeCalendar) Export(_ context.Context, r *planning.Result) (calendar.ExportStats, error) {
	f.exported = r
	return calendar.ExportStats{Inserted: len(r.Assignments)}, nil
}

func TestCalendar_NotConfigured(t *testing.T) {
	_, router := setupTestHandler(t)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodPost, "/api/calendar/import", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodPost, "/api/calendar/export", nil).Code)
}

func TestCalendar_ImportThenExport(t *testing.T) {
	// GIVEN: A calendar with one meeting and a task
	// WHEN: Importing, then exporting
	// THEN: The import covers the horizon and the exported plan avoids the meeting

	h, router := setupTestHandler(t)
	fake := &fakeCalendar{}
	h.Calendar = fake

	rec := do(t, router, http.MethodPost, "/api/calendar/import", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]int{"imported": 1}, decodeBody[map[string]int](t, rec))
	assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), fake.from)
	assert.Equal(t, time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC), fake.to)

	rec = do(t, router, http.MethodPost, "/api/calendar/import", ImportRequest{Days: 7})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC), fake.to)

	rec = do(t, router, http.MethodPost, "/api/tasks", factory.TaskJSON{ID: "t", Title: "T", DurationMinutes: 120, Deadline: "2025-03-10"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/calendar/export", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, calendar.ExportStats{Inserted: 2}, decodeBody[calendar.ExportStats](t, rec))

	require.NotNil(t, fake.exported)
	as := fake.exported.Assignments
	require.Len(t, as, 2)
	assert.Equal(t, 8, as[0].Start.Hour())
	assert.Equal(t, 9, as[0].End.Hour())
	assert.Equal(t, 10, as[1].Start.Hour())
	assert.Equal(t, 11, as[1].End.Hour())
}

// =============================================================================
// HEALTH & METRICS
// =============================================================================

func TestHealthAndMetrics(t *testing.T) {
	_, router := setupTestHandler(t)

	rec := do(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	do(t, router, http.MethodPost, "/api/plan", nil)

	rec = do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `planner_plan_runs_total{outcome="ok"} 1`)
	assert.Contains(t, body, `planner_api_requests_total{endpoint="/healthz",method="GET",status="200"} 1`)
}
