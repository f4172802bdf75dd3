/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with tasks, busy
	time and constraints showing specific planner behaviors. Dates are
	relative to the handler's clock so a scenario always lies in the future.

AVAILABLE SCENARIOS:

	single-task:   One task, plenty of room: fully scheduled in one block
	daily-cap:     2h/day cap against a 5h task due tomorrow: partial
	priority-tie:  One free hour, two tasks, same deadline: priority wins
	sunday-only:   Only Sunday is free and Sundays are excluded: infeasible
	student-week:  A realistic week of lectures and coursework
	overbooked:    Office hours and far too much work

HOW SCENARIOS WORK:
 1. Reset the store
 2. Save constraints
 3. Save busy intervals
 4. Save tasks

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "priority-tie"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase
  - factory/constraints.go: presets
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/task-planner/factory"
	"github.com/warp/task-planner/planning"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-task",
		Name:        "Single Task",
		Description: "One 2h task due in three days, scheduled in a single block",
		Category:    "basics",
	},
	{
		ID:          "daily-cap",
		Name:        "Daily Cap",
		Description: "2h/day cap, 5h task due tomorrow: 2h placed, the rest reported",
		Category:    "basics",
	},
	{
		ID:          "priority-tie",
		Name:        "Priority Tie-Break",
		Description: "One free hour before a shared deadline goes to the high priority task",
		Category:    "basics",
	},
	{
		ID:          "sunday-only",
		Name:        "Sunday Only",
		Description: "The only free day is a Sunday and Sundays are excluded",
		Category:    "basics",
	},
	{
		ID:          "student-week",
		Name:        "Student Week",
		Description: "Weekday lectures, four assignments with staggered deadlines",
		Category:    "demo",
	},
	{
		ID:          "overbooked",
		Name:        "Overbooked",
		Description: "Office hours with more work than fits before the deadlines",
		Category:    "demo",
	},
}

var scenarioLoaders = map[string]func(h *Handler, ctx context.Context) error{
	"single-task":  (*Handler).loadSingleTaskScenario,
	"daily-cap":    (*Handler).loadDailyCapScenario,
	"priority-tie": (*Handler).loadPriorityTieScenario,
	"sunday-only":  (*Handler).loadSundayOnlyScenario,
	"student-week": (*Handler).loadStudentWeekScenario,
	"overbooked":   (*Handler).loadOverbookedScenario,
}

// Scenarios returns the available scenarios.
func Scenarios() []ScenarioDTO {
	return append([]ScenarioDTO(nil), scenarios...)
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.RLock()
	current := h.currentScenario
	h.scenarioMu.RUnlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID); err != nil {
		if _, ok := scenarioLoaders[req.ScenarioID]; !ok {
			writeError(w, http.StatusBadRequest, "Unknown scenario", err)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// LoadScenarioByID resets the store and loads a scenario.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	load, ok := scenarioLoaders[id]
	if !ok {
		return fmt.Errorf("unknown scenario %q", id)
	}
	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	h.setScenario("")
	if err := load(h, ctx); err != nil {
		return err
	}
	h.setScenario(id)
	h.Logger.Info().Str("scenario", id).Msg("scenario loaded")
	return nil
}

func (h *Handler) setScenario(id string) {
	h.scenarioMu.Lock()
	h.currentScenario = id
	h.scenarioMu.Unlock()
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadSingleTaskScenario: default constraints, one 2h task due in 3 days.
func (h *Handler) loadSingleTaskScenario(ctx context.Context) error {
	today := h.today()
	return h.seed(ctx, planning.DefaultConstraints(), nil, []seedTask{
		{"essay", "Essay draft", 2 * time.Hour, today.AddDays(3), planning.PriorityMedium},
	})
}

// loadDailyCapScenario: today is fully booked, 2h/day, 5h due tomorrow.
func (h *Handler) loadDailyCapScenario(ctx context.Context) error {
	today := h.today()
	c := planning.DefaultConstraints()
	c.MaxPerDay = 2 * time.Hour
	c.ExcludeSunday = false

	return h.seed(ctx, c,
		[]seedBusy{wholeDays("classes", "Classes all day", today, today.AddDays(1))},
		[]seedTask{{"report", "Internship report", 5 * time.Hour, today.AddDays(1), planning.PriorityHigh}},
	)
}

// loadPriorityTieScenario: a single free hour tomorrow, two 1h tasks.
func (h *Handler) loadPriorityTieScenario(ctx context.Context) error {
	today := h.today()
	c := planning.ConstraintSet{
		MaxPerDay: 8 * time.Hour,
		WorkStart: planning.NewClock(9, 0),
		WorkEnd:   planning.NewClock(10, 0),
		MinBlock:  30 * time.Minute,
	}
	return h.seed(ctx, c,
		[]seedBusy{wholeDays("today", "Fully booked", today, today.AddDays(1))},
		[]seedTask{
			{"lab", "Lab report", time.Hour, today.AddDays(1), planning.PriorityHigh},
			{"notes", "Reading notes", time.Hour, today.AddDays(1), planning.PriorityLow},
		},
	)
}

// loadSundayOnlyScenario: every day up to next Sunday is booked.
func (h *Handler) loadSundayOnlyScenario(ctx context.Context) error {
	today := h.today()
	sunday := today.AddDays(1)
	for !sunday.IsSunday() {
		sunday = sunday.AddDays(1)
	}
	return h.seed(ctx, planning.DefaultConstraints(),
		[]seedBusy{wholeDays("week", "Conference", today, sunday)},
		[]seedTask{{"slides", "Slides for Monday", 2 * time.Hour, sunday, planning.PriorityHigh}},
	)
}

// loadStudentWeekScenario: student preset, weekday lectures 10-12.
func (h *Handler) loadStudentWeekScenario(ctx context.Context) error {
	today := h.today()
	var busy []seedBusy
	for i := 1; i <= 7; i++ {
		d := today.AddDays(i)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		busy = append(busy, seedBusy{
			id: planning.BusyID(fmt.Sprintf("lecture-%s", d)), title: "Lectures",
			startDay: d, startAt: planning.NewClock(10, 0),
			endDay: d, endAt: planning.NewClock(12, 0),
		})
	}
	return h.seed(ctx, factory.Student(), busy, []seedTask{
		{"stats", "Statistics problem set", 3 * time.Hour, today.AddDays(2), planning.PriorityMedium},
		{"talk", "Prepare oral presentation", 4 * time.Hour, today.AddDays(4), planning.PriorityHigh},
		{"thesis", "Thesis chapter 2", 6 * time.Hour, today.AddDays(5), planning.PriorityHigh},
		{"reading", "Read Kahneman ch. 4", 90 * time.Minute, today.AddDays(6), planning.PriorityLow},
	})
}

// loadOverbookedScenario: office preset, a daily standup, 30h of work
// due within three days.
func (h *Handler) loadOverbookedScenario(ctx context.Context) error {
	today := h.today()
	var busy []seedBusy
	for i := 0; i <= 3; i++ {
		d := today.AddDays(i)
		busy = append(busy, seedBusy{
			id: planning.BusyID(fmt.Sprintf("standup-%s", d)), title: "Standup",
			startDay: d, startAt: planning.NewClock(9, 0),
			endDay: d, endAt: planning.NewClock(9, 30),
		})
	}
	return h.seed(ctx, factory.Office(), busy, []seedTask{
		{"audit", "Security audit", 20 * time.Hour, today.AddDays(2), planning.PriorityHigh},
		{"budget", "Budget review", 10 * time.Hour, today.AddDays(3), planning.PriorityMedium},
	})
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

// seedTask is due at 23:59 on its deadline day.
type seedTask struct {
	id       planning.TaskID
	title    string
	duration time.Duration
	deadline planning.Day
	priority planning.Priority
}

// seedBusy spans startDay+startAt to endDay+endAt (clocks default to
// midnight).
type seedBusy struct {
	id       planning.BusyID
	title    string
	startDay planning.Day
	endDay   planning.Day
	startAt  planning.Clock
	endAt    planning.Clock
}

// wholeDays blocks from midnight of from to midnight of to.
func wholeDays(id planning.BusyID, title string, from, to planning.Day) seedBusy {
	return seedBusy{id: id, title: title, startDay: from, endDay: to}
}

func (h *Handler) seed(ctx context.Context, c planning.ConstraintSet, busy []seedBusy, tasks []seedTask) error {
	if err := h.Store.SaveConstraints(ctx, c); err != nil {
		return fmt.Errorf("save constraints: %w", err)
	}
	for _, sb := range busy {
		b, err := planning.NewBusyInterval(sb.id, sb.startDay.At(sb.startAt), sb.endDay.At(sb.endAt), planning.SourceManual, sb.title)
		if err != nil {
			return fmt.Errorf("busy %s: %w", sb.id, err)
		}
		if err := h.Store.SaveBusy(ctx, b); err != nil {
			return fmt.Errorf("save busy %s: %w", sb.id, err)
		}
	}
	for _, st := range tasks {
		t, err := planning.NewTask(st.id, st.title, st.duration, st.deadline.At(planning.NewClock(23, 59)), st.priority)
		if err != nil {
			return fmt.Errorf("task %s: %w", st.id, err)
		}
		if err := h.Store.SaveTask(ctx, t); err != nil {
			return fmt.Errorf("save task %s: %w", st.id, err)
		}
	}
	return nil
}
