/*
handlers.go - HTTP API handlers for the task planner

PURPOSE:
  Exposes the planner via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the store, the factory and the planner.

ENDPOINTS:
  Tasks:
    GET    /api/tasks                  List tasks (creation order)
    POST   /api/tasks                  Create task
    GET    /api/tasks/{id}             Get task
    PUT    /api/tasks/{id}             Replace task
    DELETE /api/tasks/{id}             Delete task

  Busy time:
    GET    /api/busy?from=&to=         List busy intervals overlapping a range
    POST   /api/busy                   Add a manual busy interval
    DELETE /api/busy/{id}              Delete busy interval

  Constraints:
    GET    /api/constraints            Current constraint set
    PUT    /api/constraints            Replace (JSON or YAML body)
    GET    /api/constraints/presets    Preset names
    POST   /api/constraints/presets/{name}  Apply a preset

  Plans:
    POST   /api/plan                   Plan over the current state and persist
    GET    /api/plan                   Latest persisted plan
    GET    /api/plan/days              Latest plan grouped by day

  Calendar (when configured):
    POST   /api/calendar/import        Replace imported busy time
    POST   /api/calendar/export        Plan, then write the plan as events

REQUEST FLOW:
  1. Parse HTTP request
  2. Build validated values through the factory
  3. Call the store / planner
  4. Serialize response
  5. Map errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors (the offending field is named)
  - 404: Resource not found
  - 503: Calendar not configured
  - 500: Internal errors
  A plan with infeasible tasks is a successful plan: 200.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/task-planner/calendar"
	"github.com/warp/task-planner/factory"
	"github.com/warp/task-planner/metrics"
	"github.com/warp/task-planner/planning"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// CalendarSync imports busy time from and exports plans to a calendar.
type CalendarSync interface {
	Import(ctx context.Context, s planning.Store, from, to time.Time) (int, error)
	Export(ctx context.Context, result *planning.Result) (calendar.ExportStats, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       planning.Store
	Planner     *planning.Planner
	Constraints *factory.ConstraintFactory
	Calendar    CalendarSync // nil disables the calendar endpoints
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger

	Location    *time.Location
	HorizonDays int
	Now         func() time.Time

	// planMu serializes planning runs so persisted plans are never
	// interleaved.
	planMu sync.Mutex

	scenarioMu      sync.RWMutex
	currentScenario string
}

// NewHandler creates a handler over store with default settings.
func NewHandler(store planning.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		Store:       store,
		Planner:     &planning.Planner{Logger: logger},
		Constraints: factory.NewConstraintFactory(),
		Logger:      logger,
		Location:    time.UTC,
		HorizonDays: planning.DefaultHorizonDays,
		Now:         time.Now,
	}
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *Handler) today() planning.Day {
	return planning.DayOf(h.now(), h.Location)
}

// =============================================================================
// PLANNING
// =============================================================================

// PlanOutcome is one persisted planning run.
type PlanOutcome struct {
	Result *planning.Result
	Record *planning.PlanRecord
	// Overdue tasks have a deadline before today and were left out.
	Overdue []planning.Task
}

// Replan snapshots the store, plans and persists the result.
func (h *Handler) Replan(ctx context.Context) (*PlanOutcome, error) {
	h.planMu.Lock()
	defer h.planMu.Unlock()

	started := time.Now()
	snap, err := planning.LoadSnapshot(ctx, h.Store, h.now(), h.Location, h.HorizonDays)
	if err != nil {
		return nil, err
	}

	var overdue []planning.Task
	current := snap.Tasks[:0:0]
	today := snap.HorizonStart()
	for _, t := range snap.Tasks {
		if planning.DayOf(t.Deadline, snap.Location).Before(today) {
			overdue = append(overdue, t)
			continue
		}
		current = append(current, t)
	}
	snap.Tasks = current

	result, err := h.Planner.Plan(snap)
	if h.Metrics != nil {
		h.Metrics.ObservePlan(time.Since(started), result, err)
	}
	if err != nil {
		return nil, err
	}

	rec := planning.NewPlanRecord(result)
	if err := h.Store.SavePlan(ctx, rec); err != nil {
		return nil, err
	}
	return &PlanOutcome{Result: result, Record: rec, Overdue: overdue}, nil
}

// CreatePlan plans over the current state.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	out, err := h.Replan(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to plan", err)
		return
	}

	dto := toPlanDTO(out.Record, titlesOf(out.Result.Tasks), h.Location)
	dto.Summary = toSummaryDTO(out.Result.Summary())
	if len(out.Overdue) > 0 {
		dto.Overdue = toTaskDTOs(out.Overdue)
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetPlan returns the latest persisted plan.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	rec, names, ok := h.latestPlan(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(rec, names, h.Location))
}

// GetPlanDays returns the latest plan grouped by day.
func (h *Handler) GetPlanDays(w http.ResponseWriter, r *http.Request) {
	rec, names, ok := h.latestPlan(w, r)
	if !ok {
		return
	}
	result := &planning.Result{Assignments: rec.Assignments}
	writeJSON(w, http.StatusOK, toDayDTOs(result.ByDay(h.Location), names, h.Location))
}

func (h *Handler) latestPlan(w http.ResponseWriter, r *http.Request) (*planning.PlanRecord, titles, bool) {
	rec, err := h.Store.LatestPlan(r.Context())
	if err != nil {
		writeDomainError(w, "No plan computed yet", err)
		return nil, nil, false
	}
	tasks, err := h.Store.ListTasks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tasks", err)
		return nil, nil, false
	}
	return rec, titlesOf(tasks), true
}

// =============================================================================
// TASK HANDLERS
// =============================================================================

// ListTasks returns all tasks in creation order.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Store.ListTasks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTOs(tasks))
}

// GetTask returns a single task.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTask(r.Context(), planning.TaskID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Task not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(t))
}

// CreateTask creates a task. An id is generated when none is given.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req factory.TaskJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	t, err := factory.TaskFromJSON(req, h.Location)
	if err != nil {
		writeDomainError(w, "Invalid task", err)
		return
	}
	if err := h.Store.SaveTask(r.Context(), t); err != nil {
		writeDomainError(w, "Failed to create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskDTO(t))
}

// UpdateTask replaces an existing task.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := planning.TaskID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetTask(r.Context(), id); err != nil {
		writeDomainError(w, "Task not found", err)
		return
	}

	var req factory.TaskJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = string(id)

	t, err := factory.TaskFromJSON(req, h.Location)
	if err != nil {
		writeDomainError(w, "Invalid task", err)
		return
	}
	if err := h.Store.SaveTask(r.Context(), t); err != nil {
		writeDomainError(w, "Failed to update task", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(t))
}

// DeleteTask removes a task.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteTask(r.Context(), planning.TaskID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BUSY TIME HANDLERS
// =============================================================================

// ListBusy returns busy intervals overlapping ?from=&to= (both optional).
func (h *Handler) ListBusy(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	var err error
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = factory.ParseTime(s, h.Location); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from", err)
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = factory.ParseTime(s, h.Location); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to", err)
			return
		}
	}

	busy, err := h.Store.ListBusy(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list busy time", err)
		return
	}
	writeJSON(w, http.StatusOK, toBusyDTOs(busy))
}

// CreateBusy adds a busy interval; the source defaults to manual.
func (h *Handler) CreateBusy(w http.ResponseWriter, r *http.Request) {
	var req factory.BusyJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := factory.BusyFromJSON(req, h.Location)
	if err != nil {
		writeDomainError(w, "Invalid busy interval", err)
		return
	}
	if err := h.Store.SaveBusy(r.Context(), b); err != nil {
		writeDomainError(w, "Failed to save busy interval", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.BusyToJSON(b))
}

// DeleteBusy removes a busy interval.
func (h *Handler) DeleteBusy(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteBusy(r.Context(), planning.BusyID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete busy interval", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CONSTRAINT HANDLERS
// =============================================================================

// GetConstraints returns the current constraint set.
func (h *Handler) GetConstraints(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetConstraints(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load constraints", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Constraints.ToJSON(c))
}

// PutConstraints replaces the constraint set. Omitted fields take the
// defaults, not the previous values.
func (h *Handler) PutConstraints(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	c, err := h.Constraints.Parse(data)
	if err != nil {
		writeDomainError(w, "Invalid constraints", err)
		return
	}
	h.saveConstraints(w, r, c)
}

// ListPresets returns the preset names.
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, factory.PresetNames())
}

// ApplyPreset replaces the constraint set with a preset.
func (h *Handler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	c, err := h.Constraints.Preset(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown preset", err)
		return
	}
	h.saveConstraints(w, r, c)
}

func (h *Handler) saveConstraints(w http.ResponseWriter, r *http.Request, c planning.ConstraintSet) {
	if err := h.Store.SaveConstraints(r.Context(), c); err != nil {
		writeDomainError(w, "Failed to save constraints", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Constraints.ToJSON(c))
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// ImportCalendar replaces imported busy time with the calendar's events
// from today over the requested number of days.
func (h *Handler) ImportCalendar(w http.ResponseWriter, r *http.Request) {
	if h.Calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "Calendar not configured", nil)
		return
	}
	req := ImportRequest{Days: h.HorizonDays + 1}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	if req.Days <= 0 {
		writeError(w, http.StatusBadRequest, "days must be positive", nil)
		return
	}

	today := h.today()
	n, err := h.Calendar.Import(r.Context(), h.Store, today.Midnight(), today.AddDays(req.Days).Midnight())
	if err != nil {
		writeError(w, http.StatusBadGateway, "Calendar import failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// ExportCalendar plans over the current state and writes the plan.
func (h *Handler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	if h.Calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "Calendar not configured", nil)
		return
	}
	out, err := h.Replan(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to plan", err)
		return
	}
	stats, err := h.Calendar.Export(r.Context(), out.Result)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Calendar export failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// ADMIN
// =============================================================================

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps planning errors to 400 and 404, anything else to 500.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	var verr *planning.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Field: verr.Field, Details: err.Error()})
	case planning.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case planning.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
