/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Tasks, busy intervals
  and constraints reuse the factory document types, so a task posted to the
  API and a task written in a snapshot file look the same.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Tasks:        TaskDTO (wraps factory.TaskJSON)
  Busy time:    factory.BusyJSON
  Constraints:  factory.ConstraintsJSON
  Plans:        PlanDTO, AssignmentDTO, InfeasibleDTO, DayDTO, SummaryDTO
  Scenarios:    ScenarioDTO, LoadScenarioRequest

HOURS:
  Durations are reported as decimal hours (shopspring decimal, two places),
  encoded as JSON strings: "1.5".

SEE ALSO:
  - handlers.go: Uses these types
  - factory/snapshot.go: TaskJSON, BusyJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/task-planner/factory"
	"github.com/warp/task-planner/planning"
)

// =============================================================================
// TASKS
// =============================================================================

// TaskDTO is a task with its duration in hours.
type TaskDTO struct {
	factory.TaskJSON
	Hours decimal.Decimal `json:"hours"`
}

func toTaskDTO(t planning.Task) TaskDTO {
	return TaskDTO{TaskJSON: factory.TaskToJSON(t), Hours: planning.Hours(t.Duration)}
}

func toTaskDTOs(tasks []planning.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		dtos[i] = toTaskDTO(t)
	}
	return dtos
}

func toBusyDTOs(busy []planning.BusyInterval) []factory.BusyJSON {
	dtos := make([]factory.BusyJSON, len(busy))
	for i, b := range busy {
		dtos[i] = factory.BusyToJSON(b)
	}
	return dtos
}

// =============================================================================
// PLANS
// =============================================================================

// PlanDTO is a computed plan.
type PlanDTO struct {
	ID           string          `json:"id"`
	GeneratedAt  string          `json:"generated_at"`
	HorizonStart string          `json:"horizon_start"`
	HorizonEnd   string          `json:"horizon_end"`
	Assignments  []AssignmentDTO `json:"assignments"`
	Infeasible   []InfeasibleDTO `json:"infeasible"`
	Overdue      []TaskDTO       `json:"overdue,omitempty"`
	Summary      *SummaryDTO     `json:"summary,omitempty"`
}

// AssignmentDTO is one block of work.
type AssignmentDTO struct {
	TaskID string          `json:"task_id"`
	Title  string          `json:"title"`
	Start  string          `json:"start"`
	End    string          `json:"end"`
	Hours  decimal.Decimal `json:"hours"`
}

// InfeasibleDTO explains a task that didn't fit before its deadline.
type InfeasibleDTO struct {
	TaskID         string          `json:"task_id"`
	Title          string          `json:"title"`
	Deadline       string          `json:"deadline"`
	ScheduledHours decimal.Decimal `json:"scheduled_hours"`
	RemainingHours decimal.Decimal `json:"remaining_hours"`
	Reason         string          `json:"reason"`
}

// DayDTO groups the assignments of one calendar day.
type DayDTO struct {
	Date        string          `json:"date"`
	Weekday     string          `json:"weekday"`
	TotalHours  decimal.Decimal `json:"total_hours"`
	Assignments []AssignmentDTO `json:"assignments"`
}

// SummaryDTO totals a plan.
type SummaryDTO struct {
	Tasks          int             `json:"tasks"`
	FullyScheduled int             `json:"fully_scheduled"`
	Infeasible     int             `json:"infeasible"`
	Assignments    int             `json:"assignments"`
	RequestedHours decimal.Decimal `json:"requested_hours"`
	ScheduledHours decimal.Decimal `json:"scheduled_hours"`
	UnplacedHours  decimal.Decimal `json:"unplaced_hours"`
}

// titles maps task ids to titles for assignment rows.
type titles map[planning.TaskID]string

func titlesOf(tasks []planning.Task) titles {
	out := make(titles, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t.Title
	}
	return out
}

func toAssignmentDTOs(as []planning.Assignment, names titles, loc *time.Location) []AssignmentDTO {
	dtos := make([]AssignmentDTO, len(as))
	for i, a := range as {
		dtos[i] = AssignmentDTO{
			TaskID: string(a.TaskID),
			Title:  names[a.TaskID],
			Start:  a.Start.In(loc).Format(time.RFC3339),
			End:    a.End.In(loc).Format(time.RFC3339),
			Hours:  planning.Hours(a.Duration()),
		}
	}
	return dtos
}

func toPlanDTO(rec *planning.PlanRecord, names titles, loc *time.Location) PlanDTO {
	dto := PlanDTO{
		ID:           rec.ID,
		GeneratedAt:  rec.GeneratedAt.In(loc).Format(time.RFC3339),
		HorizonStart: rec.HorizonStart.String(),
		HorizonEnd:   rec.HorizonEnd.String(),
		Assignments:  toAssignmentDTOs(rec.Assignments, names, loc),
		Infeasible:   make([]InfeasibleDTO, len(rec.Infeasible)),
	}
	for i, inf := range rec.Infeasible {
		dto.Infeasible[i] = InfeasibleDTO{
			TaskID:         string(inf.TaskID),
			Title:          inf.Title,
			Deadline:       inf.Deadline.In(loc).Format(time.RFC3339),
			ScheduledHours: planning.Hours(inf.Scheduled),
			RemainingHours: planning.Hours(inf.Remaining),
			Reason:         inf.Reason,
		}
	}
	return dto
}

// NewPlanDTO renders a fresh, unpersisted result with its summary.
func NewPlanDTO(r *planning.Result, loc *time.Location) PlanDTO {
	dto := toPlanDTO(planning.NewPlanRecord(r), titlesOf(r.Tasks), loc)
	dto.Summary = toSummaryDTO(r.Summary())
	return dto
}

// NewDayDTOs renders a result grouped by day.
func NewDayDTOs(r *planning.Result, loc *time.Location) []DayDTO {
	return toDayDTOs(r.ByDay(loc), titlesOf(r.Tasks), loc)
}

func toSummaryDTO(s planning.Summary) *SummaryDTO {
	return &SummaryDTO{
		Tasks:          s.Tasks,
		FullyScheduled: s.FullyScheduled,
		Infeasible:     s.Infeasible,
		Assignments:    s.Assignments,
		RequestedHours: s.RequestedHours,
		ScheduledHours: s.ScheduledHours,
		UnplacedHours:  s.UnplacedHours,
	}
}

func toDayDTOs(days []planning.DaySchedule, names titles, loc *time.Location) []DayDTO {
	dtos := make([]DayDTO, len(days))
	for i, d := range days {
		dtos[i] = DayDTO{
			Date:        d.Day.String(),
			Weekday:     d.Day.Weekday().String(),
			TotalHours:  planning.Hours(d.Total),
			Assignments: toAssignmentDTOs(d.Assignments, names, loc),
		}
	}
	return dtos
}

// =============================================================================
// SCENARIOS, CALENDAR, ERRORS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ImportRequest bounds a calendar import. Days defaults to the horizon.
type ImportRequest struct {
	Days int `json:"days"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}
