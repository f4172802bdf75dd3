/*
Package calendar connects the planner to Google Calendar.

PURPOSE:
  Calendar events are the main source of busy time, and the computed plan is
  most useful when it shows up next to those events. This package converts
  in both directions and talks to the Calendar API.

IMPORT:
  Timed events become imported busy intervals. All-day events are ignored
  (a birthday or a holiday marker doesn't block the day). Cancelled events
  and events written by a previous export are skipped too, otherwise the
  planner would block time with its own output.

  Imported intervals get a stable id derived from the event id, so importing
  twice updates instead of duplicating.

EXPORT:
  Each assignment becomes one event carrying the private extended property
  planner_task_id. On re-export the events of a task are matched to its
  assignments in start order: matches are patched when they differ, missing
  ones inserted, surplus ones deleted.

SEE ALSO:
  - calendar/auth.go: OAuth credentials and token cache
  - planning/types.go: BusyInterval, Assignment
*/
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/task-planner/planning"
	gcal "google.golang.org/api/calendar/v3"
)

// TaskIDProperty is the private extended property naming the planned task.
const TaskIDProperty = "planner_task_id"

// busyIDPrefix namespaces ids of intervals imported from Google.
const busyIDPrefix = "gcal-"

// =============================================================================
// CONVERSION
// =============================================================================

// EventToBusy converts a timed event into an imported busy interval.
// ok is false for events that don't block time.
func EventToBusy(e *gcal.Event) (b planning.BusyInterval, ok bool, err error) {
	if e == nil || e.Status == "cancelled" || e.Start == nil || e.End == nil {
		return planning.BusyInterval{}, false, nil
	}
	// All-day events only carry Date.
	if e.Start.DateTime == "" || e.End.DateTime == "" {
		return planning.BusyInterval{}, false, nil
	}
	if isExported(e) {
		return planning.BusyInterval{}, false, nil
	}

	start, err := time.Parse(time.RFC3339, e.Start.DateTime)
	if err != nil {
		return planning.BusyInterval{}, false, fmt.Errorf("event %s: invalid start: %w", e.Id, err)
	}
	end, err := time.Parse(time.RFC3339, e.End.DateTime)
	if err != nil {
		return planning.BusyInterval{}, false, fmt.Errorf("event %s: invalid end: %w", e.Id, err)
	}

	title := e.Summary
	if title == "" {
		title = "Event"
	}
	b, err = planning.NewBusyInterval(BusyID(e.Id), start, end, planning.SourceImported, title)
	if err != nil {
		return planning.BusyInterval{}, false, fmt.Errorf("event %s: %w", e.Id, err)
	}
	return b, true, nil
}

// BusyID is the busy interval id of a Google event.
func BusyID(eventID string) planning.BusyID {
	return planning.BusyID(busyIDPrefix + eventID)
}

// AssignmentToEvent builds the event for one assignment of t. Times are
// written in loc so the event reads naturally in the user's calendar.
func AssignmentToEvent(a planning.Assignment, t planning.Task, loc *time.Location) *gcal.Event {
	if loc == nil {
		loc = time.UTC
	}
	return &gcal.Event{
		Summary:     t.Title,
		Description: t.Notes,
		Start: &gcal.EventDateTime{
			DateTime: a.Start.In(loc).Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: a.End.In(loc).Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{TaskIDProperty: string(a.TaskID)},
		},
	}
}

func isExported(e *gcal.Event) bool {
	if e.ExtendedProperties == nil {
		return false
	}
	_, ok := e.ExtendedProperties.Private[TaskIDProperty]
	return ok
}

// eventPatch returns the fields of target that differ from existing, or nil
// when nothing changed.
func eventPatch(existing, target *gcal.Event) (*gcal.Event, error) {
	patch := &gcal.Event{}
	changed := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		changed = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		changed = true
	}

	same, err := sameTimes(existing, target)
	if err != nil {
		return nil, err
	}
	if !same {
		patch.Start = target.Start
		patch.End = target.End
		changed = true
	}

	if !changed {
		return nil, nil
	}
	return patch, nil
}

func sameTimes(a, b *gcal.Event) (bool, error) {
	if a.Start == nil || a.End == nil || a.Start.DateTime == "" || a.End.DateTime == "" {
		return false, nil
	}
	aStart, err := time.Parse(time.RFC3339, a.Start.DateTime)
	if err != nil {
		return false, err
	}
	aEnd, err := time.Parse(time.RFC3339, a.End.DateTime)
	if err != nil {
		return false, err
	}
	bStart, err := time.Parse(time.RFC3339, b.Start.DateTime)
	if err != nil {
		return false, err
	}
	bEnd, err := time.Parse(time.RFC3339, b.End.DateTime)
	if err != nil {
		return false, err
	}
	return aStart.Equal(bStart) && aEnd.Equal(bEnd), nil
}

// =============================================================================
// CLIENT
// =============================================================================

// Client reads and writes one Google calendar.
type Client struct {
	srv        *gcal.Service
	calendarID string
	logger     zerolog.Logger
}

// NewClient wraps an authenticated service. An empty calendarID means the
// user's primary calendar.
func NewClient(srv *gcal.Service, calendarID string, logger zerolog.Logger) *Client {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{srv: srv, calendarID: calendarID, logger: logger}
}

// ListBusy returns the busy intervals of events overlapping [from, to),
// recurring events expanded, ordered by start. Events that fail to convert
// are logged and skipped.
func (c *Client) ListBusy(ctx context.Context, from, to time.Time) ([]planning.BusyInterval, error) {
	call := c.srv.Events.List(c.calendarID).
		Context(ctx).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339))

	var out []planning.BusyInterval
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, e := range page.Items {
			b, ok, err := EventToBusy(e)
			if err != nil {
				c.logger.Warn().Err(err).Str("event_id", e.Id).Msg("skipping calendar event")
				continue
			}
			if ok {
				out = append(out, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar: %w", err)
	}
	return out, nil
}

// Import replaces every imported busy interval in s with the events
// overlapping [from, to). Manual intervals are left alone.
func (c *Client) Import(ctx context.Context, s planning.Store, from, to time.Time) (int, error) {
	busy, err := c.ListBusy(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if _, err := s.DeleteBusyBySource(ctx, planning.SourceImported); err != nil {
		return 0, err
	}
	for _, b := range busy {
		if err := s.SaveBusy(ctx, b); err != nil {
			return 0, err
		}
	}
	c.logger.Info().Int("events", len(busy)).Msg("calendar imported")
	return len(busy), nil
}

// ExportStats counts the calendar writes of an export.
type ExportStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
}

// Export writes the assignments of result to the calendar. Tasks of the
// result without assignments lose their previously exported events.
func (c *Client) Export(ctx context.Context, result *planning.Result) (ExportStats, error) {
	var stats ExportStats
	loc := result.HorizonStart.Loc

	for _, t := range result.Tasks {
		existing, err := c.exportedEvents(ctx, t.ID)
		if err != nil {
			return stats, err
		}
		assignments := result.AssignmentsFor(t.ID)

		for i, a := range assignments {
			target := AssignmentToEvent(a, t, loc)
			if i >= len(existing) {
				if _, err := c.srv.Events.Insert(c.calendarID, target).Context(ctx).Do(); err != nil {
					return stats, fmt.Errorf("insert event for task %s: %w", t.ID, err)
				}
				stats.Inserted++
				continue
			}
			patch, err := eventPatch(existing[i], target)
			if err != nil {
				return stats, fmt.Errorf("compare event %s: %w", existing[i].Id, err)
			}
			if patch == nil {
				continue
			}
			if _, err := c.srv.Events.Patch(c.calendarID, existing[i].Id, patch).Context(ctx).Do(); err != nil {
				return stats, fmt.Errorf("patch event %s: %w", existing[i].Id, err)
			}
			stats.Updated++
		}

		for i := len(assignments); i < len(existing); i++ {
			if err := c.srv.Events.Delete(c.calendarID, existing[i].Id).Context(ctx).Do(); err != nil {
				return stats, fmt.Errorf("delete event %s: %w", existing[i].Id, err)
			}
			stats.Deleted++
		}
	}

	c.logger.Info().
		Int("inserted", stats.Inserted).
		Int("updated", stats.Updated).
		Int("deleted", stats.Deleted).
		Msg("plan exported to calendar")
	return stats, nil
}

// exportedEvents lists the events previously written for a task, by start.
func (c *Client) exportedEvents(ctx context.Context, id planning.TaskID) ([]*gcal.Event, error) {
	var out []*gcal.Event
	err := c.srv.Events.List(c.calendarID).
		Context(ctx).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", TaskIDProperty, id)).
		SingleEvents(true).
		OrderBy("startTime").
		Pages(ctx, func(page *gcal.Events) error {
			out = append(out, page.Items...)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("error searching events of task %s: %w", id, err)
	}
	return out, nil
}
