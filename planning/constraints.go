package planning

import "time"

// =============================================================================
// CONSTRAINT SET - When the user is willing to work
// =============================================================================

// ConstraintSet describes daily availability. It is a value type: callers
// copy it into a Snapshot and the engine never mutates it.
type ConstraintSet struct {
	// MaxPerDay caps the productive time offered on a single day.
	MaxPerDay time.Duration

	// WorkStart and WorkEnd bound the working window of every day.
	WorkStart Clock
	WorkEnd   Clock

	// ExcludeSunday removes Sundays from the horizon entirely.
	ExcludeSunday bool

	// Lunch, when set, is carved out of every working day.
	Lunch *Window

	// MinBlock drops free intervals too short to be useful. Zero disables it.
	MinBlock time.Duration
}

// DefaultConstraints returns 8h/day between 08:00 and 22:00, no Sundays,
// lunch 12:00-13:00 and 30-minute minimum blocks.
func DefaultConstraints() ConstraintSet {
	return ConstraintSet{
		MaxPerDay:     8 * time.Hour,
		WorkStart:     NewClock(8, 0),
		WorkEnd:       NewClock(22, 0),
		ExcludeSunday: true,
		Lunch:         &Window{Start: NewClock(12, 0), End: NewClock(13, 0)},
		MinBlock:      30 * time.Minute,
	}
}

// Validate checks the invariants of the set.
func (c ConstraintSet) Validate() error {
	if !c.WorkStart.Valid() {
		return invalid(ErrInvalidConstraints, "work_start", c.WorkStart, "must be a time of day")
	}
	if !c.WorkEnd.Valid() {
		return invalid(ErrInvalidConstraints, "work_end", c.WorkEnd, "must be a time of day")
	}
	if c.WorkStart >= c.WorkEnd {
		return invalid(ErrInvalidConstraints, "work_start", c.WorkStart.String(), "must be before work_end "+c.WorkEnd.String())
	}
	if c.MaxPerDay <= 0 || c.MaxPerDay > 24*time.Hour {
		return invalid(ErrInvalidConstraints, "max_hours_per_day", Hours(c.MaxPerDay).String(), "must be within (0, 24]")
	}
	if c.MinBlock < 0 {
		return invalid(ErrInvalidConstraints, "min_block", c.MinBlock, "must not be negative")
	}
	if c.Lunch != nil {
		if c.Lunch.Start >= c.Lunch.End {
			return invalid(ErrInvalidConstraints, "lunch", c.Lunch.String(), "start must be before end")
		}
		if c.Lunch.Start < c.WorkStart || c.Lunch.End > c.WorkEnd {
			return invalid(ErrInvalidConstraints, "lunch", c.Lunch.String(), "must lie within working hours")
		}
	}
	return nil
}

// WorkingWindow returns the working interval of day d.
func (c ConstraintSet) WorkingWindow(d Day) Interval {
	return Interval{Start: d.At(c.WorkStart), End: d.At(c.WorkEnd)}
}

// IsWorkingDay reports whether d can hold any slot at all.
func (c ConstraintSet) IsWorkingDay(d Day) bool {
	return !(c.ExcludeSunday && d.IsSunday())
}
