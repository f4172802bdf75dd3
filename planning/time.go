package planning

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY - A calendar date in the planner's location
// =============================================================================

// Day is a calendar date. All wall-clock arithmetic happens in Loc so that
// working hours are interpreted in the user's timezone.
type Day struct {
	Year  int
	Month time.Month
	Dom   int
	Loc   *time.Location
}

// DayOf returns the day containing t, in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return Day{Year: t.Year(), Month: t.Month(), Dom: t.Day(), Loc: loc}
}

// NewDay builds a day from its parts.
func NewDay(year int, month time.Month, dom int, loc *time.Location) Day {
	return DayOf(time.Date(year, month, dom, 12, 0, 0, 0, orUTC(loc)), loc)
}

// ParseDay parses "2006-01-02" in loc.
func ParseDay(s string, loc *time.Location) (Day, error) {
	t, err := time.ParseInLocation("2006-01-02", s, orUTC(loc))
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayOf(t, loc), nil
}

// Midnight returns the first instant of the day.
func (d Day) Midnight() time.Time { return time.Date(d.Year, d.Month, d.Dom, 0, 0, 0, 0, orUTC(d.Loc)) }

// At returns the instant at clock c on this day.
func (d Day) At(c Clock) time.Time {
	return time.Date(d.Year, d.Month, d.Dom, c.Hour(), c.Minute(), 0, 0, orUTC(d.Loc))
}

// AddDays uses AddDate so DST transitions never shift the date.
func (d Day) AddDays(n int) Day { return DayOf(d.Midnight().AddDate(0, 0, n), d.Loc) }

func (d Day) Weekday() time.Weekday { return d.Midnight().Weekday() }
func (d Day) IsSunday() bool        { return d.Weekday() == time.Sunday }

// Comparison
func (d Day) key() int                 { return d.Year*10000 + int(d.Month)*100 + d.Dom }
func (d Day) Before(other Day) bool    { return d.key() < other.key() }
func (d Day) After(other Day) bool     { return d.key() > other.key() }
func (d Day) Equal(other Day) bool     { return d.key() == other.key() }
func (d Day) BeforeOrEqual(o Day) bool { return d.key() <= o.key() }
func (d Day) IsZero() bool             { return d.Year == 0 && d.Month == 0 && d.Dom == 0 }

func (d Day) String() string { return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Dom) }

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// =============================================================================
// CLOCK - Time of day, minute precision
// =============================================================================

// Clock is a time of day expressed in minutes since midnight.
// 24:00 is allowed as an end-of-day bound.
type Clock int

const EndOfDay Clock = 24 * 60

// NewClock builds a clock from hour and minute.
func NewClock(hour, minute int) Clock { return Clock(hour*60 + minute) }

// ParseClock parses "HH:MM" (or "H:MM").
func ParseClock(s string) (Clock, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock %q (use HH:MM): %w", s, err)
	}
	c := NewClock(h, m)
	if h < 0 || m < 0 || m > 59 || c > EndOfDay {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return c, nil
}

// MustClock is ParseClock for literals.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }
func (c Clock) Valid() bool { return c >= 0 && c <= EndOfDay }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute()) }

// Window is a clock-time range within a day, e.g. a lunch break.
type Window struct {
	Start Clock
	End   Clock
}

func (w Window) String() string { return w.Start.String() + "-" + w.End.String() }

// On returns the concrete interval of the window on day d.
func (w Window) On(d Day) Interval { return Interval{Start: d.At(w.Start), End: d.At(w.End)} }

// =============================================================================
// HOURS - Display helpers
// =============================================================================

// Hours converts a duration to decimal hours rounded to two places.
// Used for summaries and reasons; the engine itself works in time.Duration.
func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Minute)).Div(decimal.NewFromInt(60)).Round(2)
}

// FromHours converts decimal hours to a duration, truncated to the minute.
func FromHours(h decimal.Decimal) time.Duration {
	return time.Duration(h.Mul(decimal.NewFromInt(60)).IntPart()) * time.Minute
}
