package planning

import (
	"iter"
	"sort"
	"time"
)

// =============================================================================
// SLOT GENERATOR - Free time per day over the horizon
// =============================================================================

// SlotGenerator derives free slots from constraints and busy intervals.
// It depends only on its fields; Slots can be iterated any number of times
// and yields the same sequence each time.
type SlotGenerator struct {
	Constraints ConstraintSet
	Busy        []BusyInterval

	// Start is the first day of the horizon; Days is the number of days.
	Start Day
	Days  int

	// NotBefore clips the horizon so no slot starts before it (typically
	// "now"). Zero means no clipping.
	NotBefore time.Time
}

// NewSlotGenerator sorts busy intervals once so per-day lookups can stop
// early. The given slice is not modified.
func NewSlotGenerator(c ConstraintSet, busy []BusyInterval, start Day, days int, notBefore time.Time) *SlotGenerator {
	sorted := make([]BusyInterval, len(busy))
	copy(sorted, busy)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	return &SlotGenerator{Constraints: c, Busy: sorted, Start: start, Days: days, NotBefore: notBefore}
}

// Slots yields free slots ordered by day then start time.
func (g *SlotGenerator) Slots() iter.Seq[FreeSlot] {
	return func(yield func(FreeSlot) bool) {
		for i := 0; i < g.Days; i++ {
			for _, slot := range g.Day(g.Start.AddDays(i)) {
				if !yield(slot) {
					return
				}
			}
		}
	}
}

// Collect materializes the whole sequence.
func (g *SlotGenerator) Collect() []FreeSlot {
	var out []FreeSlot
	for s := range g.Slots() {
		out = append(out, s)
	}
	return out
}

// Day computes the free slots of a single day:
//  1. skip excluded weekdays
//  2. subtract busy intervals and the lunch window from the working window
//  3. drop intervals shorter than MinBlock
//  4. cap the cumulative free time at MaxPerDay, earliest first
func (g *SlotGenerator) Day(d Day) []FreeSlot {
	c := g.Constraints
	if !c.IsWorkingDay(d) {
		return nil
	}

	window := c.WorkingWindow(d)
	if !g.NotBefore.IsZero() && g.NotBefore.After(window.Start) {
		window.Start = g.NotBefore
		if !window.Start.Before(window.End) {
			return nil
		}
	}

	occupied := g.occupiedOn(window)
	if c.Lunch != nil {
		occupied = append(occupied, c.Lunch.On(d))
	}

	budget := c.MaxPerDay
	var slots []FreeSlot
	for _, free := range Subtract(window, occupied) {
		if budget <= 0 {
			break
		}
		if free.Duration() < c.MinBlock {
			continue
		}
		if free.Duration() > budget {
			free.End = free.Start.Add(budget)
			if free.Duration() < c.MinBlock {
				break
			}
		}
		budget -= free.Duration()
		slots = append(slots, FreeSlot{Day: d, Start: free.Start, End: free.End})
	}
	return slots
}

// occupiedOn returns busy intervals overlapping the window.
func (g *SlotGenerator) occupiedOn(window Interval) []Interval {
	var out []Interval
	for _, b := range g.Busy {
		if !b.Start.Before(window.End) {
			break
		}
		if b.End.After(window.Start) {
			out = append(out, b.Interval())
		}
	}
	return out
}

// Capacity totals the free time offered from the horizon start up to and
// including day until.
func (g *SlotGenerator) Capacity(until Day) time.Duration {
	var total time.Duration
	for s := range g.Slots() {
		if s.Day.After(until) {
			break
		}
		total += s.Duration()
	}
	return total
}
