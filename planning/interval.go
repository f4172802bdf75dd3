package planning

import (
	"sort"
	"time"
)

// =============================================================================
// INTERVAL - Half-open time range [Start, End)
// =============================================================================

// Interval is a half-open range of instants. Adjacent intervals touch
// without overlapping.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }
func (i Interval) IsEmpty() bool           { return !i.Start.Before(i.End) }

// Overlaps reports whether the two intervals share at least one instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o lies entirely within i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// Clip returns the part of i inside bounds. The result may be empty.
func (i Interval) Clip(bounds Interval) Interval {
	out := i
	if out.Start.Before(bounds.Start) {
		out.Start = bounds.Start
	}
	if out.End.After(bounds.End) {
		out.End = bounds.End
	}
	if out.End.Before(out.Start) {
		out.End = out.Start
	}
	return out
}

// =============================================================================
// INTERVAL ALGEBRA
// =============================================================================

// Merge returns the union of the given intervals as disjoint intervals in
// chronological order. Overlapping and adjacent intervals are coalesced and
// empty intervals dropped. The input is not modified.
func Merge(intervals []Interval) []Interval {
	sorted := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.IsEmpty() {
			sorted = append(sorted, iv)
		}
	}
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].Start.Equal(sorted[b].Start) {
			return sorted[a].End.Before(sorted[b].End)
		}
		return sorted[a].Start.Before(sorted[b].Start)
	})

	var merged []Interval
	for _, iv := range sorted {
		n := len(merged)
		if n > 0 && !iv.Start.After(merged[n-1].End) {
			if iv.End.After(merged[n-1].End) {
				merged[n-1].End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Subtract removes the occupied intervals from window and returns the
// maximal free intervals, in chronological order.
//
// Occupied intervals may overlap each other and may extend beyond the window:
// they are clipped to the window first, and those falling entirely outside
// contribute nothing. Zero-length results are dropped.
func Subtract(window Interval, occupied []Interval) []Interval {
	if window.IsEmpty() {
		return nil
	}

	clipped := make([]Interval, 0, len(occupied))
	for _, iv := range occupied {
		if !iv.Overlaps(window) {
			continue
		}
		clipped = append(clipped, iv.Clip(window))
	}

	var free []Interval
	cursor := window.Start
	for _, busy := range Merge(clipped) {
		if busy.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: busy.Start})
		}
		if busy.End.After(cursor) {
			cursor = busy.End
		}
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// Total sums the durations of the intervals.
func Total(intervals []Interval) time.Duration {
	var total time.Duration
	for _, iv := range intervals {
		total += iv.Duration()
	}
	return total
}
