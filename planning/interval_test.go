package planning_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/task-planner/planning"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// at returns a UTC instant in March 2025. March 10 is a Monday, March 16 a Sunday.
func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, time.UTC)
}

func iv(day, fromH, fromM, toH, toM int) planning.Interval {
	return planning.Interval{Start: at(day, fromH, fromM), End: at(day, toH, toM)}
}

// =============================================================================
// SUBTRACT
// =============================================================================

func TestSubtract_ClipsMergesAndOrders(t *testing.T) {
	// GIVEN: Working window 08:00-22:00 and overlapping, outside and
	//        partially outside occupied intervals, given out of order
	// WHEN: Subtracting
	// THEN: Free intervals are maximal, disjoint and chronological

	window := iv(10, 8, 0, 22, 0)
	occupied := []planning.Interval{
		{Start: at(10, 21, 0), End: at(10, 23, 0)}, // crosses the window end
		iv(10, 10, 30, 12, 0),
		iv(10, 10, 0, 11, 0),
		iv(10, 6, 0, 7, 0), // fully outside
	}

	free := planning.Subtract(window, occupied)

	assert.Equal(t, []planning.Interval{
		iv(10, 8, 0, 10, 0),
		iv(10, 12, 0, 21, 0),
	}, free)
}

func TestSubtract_AdjacentOccupiedIntervalsLeaveNoGap(t *testing.T) {
	// GIVEN: Two occupied intervals touching at 10:00
	// WHEN: Subtracting
	// THEN: No zero-length free interval appears between them

	free := planning.Subtract(iv(10, 8, 0, 22, 0), []planning.Interval{
		iv(10, 9, 0, 10, 0),
		iv(10, 10, 0, 11, 0),
	})

	assert.Equal(t, []planning.Interval{
		iv(10, 8, 0, 9, 0),
		iv(10, 11, 0, 22, 0),
	}, free)
}

func TestSubtract_OccupiedAtWindowEdgesDropsZeroLength(t *testing.T) {
	// GIVEN: Occupied intervals flush with both ends of the window
	// WHEN: Subtracting
	// THEN: Only the middle remains, no empty leftovers at the edges

	free := planning.Subtract(iv(10, 8, 0, 22, 0), []planning.Interval{
		iv(10, 7, 0, 9, 0),
		{Start: at(10, 20, 0), End: at(11, 1, 0)},
	})

	assert.Equal(t, []planning.Interval{iv(10, 9, 0, 20, 0)}, free)
}

func TestSubtract_FullyCoveredWindow(t *testing.T) {
	free := planning.Subtract(iv(10, 8, 0, 22, 0), []planning.Interval{iv(10, 7, 0, 23, 0)})
	assert.Empty(t, free)
}

func TestSubtract_NothingOccupied(t *testing.T) {
	free := planning.Subtract(iv(10, 8, 0, 22, 0), nil)
	assert.Equal(t, []planning.Interval{iv(10, 8, 0, 22, 0)}, free)
}

func TestSubtract_EmptyWindow(t *testing.T) {
	assert.Nil(t, planning.Subtract(iv(10, 8, 0, 8, 0), nil))
}

func TestSubtract_Idempotent(t *testing.T) {
	// GIVEN: The same inputs
	// WHEN: Subtracting twice
	// THEN: Identical output, inputs untouched

	window := iv(10, 8, 0, 22, 0)
	occupied := []planning.Interval{iv(10, 15, 0, 16, 0), iv(10, 9, 0, 10, 0)}
	before := append([]planning.Interval(nil), occupied...)

	first := planning.Subtract(window, occupied)
	second := planning.Subtract(window, occupied)

	assert.Equal(t, first, second)
	assert.Equal(t, before, occupied)
}

// =============================================================================
// MERGE & HELPERS
// =============================================================================

func TestMerge(t *testing.T) {
	merged := planning.Merge([]planning.Interval{
		iv(10, 14, 0, 15, 0),
		iv(10, 9, 0, 11, 0),
		iv(10, 10, 0, 12, 0),
		iv(10, 12, 0, 13, 0),
		iv(10, 16, 0, 16, 0), // empty
	})

	assert.Equal(t, []planning.Interval{
		iv(10, 9, 0, 13, 0),
		iv(10, 14, 0, 15, 0),
	}, merged)
}

func TestInterval_OverlapsIsHalfOpen(t *testing.T) {
	a := iv(10, 9, 0, 10, 0)
	assert.False(t, a.Overlaps(iv(10, 10, 0, 11, 0)))
	assert.True(t, a.Overlaps(iv(10, 9, 59, 11, 0)))
	assert.True(t, iv(10, 8, 0, 12, 0).Contains(a))
}

func TestTotal(t *testing.T) {
	total := planning.Total([]planning.Interval{iv(10, 8, 0, 9, 30), iv(10, 13, 0, 14, 0)})
	assert.Equal(t, 150*time.Minute, total)
}
