package planning_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/task-planner/planning"
)

func monday() planning.Day { return planning.NewDay(2025, time.March, 10, time.UTC) }

func busy(id string, start, end time.Time) planning.BusyInterval {
	return planning.BusyInterval{ID: planning.BusyID(id), Start: start, End: end, Source: planning.SourceManual}
}

func slotIntervals(slots []planning.FreeSlot) []planning.Interval {
	out := make([]planning.Interval, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Interval())
	}
	return out
}

// =============================================================================
// SINGLE DAY
// =============================================================================

func TestSlots_DefaultsCapAtEightHours(t *testing.T) {
	// GIVEN: Default constraints (08-22, lunch 12-13, 8h/day) and a free Monday
	// WHEN: Generating the day's slots
	// THEN: Morning is kept whole, afternoon is truncated at the daily cap

	gen := planning.NewSlotGenerator(planning.DefaultConstraints(), nil, monday(), 1, time.Time{})

	slots := gen.Collect()

	assert.Equal(t, []planning.Interval{
		iv(10, 8, 0, 12, 0),
		iv(10, 13, 0, 17, 0),
	}, slotIntervals(slots))
	for _, s := range slots {
		assert.True(t, s.Day.Equal(monday()))
	}
}

func TestSlots_SundayExcluded(t *testing.T) {
	// GIVEN: ExcludeSunday and a horizon Saturday..Monday
	// WHEN: Generating slots
	// THEN: Nothing lands on Sunday

	c := planning.DefaultConstraints()
	saturday := planning.NewDay(2025, time.March, 15, time.UTC)
	gen := planning.NewSlotGenerator(c, nil, saturday, 3, time.Time{})

	sunday := saturday.AddDays(1)
	assert.Empty(t, gen.Day(sunday))
	for s := range gen.Slots() {
		assert.False(t, s.Day.IsSunday(), "slot on %s", s.Day)
	}

	c.ExcludeSunday = false
	gen = planning.NewSlotGenerator(c, nil, saturday, 3, time.Time{})
	assert.NotEmpty(t, gen.Day(sunday))
}

func TestSlots_MinBlockDropsShortGaps(t *testing.T) {
	// GIVEN: 08:00-12:00 window, busy 08:20-11:30, 30 min minimum block
	// WHEN: Generating
	// THEN: The 20 min gap is dropped, the 30 min gap is kept

	c := planning.ConstraintSet{
		MaxPerDay: 8 * time.Hour,
		WorkStart: planning.MustClock("08:00"),
		WorkEnd:   planning.MustClock("12:00"),
		MinBlock:  30 * time.Minute,
	}
	gen := planning.NewSlotGenerator(c, []planning.BusyInterval{
		busy("b1", at(10, 8, 20), at(10, 11, 30)),
	}, monday(), 1, time.Time{})

	assert.Equal(t, []planning.Interval{iv(10, 11, 30, 12, 0)}, slotIntervals(gen.Collect()))
}

func TestSlots_CapTruncatesThenDropsShortRemainder(t *testing.T) {
	// GIVEN: 2h15 daily cap, free 08-10 and 11-18
	// WHEN: Generating
	// THEN: 08-10 is kept, the 15 min left for the afternoon is below the
	//       minimum block and dropped

	c := planning.ConstraintSet{
		MaxPerDay: 2*time.Hour + 15*time.Minute,
		WorkStart: planning.MustClock("08:00"),
		WorkEnd:   planning.MustClock("18:00"),
		MinBlock:  30 * time.Minute,
	}
	gen := planning.NewSlotGenerator(c, []planning.BusyInterval{
		busy("b1", at(10, 10, 0), at(10, 11, 0)),
	}, monday(), 1, time.Time{})

	assert.Equal(t, []planning.Interval{iv(10, 8, 0, 10, 0)}, slotIntervals(gen.Collect()))
}

func TestSlots_CapTruncatesLongInterval(t *testing.T) {
	c := planning.ConstraintSet{
		MaxPerDay: 2 * time.Hour,
		WorkStart: planning.MustClock("08:00"),
		WorkEnd:   planning.MustClock("22:00"),
	}
	gen := planning.NewSlotGenerator(c, nil, monday(), 1, time.Time{})
	assert.Equal(t, []planning.Interval{iv(10, 8, 0, 10, 0)}, slotIntervals(gen.Collect()))
}

func TestSlots_NotBeforeClipsFirstDay(t *testing.T) {
	// GIVEN: "now" is Monday 14:30
	// WHEN: Generating Monday and Tuesday
	// THEN: Monday starts at 14:30, Tuesday is untouched

	gen := planning.NewSlotGenerator(planning.DefaultConstraints(), nil, monday(), 2, at(10, 14, 30))

	assert.Equal(t, []planning.Interval{
		iv(10, 14, 30, 22, 0),
		iv(11, 8, 0, 12, 0),
		iv(11, 13, 0, 17, 0),
	}, slotIntervals(gen.Collect()))
}

func TestSlots_NotBeforeAfterWorkingHours(t *testing.T) {
	gen := planning.NewSlotGenerator(planning.DefaultConstraints(), nil, monday(), 1, at(10, 23, 0))
	assert.Empty(t, gen.Collect())
}

func TestSlots_BusyAcrossMidnight(t *testing.T) {
	// GIVEN: A busy interval from Monday 20:00 to Tuesday 10:00
	// WHEN: Generating both days
	// THEN: Both days are clipped by it

	c := planning.DefaultConstraints()
	c.Lunch = nil
	gen := planning.NewSlotGenerator(c, []planning.BusyInterval{
		busy("night", at(10, 20, 0), at(11, 10, 0)),
	}, monday(), 2, time.Time{})

	assert.Equal(t, []planning.Interval{
		iv(10, 8, 0, 16, 0),
		iv(11, 10, 0, 18, 0),
	}, slotIntervals(gen.Collect()))
}

func TestSlots_Restartable(t *testing.T) {
	gen := planning.NewSlotGenerator(planning.DefaultConstraints(), []planning.BusyInterval{
		busy("b1", at(11, 9, 0), at(11, 10, 0)),
	}, monday(), 7, time.Time{})

	first := gen.Collect()
	second := gen.Collect()

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestSlots_Capacity(t *testing.T) {
	// Monday and Tuesday both offer the full 8h.
	gen := planning.NewSlotGenerator(planning.DefaultConstraints(), nil, monday(), 7, time.Time{})
	assert.Equal(t, 16*time.Hour, gen.Capacity(monday().AddDays(1)))
	assert.Equal(t, time.Duration(0), gen.Capacity(monday().AddDays(-1)))
}

// =============================================================================
// PROPERTIES
// =============================================================================

func randomBusy(r *rand.Rand, start planning.Day, days int) []planning.BusyInterval {
	var out []planning.BusyInterval
	for d := 0; d < days; d++ {
		day := start.AddDays(d)
		for n := r.IntN(4); n > 0; n-- {
			from := day.Midnight().Add(time.Duration(6*60+r.IntN(64)*15) * time.Minute)
			length := time.Duration(15+r.IntN(12)*15) * time.Minute
			out = append(out, busy(string(rune('a'+d))+string(rune('0'+n)), from, from.Add(length)))
		}
	}
	return out
}

func TestSlots_Properties(t *testing.T) {
	// GIVEN: Random busy intervals over two weeks
	// WHEN: Generating slots
	// THEN: Every slot lies in working hours, avoids lunch, busy time and
	//       Sundays, and no day exceeds the daily cap

	r := rand.New(rand.NewPCG(7, 42))
	c := planning.DefaultConstraints()
	c.MaxPerDay = 5 * time.Hour

	for round := 0; round < 20; round++ {
		busyIntervals := randomBusy(r, monday(), 14)
		gen := planning.NewSlotGenerator(c, busyIntervals, monday(), 14, time.Time{})

		perDay := map[string]time.Duration{}
		for s := range gen.Slots() {
			require.True(t, s.Start.Before(s.End))
			assert.False(t, s.Day.IsSunday())
			assert.True(t, c.WorkingWindow(s.Day).Contains(s.Interval()), "slot %v outside working window", s.Interval())
			assert.False(t, c.Lunch.On(s.Day).Overlaps(s.Interval()), "slot %v overlaps lunch", s.Interval())
			assert.GreaterOrEqual(t, s.Duration(), c.MinBlock)
			for _, b := range busyIntervals {
				assert.False(t, b.Interval().Overlaps(s.Interval()), "slot %v overlaps busy %v", s.Interval(), b.Interval())
			}
			perDay[s.Day.String()] += s.Duration()
		}
		for day, total := range perDay {
			assert.LessOrEqual(t, total, c.MaxPerDay, "day %s", day)
		}
	}
}
