package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/roomdesk/internal/daterange"
)

func day(s string) daterange.Date {
	return daterange.MustParse(s)
}

func span(start, end string) daterange.Range {
	return daterange.Range{Start: day(start), End: day(end)}
}

func interval(room int64, checkIn, checkOut string) BookingInterval {
	return BookingInterval{RoomID: room, CheckIn: day(checkIn), CheckOut: day(checkOut)}
}

func mustIndex(t *testing.T, intervals ...BookingInterval) *Index {
	t.Helper()

	idx, err := BuildIndex(intervals)
	require.NoError(t, err)

	return idx
}

func TestBuildIndexSortsStably(t *testing.T) {
	a := BookingInterval{RoomID: 1, CheckIn: day("2024-04-10"), CheckOut: day("2024-04-12")}
	b := BookingInterval{RoomID: 2, CheckIn: day("2024-04-01"), CheckOut: day("2024-04-03")}
	c := BookingInterval{RoomID: 3, CheckIn: day("2024-04-10"), CheckOut: day("2024-04-11")}

	idx := mustIndex(t, a, b, c)

	assert.Equal(t, []BookingInterval{b, a, c}, idx.Intervals())
	assert.Equal(t, 3, idx.Len())
}

func TestBuildIndexRejectsEmptyInterval(t *testing.T) {
	_, err := BuildIndex([]BookingInterval{
		interval(5, "2024-04-10", "2024-04-12"),
		interval(5, "2024-04-15", "2024-04-15"),
	})

	invalid := IsInvalidIntervalError(err)
	require.NotNil(t, invalid)
	assert.Equal(t, day("2024-04-15"), invalid.Interval.CheckIn)

	_, err = BuildIndex([]BookingInterval{interval(5, "2024-04-15", "2024-04-14")})
	assert.NotNil(t, IsInvalidIntervalError(err))
}

func TestBuildIndexDoesNotMutateInput(t *testing.T) {
	input := []BookingInterval{
		interval(5, "2024-04-10", "2024-04-12"),
		interval(5, "2024-04-01", "2024-04-02"),
	}

	mustIndex(t, input...)

	assert.Equal(t, day("2024-04-10"), input[0].CheckIn)
}

func TestIsDayBooked(t *testing.T) {
	idx := mustIndex(t,
		interval(5, "2024-04-10", "2024-04-12"),
		interval(5, "2024-04-20", "2024-04-25"),
	)

	for _, iv := range idx.Intervals() {
		days, err := daterange.EnumerateDays(iv.CheckIn, iv.CheckOut)
		require.NoError(t, err)

		for d := range days {
			assert.True(t, IsDayBooked(idx, d), d.String())
		}

		assert.False(t, IsDayBooked(idx, iv.CheckOut), iv.CheckOut.String())
	}

	assert.False(t, idx.IsDayBooked(day("2024-04-09")))
	assert.False(t, idx.IsDayBooked(day("2024-04-15")))
}

func TestConflictsWithScenarios(t *testing.T) {
	turnover := mustIndex(t, interval(5, "2024-04-10", "2024-04-12"))
	assert.False(t, ConflictsWith(turnover, span("2024-04-12", "2024-04-14")))

	nested := mustIndex(t, interval(5, "2024-04-10", "2024-04-15"))
	assert.True(t, ConflictsWith(nested, span("2024-04-12", "2024-04-13")))

	assert.True(t, nested.ConflictsWith(span("2024-04-01", "2024-04-30")))
	assert.True(t, nested.ConflictsWith(span("2024-04-14", "2024-04-16")))
	assert.False(t, nested.ConflictsWith(span("2024-04-05", "2024-04-10")))
}

func TestConflictsWithLongIntervalHiddenBehindShortOnes(t *testing.T) {
	idx := mustIndex(t,
		interval(5, "2024-01-01", "2024-12-31"),
		interval(5, "2024-02-01", "2024-02-02"),
		interval(5, "2024-03-01", "2024-03-02"),
	)

	assert.True(t, idx.ConflictsWith(span("2024-06-01", "2024-06-03")))
	assert.Equal(t, []BookingInterval{interval(5, "2024-01-01", "2024-12-31")},
		idx.Overlapping(span("2024-06-01", "2024-06-03")))
}

func TestConflictsWithSubIntervalsAndGaps(t *testing.T) {
	var intervals []BookingInterval

	start := day("2024-01-01")

	// 3-night bookings separated by 2-day gaps.
	for i := 0; i < 50; i++ {
		in := start.AddDays(i * 5)
		intervals = append(intervals, BookingInterval{RoomID: 7, CheckIn: in, CheckOut: in.AddDays(3)})
	}

	idx := mustIndex(t, intervals...)

	for _, iv := range intervals {
		for offset := 0; offset < 3; offset++ {
			sub := daterange.Range{Start: iv.CheckIn.AddDays(offset), End: iv.CheckIn.AddDays(offset + 1)}
			assert.True(t, idx.ConflictsWith(sub), sub.String())
		}

		gap := daterange.Range{Start: iv.CheckOut, End: iv.CheckOut.AddDays(2)}
		assert.False(t, idx.ConflictsWith(gap), gap.String())
	}
}

func TestNilAndEmptyIndex(t *testing.T) {
	var nilIdx *Index

	assert.False(t, nilIdx.ConflictsWith(span("2024-04-10", "2024-04-12")))
	assert.False(t, nilIdx.IsDayBooked(day("2024-04-10")))
	assert.Zero(t, nilIdx.Len())

	empty := mustIndex(t)
	assert.False(t, empty.ConflictsWith(span("2024-04-10", "2024-04-12")))
	assert.Nil(t, empty.Overlapping(span("2024-04-10", "2024-04-12")))
}
