package booking

import (
	"slices"
	"sort"

	"github.com/avstrong/roomdesk/internal/daterange"
)

// Index answers overlap queries against one room's bookings. Intervals are
// kept sorted by check-in; maxEnd[i] is the latest check-out among
// intervals[0..i], so a query needs one binary search.
type Index struct {
	intervals []BookingInterval
	maxEnd    []daterange.Date
}

func BuildIndex(intervals []BookingInterval) (*Index, error) {
	for _, interval := range intervals {
		if !interval.CheckOut.After(interval.CheckIn) {
			return nil, &InvalidIntervalError{Interval: interval}
		}
	}

	sorted := slices.Clone(intervals)
	slices.SortStableFunc(sorted, func(a, b BookingInterval) int {
		return a.CheckIn.Compare(b.CheckIn)
	})

	maxEnd := make([]daterange.Date, len(sorted))

	for i, interval := range sorted {
		maxEnd[i] = interval.CheckOut
		if i > 0 && maxEnd[i-1].After(interval.CheckOut) {
			maxEnd[i] = maxEnd[i-1]
		}
	}

	return &Index{intervals: sorted, maxEnd: maxEnd}, nil
}

func (x *Index) Len() int {
	if x == nil {
		return 0
	}

	return len(x.intervals)
}

// Intervals returns the indexed intervals in check-in order.
func (x *Index) Intervals() []BookingInterval {
	if x == nil {
		return nil
	}

	return slices.Clone(x.intervals)
}

// startingBefore is the number of intervals whose check-in is before end.
func (x *Index) startingBefore(end daterange.Date) int {
	return sort.Search(len(x.intervals), func(i int) bool {
		return !x.intervals[i].CheckIn.Before(end)
	})
}

func (x *Index) ConflictsWith(r daterange.Range) bool {
	if x.Len() == 0 {
		return false
	}

	k := x.startingBefore(r.End)
	if k == 0 {
		return false
	}

	return x.maxEnd[k-1].After(r.Start)
}

func (x *Index) IsDayBooked(day daterange.Date) bool {
	return x.ConflictsWith(daterange.Range{Start: day, End: day.AddDays(1)})
}

// Overlapping lists the intervals that overlap r, in check-in order.
func (x *Index) Overlapping(r daterange.Range) []BookingInterval {
	if !x.ConflictsWith(r) {
		return nil
	}

	var res []BookingInterval

	for _, interval := range x.intervals[:x.startingBefore(r.End)] {
		if daterange.Overlaps(interval.Range(), r) {
			res = append(res, interval)
		}
	}

	return res
}

func IsDayBooked(x *Index, day daterange.Date) bool {
	return x.IsDayBooked(day)
}

func ConflictsWith(x *Index, r daterange.Range) bool {
	return x.ConflictsWith(r)
}
