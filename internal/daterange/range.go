package daterange

import "iter"

// Range is the half-open interval [Start, End).
type Range struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func NewRange(start, end Date) (Range, error) {
	if !end.After(start) {
		return Range{}, &InvalidRangeError{Start: start, End: end}
	}

	return Range{Start: start, End: end}, nil
}

func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && d.Before(r.End)
}

func (r Range) Days() int {
	return DaysBetween(r.Start, r.End)
}

func (r Range) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + ")"
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns b - a in calendar days. Both dates sit at UTC midnight,
// so the difference in Unix seconds is an exact multiple of a day and does not
// overflow for spans longer than a time.Duration can hold.
func DaysBetween(a, b Date) int {
	return int((b.Time().Unix() - a.Time().Unix()) / secondsPerDay)
}

// Overlaps reports whether two half-open ranges intersect. Ranges that only
// touch (a.End == b.Start) do not overlap.
func Overlaps(a, b Range) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// EnumerateDays yields every date in [start, endExclusive). The sequence can
// be ranged over any number of times.
func EnumerateDays(start, endExclusive Date) (iter.Seq[Date], error) {
	if !endExclusive.After(start) {
		return nil, &InvalidRangeError{Start: start, End: endExclusive}
	}

	return func(yield func(Date) bool) {
		for d := start; d.Before(endExclusive); d = d.AddDays(1) {
			if !yield(d) {
				return
			}
		}
	}, nil
}
