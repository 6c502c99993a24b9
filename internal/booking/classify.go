package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/avstrong/roomdesk/internal/daterange"
)

type ViewMode int

const (
	ViewAll ViewMode = iota
	ViewAvailableOnly
	ViewBookedOnly
)

func ParseViewMode(s string) (ViewMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ViewAll, nil
	case "available", "available_only":
		return ViewAvailableOnly, nil
	case "booked", "booked_only":
		return ViewBookedOnly, nil
	default:
		return ViewAll, fmt.Errorf("unknown view mode %q", s) //nolint:goerr113
	}
}

func (m ViewMode) String() string {
	switch m {
	case ViewAvailableOnly:
		return "available"
	case ViewBookedOnly:
		return "booked"
	default:
		return "all"
	}
}

type DayClassification int

const (
	Available DayClassification = iota
	Booked
	FilteredOut
)

func (c DayClassification) String() string {
	switch c {
	case Booked:
		return "booked"
	case FilteredOut:
		return "filtered_out"
	default:
		return "available"
	}
}

func (c DayClassification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// DayState is one calendar tile.
type DayState struct {
	Date       daterange.Date    `json:"date"`
	Class      DayClassification `json:"class"`
	Selectable bool              `json:"selectable"`
}

func Classify(x *Index, day daterange.Date, mode ViewMode) DayClassification {
	booked := x.IsDayBooked(day)

	switch {
	case booked && mode == ViewAvailableOnly:
		return FilteredOut
	case !booked && mode == ViewBookedOnly:
		return FilteredOut
	case booked:
		return Booked
	default:
		return Available
	}
}

// Selectable reports whether a tile may be clicked. Booked tiles can only be
// inspected in the booked-only view, never picked for a new stay.
func Selectable(x *Index, day daterange.Date, mode ViewMode) bool {
	switch Classify(x, day, mode) {
	case Available:
		return true
	case Booked:
		return mode == ViewBookedOnly
	default:
		return false
	}
}

func ClassifyMonth(x *Index, year int, month time.Month, mode ViewMode) []DayState {
	first := daterange.New(year, month, 1)
	next := daterange.New(year, month+1, 1)

	days, err := daterange.EnumerateDays(first, next)
	if err != nil {
		return nil
	}

	res := make([]DayState, 0, daterange.DaysBetween(first, next))

	for day := range days {
		res = append(res, DayState{
			Date:       day,
			Class:      Classify(x, day, mode),
			Selectable: Selectable(x, day, mode),
		})
	}

	return res
}
