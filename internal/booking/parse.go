package booking

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avstrong/roomdesk/internal/daterange"
)

// DecodeBookingRecords decodes a JSON array of bookings element by element.
// An element with fields of the wrong type is kept with DecodeError set, so a
// single bad record never costs the rest of the list. Only a body that is not
// an array at all is an error.
func DecodeBookingRecords(raw []byte) ([]BookingRecord, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("decode booking list: %w", err)
	}

	records := make([]BookingRecord, 0, len(elems))

	for _, elem := range elems {
		var record BookingRecord
		if err := json.Unmarshal(elem, &record); err != nil {
			var ref struct {
				ID int64 `json:"id"`
			}

			_ = json.Unmarshal(elem, &ref)

			record = BookingRecord{ID: ref.ID, DecodeError: err.Error()} //nolint:exhaustruct
		}

		records = append(records, record)
	}

	return records, nil
}

// ParseIntervals decodes a room's fetched bookings. A bad record is dropped
// and reported; it never prevents the rest from being used.
func ParseIntervals(roomID int64, records []BookingRecord) ([]BookingInterval, []*RecordError) {
	intervals := make([]BookingInterval, 0, len(records))

	var dropped []*RecordError

	for pos, record := range records {
		interval, err := parseInterval(roomID, record)
		if err != nil {
			dropped = append(dropped, &RecordError{Position: pos, ID: record.ID, Err: err})

			continue
		}

		intervals = append(intervals, interval)
	}

	return intervals, dropped
}

func parseInterval(roomID int64, record BookingRecord) (BookingInterval, error) {
	if record.DecodeError != "" {
		return BookingInterval{}, fmt.Errorf("%s: %w", record.DecodeError, ErrMalformedRecord)
	}

	if record.RoomID != 0 && record.RoomID != roomID {
		return BookingInterval{}, fmt.Errorf("room %d: %w", record.RoomID, ErrForeignRoom)
	}

	checkIn, err := daterange.Parse(record.CheckIn)
	if err != nil {
		return BookingInterval{}, fmt.Errorf("check_in: %w", err)
	}

	checkOut, err := daterange.Parse(record.CheckOut)
	if err != nil {
		return BookingInterval{}, fmt.Errorf("check_out: %w", err)
	}

	interval := BookingInterval{RoomID: roomID, CheckIn: checkIn, CheckOut: checkOut}
	if !checkOut.After(checkIn) {
		return BookingInterval{}, &InvalidIntervalError{Interval: interval}
	}

	return interval, nil
}

// ParseRoomRate maps a room record onto its rate. fallback is used when the
// record carries no meal plan surcharges of its own.
func ParseRoomRate(record RoomRecord, fallback map[MealPlan]decimal.Decimal) (RoomRate, error) {
	if record.ID <= 0 {
		return RoomRate{}, ErrRoomIDMissing
	}

	if record.PricePerDay == nil {
		return RoomRate{}, fmt.Errorf("room %d: %w", record.ID, ErrRoomPriceMissing)
	}

	if record.PricePerDay.IsNegative() {
		return RoomRate{}, fmt.Errorf("room %d price_per_day: %w", record.ID, ErrNegativeAmount)
	}

	source := record.MealPlanSurcharges
	if len(source) == 0 {
		source = fallback
	}

	surcharges := make(map[MealPlan]decimal.Decimal, len(source))

	for plan, perDay := range source {
		if perDay.IsNegative() {
			return RoomRate{}, fmt.Errorf("room %d surcharge %q: %w", record.ID, plan, ErrNegativeAmount)
		}

		surcharges[NormalizeMealPlan(plan)] = perDay
	}

	return RoomRate{
		RoomID:            record.ID,
		PricePerDay:       *record.PricePerDay,
		MealPlanSurcharge: surcharges,
	}, nil
}
