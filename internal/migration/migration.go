package migration

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avstrong/roomdesk/internal/booking"
	"github.com/avstrong/roomdesk/internal/daterange"
	"github.com/avstrong/roomdesk/internal/logger"
)

type storage interface {
	BeginTransaction(ctx context.Context) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	SaveRoom(ctx context.Context, room *booking.RoomRecord) error
	SaveBooking(ctx context.Context, record *booking.BookingRecord) error
}

// MaxSeededBookingID lets the caller start its id generator past the seed.
const MaxSeededBookingID int64 = 3

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)

	return &d
}

func seedRooms() []*booking.RoomRecord {
	return []*booking.RoomRecord{
		{ID: 1, Name: "Standard", Description: "Double bed, city view", PricePerDay: price(1500), Available: true},
		{ID: 2, Name: "Deluxe", Description: "King bed, balcony", PricePerDay: price(2000), Available: true},
		{
			ID:          3,
			Name:        "Suite",
			Description: "Two rooms, sea view",
			PricePerDay: price(4500),
			Available:   true,
			MealPlanSurcharges: map[booking.MealPlan]decimal.Decimal{
				booking.MealPlanHalfBoard: decimal.NewFromInt(1500),
				booking.MealPlanFullBoard: decimal.NewFromInt(2500),
			},
		},
	}
}

// seedBookings places a few stays around today so the calendar has something
// to show whenever the demo starts.
func seedBookings(today daterange.Date) []*booking.BookingRecord {
	span := func(id, roomID int64, from, nights int) *booking.BookingRecord {
		checkIn := today.AddDays(from)

		return &booking.BookingRecord{
			ID:          id,
			RoomID:      roomID,
			ClientName:  "Seed guest",
			ClientEmail: "guest@example.com",
			CheckIn:     checkIn.String(),
			CheckOut:    checkIn.AddDays(nights).String(),
		}
	}

	return []*booking.BookingRecord{
		span(1, 2, 2, 3),
		span(2, 2, 5, 2),
		span(MaxSeededBookingID, 3, 10, 4),
	}
}

func Up(ctx context.Context, l *logger.Logger, storage storage, today daterange.Date) (err error) {
	ctx, err = storage.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if err = storage.RollbackTransaction(ctx); err != nil {
				l.LogErrorf("Could not rollback migration transaction after panic %v", p)
			}

			l.LogInfo("Migration transaction has been roll backed after panic")

			panic(p)
		}

		if err != nil {
			if rbErr := storage.RollbackTransaction(ctx); rbErr != nil {
				l.LogErrorf("Could not rollback migration transaction after error %v", rbErr.Error())
			}

			l.LogInfo("Migration transaction has been roll backed after error")

			return
		}

		if err = storage.CommitTransaction(ctx); err != nil {
			l.LogErrorf("Could not commit migration transaction, err %v", err.Error())

			return
		}

		l.LogInfo("Migration transaction has been committed")
	}()

	for _, room := range seedRooms() {
		if err = storage.SaveRoom(ctx, room); err != nil {
			return fmt.Errorf("save room %d to storage: %w", room.ID, err)
		}
	}

	for _, record := range seedBookings(today) {
		record.RoomName = seedRooms()[record.RoomID-1].Name

		if err = storage.SaveBooking(ctx, record); err != nil {
			return fmt.Errorf("save booking %d to storage: %w", record.ID, err)
		}
	}

	return nil
}
