package memory

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/avstrong/roomdesk/internal/booking"
	"github.com/avstrong/roomdesk/internal/daterange"
	"github.com/avstrong/roomdesk/internal/logger"
)

// Messages mirror what the hosted backend answers so the desk maps them the
// same way.
const (
	msgRoomNotFound  = "Room not found"
	msgAlreadyBooked = "❌ These dates are already booked. Please choose different dates."
	msgInvertedRange = "❌ Check-out date must be after check-in date."
)

type idGenerator interface {
	NextID(ctx context.Context) (int64, error)
}

type Config struct {
	L     *logger.Logger
	IDGen idGenerator
	// Surcharges apply to rooms without their own meal plan table.
	Surcharges map[booking.MealPlan]decimal.Decimal
}

// DB is an in-process system of record for rooms and bookings. It performs
// the authoritative overlap and payment checks atomically, like the hosted
// booking API does.
type DB struct {
	mu              sync.Mutex
	l               *logger.Logger
	idGen           idGenerator
	surcharges      map[booking.MealPlan]decimal.Decimal
	rooms           map[int64]*booking.RoomRecord
	bookings        map[int64]*booking.BookingRecord
	transactions    map[string]*transaction
	nextTrxID       int64
	idempotencyKeys map[string]*booking.BookingRecord
}

func New(conf Config) *DB {
	//nolint:exhaustruct
	return &DB{
		l:               conf.L,
		idGen:           conf.IDGen,
		surcharges:      conf.Surcharges,
		rooms:           make(map[int64]*booking.RoomRecord),
		bookings:        make(map[int64]*booking.BookingRecord),
		transactions:    make(map[string]*transaction),
		idempotencyKeys: make(map[string]*booking.BookingRecord),
	}
}

func reject(status int, format string, v ...any) error {
	return &booking.RejectionError{StatusCode: status, Message: fmt.Sprintf(format, v...)}
}

func (db *DB) GetRoom(_ context.Context, roomID int64) (*booking.RoomRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	room, ok := db.rooms[roomID]
	if !ok {
		return nil, reject(http.StatusNotFound, msgRoomNotFound)
	}

	copied := *room

	return &copied, nil
}

func (db *DB) GetRoomBookings(_ context.Context, roomID int64) ([]booking.BookingRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.roomBookings(roomID), nil
}

// roomBookings must be called with db.mu held.
func (db *DB) roomBookings(roomID int64) []booking.BookingRecord {
	var res []booking.BookingRecord

	for _, record := range db.bookings {
		if record.RoomID == roomID {
			res = append(res, *record)
		}
	}

	slices.SortFunc(res, func(a, b booking.BookingRecord) int {
		if a.CheckIn != b.CheckIn {
			if a.CheckIn < b.CheckIn {
				return -1
			}

			return 1
		}

		return int(a.ID - b.ID)
	})

	return res
}

//nolint:funlen,cyclop // it's linear simple code
func (db *DB) CreateBooking(ctx context.Context, req *booking.CreateRequest) (*booking.BookingRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	key, hasKey := booking.IdempotencyKeyFromContext(ctx)
	if hasKey {
		if existing, ok := db.idempotencyKeys[key]; ok {
			db.l.LogInfo("Replaying booking %d for idempotency key %s", existing.ID, key)

			copied := *existing

			return &copied, nil
		}
	}

	room, ok := db.rooms[req.RoomID]
	if !ok {
		return nil, reject(http.StatusNotFound, msgRoomNotFound)
	}

	if !req.CheckOut.After(req.CheckIn) {
		return nil, reject(http.StatusBadRequest, msgInvertedRange)
	}

	requested := req.Range()

	intervals, _ := booking.ParseIntervals(room.ID, db.roomBookings(room.ID))
	for _, existing := range intervals {
		if daterange.Overlaps(existing.Range(), requested) {
			return nil, reject(http.StatusBadRequest, msgAlreadyBooked)
		}
	}

	rate, err := booking.ParseRoomRate(*room, db.surcharges)
	if err != nil {
		return nil, fmt.Errorf("rate of room %d: %w", room.ID, err)
	}

	quote, err := booking.CalculateQuote(rate, req.ProposedStay)
	if err != nil {
		return nil, reject(http.StatusBadRequest, "%v", err)
	}

	if !req.AmountPaid.Equal(quote.GrandTotal) {
		return nil, reject(http.StatusBadRequest, "❌ Payment mismatch. Expected %s, got %s.",
			quote.GrandTotal.StringFixed(2), req.AmountPaid.StringFixed(2)) //nolint:gomnd
	}

	id, err := db.idGen.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next booking id: %w", err)
	}

	total := quote.GrandTotal
	paid := req.AmountPaid

	record := &booking.BookingRecord{
		ID:            id,
		RoomID:        room.ID,
		RoomName:      room.Name,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		CheckIn:       req.CheckIn.String(),
		CheckOut:      req.CheckOut.String(),
		TotalAmount:   &total,
		AmountPaid:    &paid,
		PaymentStatus: booking.PaymentStatusOf(total, &paid),
	}

	db.bookings[id] = record

	if hasKey {
		db.idempotencyKeys[key] = record
	}

	db.l.LogInfo("Booking %d stored for room %d %v", id, room.ID, requested)

	copied := *record

	return &copied, nil
}
