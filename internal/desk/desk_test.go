package desk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/roomdesk/internal/booking"
	"github.com/avstrong/roomdesk/internal/cache"
	"github.com/avstrong/roomdesk/internal/daterange"
	"github.com/avstrong/roomdesk/internal/idgen/simple"
	"github.com/avstrong/roomdesk/internal/logger"
	"github.com/avstrong/roomdesk/internal/storage/memory"
)

var errUnreachable = errors.New("connection refused")

func newBackend(t *testing.T) *memory.DB {
	t.Helper()

	db := memory.New(memory.Config{
		L:     logger.Nop(),
		IDGen: simple.New(100),
		Surcharges: map[booking.MealPlan]decimal.Decimal{
			booking.MealPlanHalfBoard: decimal.NewFromInt(1000),
			booking.MealPlanFullBoard: decimal.NewFromInt(2000),
		},
	})

	price := decimal.NewFromInt(2000)

	ctx, err := db.BeginTransaction(context.Background())
	require.NoError(t, err)
	require.NoError(t, db.SaveRoom(ctx, &booking.RoomRecord{ID: 5, Name: "Deluxe", PricePerDay: &price, Available: true}))
	require.NoError(t, db.SaveBooking(ctx, &booking.BookingRecord{ID: 1, RoomID: 5, CheckIn: "2024-04-10", CheckOut: "2024-04-12"}))
	require.NoError(t, db.SaveBooking(ctx, &booking.BookingRecord{ID: 2, RoomID: 5, CheckIn: "broken", CheckOut: "2024-04-12"}))
	require.NoError(t, db.CommitTransaction(ctx))

	return db
}

func newManager(gw Gateway, snapshots Cache) *Manager {
	return New(Config{
		L:       logger.Nop(),
		Gateway: gw,
		Cache:   snapshots,
		Surcharges: map[booking.MealPlan]decimal.Decimal{
			booking.MealPlanHalfBoard: decimal.NewFromInt(1000),
			booking.MealPlanFullBoard: decimal.NewFromInt(2000),
		},
	})
}

func stay(checkIn, checkOut string) booking.ProposedStay {
	return booking.ProposedStay{
		RoomID:      5,
		ClientName:  "Ann",
		ClientEmail: "ann@example.com",
		CheckIn:     daterange.MustParse(checkIn),
		CheckOut:    daterange.MustParse(checkOut),
		MealPlan:    booking.MealPlanHalfBoard,
	}
}

// flakyGateway fails the first CreateBooking calls before delegating.
type flakyGateway struct {
	*memory.DB
	failures int
	keys     []string
}

func (g *flakyGateway) CreateBooking(ctx context.Context, req *booking.CreateRequest) (*booking.BookingRecord, error) {
	key, _ := booking.IdempotencyKeyFromContext(ctx)
	g.keys = append(g.keys, key)

	if g.failures > 0 {
		g.failures--

		return nil, errUnreachable
	}

	return g.DB.CreateBooking(ctx, req) //nolint:wrapcheck
}

func TestOpenDropsBadRecords(t *testing.T) {
	m := newManager(newBackend(t), cache.NewLocal(time.Minute))

	view, err := m.Open(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Bookings)
	assert.Equal(t, 1, view.Dropped)
	assert.Equal(t, booking.StateIdle, view.State)
	assert.Equal(t, int64(5), view.Stay.RoomID)

	_, err = m.Open(context.Background(), 6)
	assert.NotNil(t, booking.IsRejectionError(err))
}

func TestOpenDropsUndecodableRecords(t *testing.T) {
	db := newBackend(t)

	ctx, err := db.BeginTransaction(context.Background())
	require.NoError(t, err)
	require.NoError(t, db.SaveBooking(ctx, &booking.BookingRecord{ID: 3, RoomID: 5, DecodeError: "json: cannot unmarshal number into Go struct field .check_in of type string"}))
	require.NoError(t, db.CommitTransaction(ctx))

	m := newManager(db, cache.NewLocal(time.Minute))

	view, err := m.Open(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Bookings)
	assert.Equal(t, 2, view.Dropped)
}

func TestCalendar(t *testing.T) {
	m := newManager(newBackend(t), nil)

	view, err := m.Open(context.Background(), 5)
	require.NoError(t, err)

	days, err := m.Calendar(context.Background(), view.ID, 2024, time.April, booking.ViewAll)
	require.NoError(t, err)
	require.Len(t, days, 30)
	assert.Equal(t, booking.Booked, days[9].Class)
	assert.Equal(t, booking.Booked, days[10].Class)
	assert.Equal(t, booking.Available, days[11].Class)

	_, err = m.Calendar(context.Background(), "missing", 2024, time.April, booking.ViewAll)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUpdateStay(t *testing.T) {
	m := newManager(newBackend(t), nil)

	view, err := m.Open(context.Background(), 5)
	require.NoError(t, err)

	quote, err := m.UpdateStay(context.Background(), view.ID, booking.ProposedStay{CheckIn: daterange.MustParse("2024-04-12")})
	require.NoError(t, err)
	assert.Nil(t, quote)

	quote, err = m.UpdateStay(context.Background(), view.ID, stay("2024-04-12", "2024-04-15"))
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.True(t, quote.GrandTotal.Equal(decimal.NewFromInt(9000)))
	assert.Equal(t, "3 day(s) × 2000 + Half Board = 9000", quote.BreakdownText)
}

func TestSubmitAccepted(t *testing.T) {
	snapshots := cache.NewLocal(time.Minute)
	m := newManager(newBackend(t), snapshots)

	view, err := m.Open(context.Background(), 5)
	require.NoError(t, err)

	_, err = m.UpdateStay(context.Background(), view.ID, stay("2024-04-12", "2024-04-14"))
	require.NoError(t, err)

	out, err := m.Submit(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateAccepted, out.State)
	require.NotNil(t, out.Booking)
	assert.Equal(t, int64(101), out.Booking.ID)

	_, ok, _ := snapshots.Get(context.Background(), 5)
	assert.False(t, ok)

	_, err = m.Submit(context.Background(), view.ID)
	assert.ErrorIs(t, err, ErrAlreadyBooked)
}

func TestSubmitLocalRejection(t *testing.T) {
	m := newManager(newBackend(t), nil)

	view, err := m.Open(context.Background(), 5)
	require.NoError(t, err)

	_, err = m.UpdateStay(context.Background(), view.ID, stay("2024-04-11", "2024-04-13"))
	require.NoError(t, err)

	out, err := m.Submit(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateRejected, out.State)
	assert.NotNil(t, booking.IsLocalConflictError(out.Err))
	assert.False(t, out.Retryable)
}

func TestSubmitServerConflictReloads(t *testing.T) {
	db := newBackend(t)
	snapshots := cache.NewLocal(time.Minute)
	m := newManager(db, snapshots)

	view, err := m.Open(context.Background(), 5)
	require.NoError(t, err)

	// Another desk takes the dates after this session loaded the room.
	_, err = db.CreateBooking(context.Background(), &booking.CreateRequest{
		ProposedStay: stay("2024-04-20", "2024-04-22"),
		AmountPaid:   decimal.NewFromInt(6000),
	})
	require.NoError(t, err)

	_, err = m.UpdateStay(context.Background(), view.ID, stay("2024-04-21", "2024-04-23"))
	require.NoError(t, err)

	out, err := m.Submit(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateServerRejected, out.State)

	conflict := booking.IsLocalConflictError(out.Err)
	require.NotNil(t, conflict)
	assert.True(t, conflict.Server)

	got, err := m.Get(view.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Bookings)
	assert.Equal(t, daterange.MustParse("2024-04-21"), got.Stay.CheckIn)
}

func TestSubmitNetworkErrorRetriesWithSameKey(t *testing.T) {
	gw := &flakyGateway{DB: newBackend(t), failures: 1}
	m := newManager(gw, nil)

	view, err := m.Open(context.Background(), 5)
	require.NoError(t, err)

	_, err = m.UpdateStay(context.Background(), view.ID, stay("2024-04-12", "2024-04-14"))
	require.NoError(t, err)

	out, err := m.Submit(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateNetworkError, out.State)
	assert.True(t, out.Retryable)

	out, err = m.Submit(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateAccepted, out.State)

	require.Len(t, gw.keys, 2)
	assert.NotEmpty(t, gw.keys[0])
	assert.Equal(t, gw.keys[0], gw.keys[1])
}

func TestRefreshAndClose(t *testing.T) {
	db := newBackend(t)
	m := newManager(db, cache.NewLocal(time.Hour))

	view, err := m.Open(context.Background(), 5)
	require.NoError(t, err)

	_, err = db.CreateBooking(context.Background(), &booking.CreateRequest{
		ProposedStay: stay("2024-05-01", "2024-05-02"),
		AmountPaid:   decimal.NewFromInt(3000),
	})
	require.NoError(t, err)

	view, err = m.Refresh(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Bookings)

	require.NoError(t, m.Close(view.ID))
	assert.ErrorIs(t, m.Close(view.ID), ErrSessionNotFound)

	_, err = m.Get(view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
