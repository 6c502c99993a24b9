package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/avstrong/roomdesk/internal/booking"
)

var (
	ErrTransactionIDNotFoundInCtx = errors.New("no transaction id found in ctx")
	ErrTransactionNotFound        = errors.New("transaction not found")
)

type trxKey struct{}

func withTransactionID(ctx context.Context, trxID string) context.Context {
	return context.WithValue(ctx, trxKey{}, trxID)
}

func transactionIDFromContext(ctx context.Context) (string, bool) {
	trxID, ok := ctx.Value(trxKey{}).(string)

	return trxID, ok && trxID != ""
}

// transaction buffers writes until commit; nothing is visible to readers
// before that.
type transaction struct {
	id       string
	rooms    map[int64]*booking.RoomRecord
	bookings map[int64]*booking.BookingRecord
}

func (db *DB) BeginTransaction(ctx context.Context) (context.Context, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	trxID := fmt.Sprintf("trx-%d", db.nextTrxID)
	db.nextTrxID++

	db.transactions[trxID] = &transaction{
		id:       trxID,
		rooms:    make(map[int64]*booking.RoomRecord),
		bookings: make(map[int64]*booking.BookingRecord),
	}

	return withTransactionID(ctx, trxID), nil
}

// trx must be called with db.mu held.
func (db *DB) trx(ctx context.Context) (*transaction, error) {
	trxID, ok := transactionIDFromContext(ctx)
	if !ok {
		return nil, ErrTransactionIDNotFoundInCtx
	}

	trx, exists := db.transactions[trxID]
	if !exists {
		return nil, fmt.Errorf("transaction %s not found: %w", trxID, ErrTransactionNotFound)
	}

	return trx, nil
}

func (db *DB) CommitTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	for id, room := range trx.rooms {
		db.rooms[id] = room
	}

	for id, record := range trx.bookings {
		db.bookings[id] = record
	}

	delete(db.transactions, trx.id)

	return nil
}

func (db *DB) RollbackTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	delete(db.transactions, trx.id)

	return nil
}

func (db *DB) SaveRoom(ctx context.Context, room *booking.RoomRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	copied := *room
	trx.rooms[room.ID] = &copied

	return nil
}

func (db *DB) SaveBooking(ctx context.Context, record *booking.BookingRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	copied := *record
	trx.bookings[record.ID] = &copied

	return nil
}
