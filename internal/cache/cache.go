package cache

import (
	"context"
	"sync"
	"time"

	"github.com/avstrong/roomdesk/internal/booking"
)

// Snapshot is one room and its bookings as fetched from the backend.
type Snapshot struct {
	Room      booking.RoomRecord      `json:"room"`
	Bookings  []booking.BookingRecord `json:"bookings"`
	FetchedAt time.Time               `json:"fetched_at"`
}

type entry struct {
	snapshot  *Snapshot
	expiresAt time.Time
}

// Local keeps snapshots in process memory.
type Local struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]entry
}

func NewLocal(ttl time.Duration) *Local {
	return &Local{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]entry),
	}
}

func (c *Local) Get(_ context.Context, roomID int64) (*Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[roomID]
	if !ok {
		return nil, false, nil
	}

	if c.ttl > 0 && c.now().After(e.expiresAt) {
		delete(c.entries, roomID)

		return nil, false, nil
	}

	return e.snapshot, true, nil
}

func (c *Local) Put(_ context.Context, roomID int64, snapshot *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[roomID] = entry{snapshot: snapshot, expiresAt: c.now().Add(c.ttl)}

	return nil
}

func (c *Local) Invalidate(_ context.Context, roomID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, roomID)

	return nil
}

// Noop never stores anything; every read goes to the backend.
type Noop struct{}

func (Noop) Get(context.Context, int64) (*Snapshot, bool, error) { return nil, false, nil }
func (Noop) Put(context.Context, int64, *Snapshot) error         { return nil }
func (Noop) Invalidate(context.Context, int64) error             { return nil }
