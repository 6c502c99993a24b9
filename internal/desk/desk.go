package desk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avstrong/roomdesk/internal/booking"
	"github.com/avstrong/roomdesk/internal/cache"
	"github.com/avstrong/roomdesk/internal/logger"
)

// Gateway is the booking backend, remote or in-process.
type Gateway interface {
	GetRoom(ctx context.Context, roomID int64) (*booking.RoomRecord, error)
	GetRoomBookings(ctx context.Context, roomID int64) ([]booking.BookingRecord, error)
	CreateBooking(ctx context.Context, req *booking.CreateRequest) (*booking.BookingRecord, error)
}

type Cache interface {
	Get(ctx context.Context, roomID int64) (*cache.Snapshot, bool, error)
	Put(ctx context.Context, roomID int64, snapshot *cache.Snapshot) error
	Invalidate(ctx context.Context, roomID int64) error
}

type Config struct {
	L       *logger.Logger
	Gateway Gateway
	Cache   Cache
	// Surcharges apply to rooms whose record has no meal plan table.
	Surcharges map[booking.MealPlan]decimal.Decimal
	Now        func() time.Time
}

// Manager owns the open booking dialogs. Every session carries its own index,
// stay and submission state; nothing is shared between sessions except the
// snapshot cache.
type Manager struct {
	l          *logger.Logger
	gw         Gateway
	cache      Cache
	surcharges map[booking.MealPlan]decimal.Decimal
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func New(conf Config) *Manager {
	now := conf.Now
	if now == nil {
		now = time.Now
	}

	snapshots := conf.Cache
	if snapshots == nil {
		snapshots = cache.Noop{}
	}

	//nolint:exhaustruct
	return &Manager{
		l:          conf.L,
		gw:         conf.Gateway,
		cache:      snapshots,
		surcharges: conf.Surcharges,
		now:        now,
		sessions:   make(map[string]*Session),
	}
}

// Open starts a session for a room, loading its rate and bookings.
func (m *Manager) Open(ctx context.Context, roomID int64) (View, error) {
	s := &Session{id: uuid.NewString(), roomID: roomID} //nolint:exhaustruct

	if err := m.load(ctx, s, false); err != nil {
		return View{}, err
	}

	s.stay.RoomID = roomID

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.l.LogInfo("Session %s opened for room %d with %d bookings", s.id, roomID, s.index.Len())

	return s.view(), nil
}

func (m *Manager) session(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}

	return s, nil
}

func (m *Manager) Get(id string) (View, error) {
	s, err := m.session(id)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.view(), nil
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}

	delete(m.sessions, id)

	return nil
}

// Calendar classifies every day of the month for the session's room.
func (m *Manager) Calendar(_ context.Context, id string, year int, month time.Month, mode booking.ViewMode) ([]booking.DayState, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return booking.ClassifyMonth(s.index, year, month, mode), nil
}

// UpdateStay replaces the session's selection and returns the fresh quote, or
// nil while either date is still missing.
func (m *Manager) UpdateStay(_ context.Context, id string, stay booking.ProposedStay) (*booking.Quote, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stay.RoomID = s.roomID
	stay.MealPlan = booking.NormalizeMealPlan(stay.MealPlan)

	if stay != s.stay {
		// A different stay is a different booking attempt.
		s.idempotencyKey = ""
	}

	s.stay = stay
	s.quote = nil

	quote, err := booking.CalculateQuote(s.rate, stay)
	if booking.IsIncompleteStayError(err) != nil {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("calculate quote: %w", err)
	}

	s.quote = &quote

	return &quote, nil
}

// Refresh drops the cached snapshot and reloads the room, keeping the stay.
func (m *Manager) Refresh(ctx context.Context, id string) (View, error) {
	s, err := m.session(id)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := m.load(ctx, s, true); err != nil {
		return View{}, err
	}

	return s.view(), nil
}

// Submit validates the current stay and, when it passes, sends it to the
// backend. The returned error is reserved for failures of the session itself;
// a rejected or failed booking is reported in Outcome.Err.
//
//nolint:funlen
func (m *Manager) Submit(ctx context.Context, id string) (Outcome, error) {
	s, err := m.session(id)
	if err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submission.State() == booking.StateAccepted {
		return Outcome{}, fmt.Errorf("session %s: %w", id, ErrAlreadyBooked)
	}

	res, err := s.submission.Validate(s.stay, s.index)
	if err != nil {
		return Outcome{}, fmt.Errorf("validate stay: %w", err)
	}

	if !res.OK() {
		return s.outcome(), nil
	}

	quote, err := booking.CalculateQuote(s.rate, s.stay)
	if err != nil {
		return Outcome{}, fmt.Errorf("calculate quote: %w", err)
	}

	s.quote = &quote

	if s.idempotencyKey == "" {
		s.idempotencyKey = uuid.NewString()
	}

	record, outcome := m.gw.CreateBooking(
		booking.WithIdempotencyKey(ctx, s.idempotencyKey),
		booking.NewCreateRequest(s.stay, quote),
	)

	if err := s.submission.Resolve(outcome); err != nil {
		return Outcome{}, fmt.Errorf("resolve submission: %w", err)
	}

	switch s.submission.State() {
	case booking.StateAccepted:
		s.booking = record
		m.l.LogInfo("Session %s booked room %d as booking %d", s.id, s.roomID, record.ID)

		m.invalidate(ctx, s.roomID)
	case booking.StateServerRejected:
		m.l.LogWarnf("Session %s rejected by backend: %v", s.id, s.submission.Err())

		// Someone else may have booked meanwhile; the stay is kept for the user to adjust.
		if err := m.load(ctx, s, true); err != nil {
			m.l.LogWarnf("Could not reload room %d after rejection: %v", s.roomID, err)
		}
	case booking.StateNetworkError:
		m.l.LogWarnf("Session %s could not reach backend: %v", s.id, s.submission.Err())
	}

	return s.outcome(), nil
}

func (m *Manager) invalidate(ctx context.Context, roomID int64) {
	if err := m.cache.Invalidate(ctx, roomID); err != nil {
		m.l.LogWarnf("Could not invalidate snapshot of room %d: %v", roomID, err)
	}
}

// load rebuilds the session's rate and index from a snapshot. With fresh set
// the cache is bypassed and overwritten.
func (m *Manager) load(ctx context.Context, s *Session, fresh bool) error {
	if fresh {
		m.invalidate(ctx, s.roomID)
	}

	snapshot, err := m.snapshot(ctx, s.roomID)
	if err != nil {
		return err
	}

	rate, err := booking.ParseRoomRate(snapshot.Room, m.surcharges)
	if err != nil {
		return fmt.Errorf("parse rate of room %d: %w", s.roomID, err)
	}

	intervals, dropped := booking.ParseIntervals(s.roomID, snapshot.Bookings)
	for _, recErr := range dropped {
		m.l.LogWarnf("Dropped booking record of room %d: %v", s.roomID, recErr)
	}

	index, err := booking.BuildIndex(intervals)
	if err != nil {
		return fmt.Errorf("build index of room %d: %w", s.roomID, err)
	}

	s.room = snapshot.Room
	s.rate = rate
	s.index = index
	s.dropped = len(dropped)
	s.fetchedAt = snapshot.FetchedAt

	return nil
}

func (m *Manager) snapshot(ctx context.Context, roomID int64) (*cache.Snapshot, error) {
	snapshot, ok, err := m.cache.Get(ctx, roomID)
	if err != nil {
		m.l.LogWarnf("Could not read snapshot of room %d from cache: %v", roomID, err)
	}

	if ok {
		return snapshot, nil
	}

	room, err := m.gw.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", roomID, err)
	}

	records, err := m.gw.GetRoomBookings(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get bookings of room %d: %w", roomID, err)
	}

	snapshot = &cache.Snapshot{Room: *room, Bookings: records, FetchedAt: m.now().UTC()}

	if err := m.cache.Put(ctx, roomID, snapshot); err != nil {
		m.l.LogWarnf("Could not cache snapshot of room %d: %v", roomID, err)
	}

	return snapshot, nil
}
