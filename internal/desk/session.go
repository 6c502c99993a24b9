package desk

import (
	"sync"
	"time"

	"github.com/avstrong/roomdesk/internal/booking"
)

type Session struct {
	mu sync.Mutex

	id        string
	roomID    int64
	room      booking.RoomRecord
	rate      booking.RoomRate
	index     *booking.Index
	dropped   int
	fetchedAt time.Time

	stay           booking.ProposedStay
	quote          *booking.Quote
	submission     booking.Submission
	idempotencyKey string
	booking        *booking.BookingRecord
}

// View is a read-only copy of a session.
type View struct {
	ID        string                  `json:"id"`
	Room      booking.RoomRecord      `json:"room"`
	Rate      booking.RoomRate        `json:"rate"`
	Bookings  int                     `json:"bookings"`
	Dropped   int                     `json:"dropped_records"`
	FetchedAt time.Time               `json:"fetched_at"`
	Stay      booking.ProposedStay    `json:"stay"`
	Quote     *booking.Quote          `json:"quote"`
	State     booking.SubmissionState `json:"state"`
	Message   string                  `json:"message,omitempty"`
	Booking   *booking.BookingRecord  `json:"booking,omitempty"`
}

// Outcome is the result of one submission attempt.
type Outcome struct {
	State     booking.SubmissionState `json:"state"`
	Err       error                   `json:"-"`
	Message   string                  `json:"message,omitempty"`
	Retryable bool                    `json:"retryable"`
	Quote     *booking.Quote          `json:"quote,omitempty"`
	Booking   *booking.BookingRecord  `json:"booking,omitempty"`
}

// view must be called with s.mu held.
func (s *Session) view() View {
	return View{
		ID:        s.id,
		Room:      s.room,
		Rate:      s.rate,
		Bookings:  s.index.Len(),
		Dropped:   s.dropped,
		FetchedAt: s.fetchedAt,
		Stay:      s.stay,
		Quote:     s.quote,
		State:     s.submission.State(),
		Message:   booking.UserMessage(s.submission.Err()),
		Booking:   s.booking,
	}
}

// outcome must be called with s.mu held.
func (s *Session) outcome() Outcome {
	err := s.submission.Err()

	return Outcome{
		State:     s.submission.State(),
		Err:       err,
		Message:   booking.UserMessage(err),
		Retryable: booking.IsRetryable(err),
		Quote:     s.quote,
		Booking:   s.booking,
	}
}
