package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/avstrong/roomdesk/internal/booking"
	"github.com/avstrong/roomdesk/internal/logger"
	"github.com/avstrong/roomdesk/internal/tracing"
)

const maxErrorBody = 64 << 10

var ErrEmptyBaseURL = errors.New("empty api base url")

type Config struct {
	L       *logger.Logger
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

// Client talks to the hosted hotel API.
type Client struct {
	l      *logger.Logger
	base   *url.URL
	token  string
	http   *http.Client
	cb     *gobreaker.CircuitBreaker
	tracer trace.Tracer
}

func New(conf Config) (*Client, error) {
	if conf.BaseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	base, err := url.Parse(strings.TrimRight(conf.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}

	httpClient := conf.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: conf.Timeout} //nolint:exhaustruct
	}

	return &Client{
		l:      conf.L,
		base:   base,
		token:  conf.Token,
		http:   httpClient,
		cb:     newBreaker("hotel-api", conf.L),
		tracer: tracing.Tracer("remote"),
	}, nil
}

func newBreaker(name string, l *logger.Logger) *gobreaker.CircuitBreaker {
	//nolint:exhaustruct
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     10 * time.Second, //nolint:gomnd
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2 //nolint:gomnd
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.LogWarnf("Circuit breaker %s changed from %s to %s", name, from, to)
		},
		// A 4xx is the backend working as intended.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}

			rej := booking.IsRejectionError(err)

			return rej != nil && rej.StatusCode >= 400 && rej.StatusCode < 500
		},
	})
}

func (c *Client) GetRoom(ctx context.Context, roomID int64) (*booking.RoomRecord, error) {
	path := fmt.Sprintf("hotel/public/rooms/%d/", roomID)

	raw, err := c.do(ctx, "Client.GetRoom", http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var room booking.RoomRecord
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, c.malformed(http.MethodGet, path, err)
	}

	if room.ID == 0 {
		room.ID = roomID
	}

	return &room, nil
}

// GetRoomBookings lists the room's bookings. A record with fields of the wrong
// type comes back flagged instead of failing the whole list.
func (c *Client) GetRoomBookings(ctx context.Context, roomID int64) ([]booking.BookingRecord, error) {
	const path = "hotel/bookings/"

	query := url.Values{"room_id": []string{strconv.FormatInt(roomID, 10)}}

	raw, err := c.do(ctx, "Client.GetRoomBookings", http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}

	records, err := booking.DecodeBookingRecords(raw)
	if err != nil {
		return nil, c.malformed(http.MethodGet, path, err)
	}

	return records, nil
}

type createResponse struct {
	Booking booking.BookingRecord `json:"booking"`
}

// CreateBooking posts a new booking. A 2xx means the backend stored it, so an
// unreadable body still counts as accepted and the returned record is filled
// from the request instead.
func (c *Client) CreateBooking(ctx context.Context, req *booking.CreateRequest) (*booking.BookingRecord, error) {
	const path = "hotel/bookings/"

	raw, err := c.do(ctx, "Client.CreateBooking", http.MethodPost, path, nil, req)
	if err != nil {
		return nil, err
	}

	var resp createResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.l.LogWarnf("Booking of room %d accepted but response is unreadable: %v", req.RoomID, err)

		return partialRecord(req), nil
	}

	return &resp.Booking, nil
}

func partialRecord(req *booking.CreateRequest) *booking.BookingRecord {
	amount := req.AmountPaid

	//nolint:exhaustruct
	return &booking.BookingRecord{
		RoomID:      req.RoomID,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		CheckIn:     req.CheckIn.String(),
		CheckOut:    req.CheckOut.String(),
		TotalAmount: &amount,
		AmountPaid:  &amount,
	}
}

func (c *Client) malformed(method, path string, err error) error {
	c.l.LogWarnf("%s %s returned an unreadable body: %v", method, path, err)

	return &booking.MalformedResponseError{Err: err}
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// do sends one request through the breaker and returns the 2xx body.
//
//nolint:funlen,cyclop
func (c *Client) do(ctx context.Context, spanName, method, path string, query url.Values, in any) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, spanName)
	defer span.End()

	endpoint := c.base.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.url", endpoint.String()))

	var body []byte

	if in != nil {
		var err error

		if body, err = json.Marshal(in); err != nil {
			return nil, fmt.Errorf("encode %s body: %w", spanName, err)
		}
	}

	out, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		req.Header.Set("Accept", "application/json")

		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		if key, ok := booking.IdempotencyKeyFromContext(ctx); ok {
			req.Header.Set("Idempotency-Key", key)
		}

		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, &booking.NetworkError{Err: err}
		}
		defer resp.Body.Close()

		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, rejection(resp)
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &booking.NetworkError{Err: fmt.Errorf("read response: %w", err)}
		}

		return raw, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if booking.IsRejectionError(err) == nil && booking.IsNetworkError(err) == nil {
			// gobreaker.ErrOpenState and friends never reached the server.
			err = &booking.NetworkError{Err: err}
		}

		c.l.LogWarnf("%s %s failed: %v", method, endpoint.Path, err)

		return nil, err
	}

	raw, _ := out.([]byte)

	return raw, nil
}

// rejection reads the backend's {"error": ...} or {"detail": ...} body, falling
// back to the raw text and finally the status line.
func rejection(resp *http.Response) *booking.RejectionError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(raw))

	var parsed errorBody
	if json.Unmarshal(raw, &parsed) == nil {
		switch {
		case parsed.Error != "":
			msg = parsed.Error
		case parsed.Detail != "":
			msg = parsed.Detail
		}
	}

	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &booking.RejectionError{StatusCode: resp.StatusCode, Message: msg}
}
