package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/roomdesk/internal/booking"
	"github.com/avstrong/roomdesk/internal/desk"
	"github.com/avstrong/roomdesk/internal/idgen/simple"
	"github.com/avstrong/roomdesk/internal/logger"
	"github.com/avstrong/roomdesk/internal/storage/memory"
)

func newServer(t *testing.T, perMinute int) http.Handler {
	t.Helper()

	db := memory.New(memory.Config{L: logger.Nop(), IDGen: simple.New(0)})
	price := decimal.NewFromInt(2000)

	ctx, err := db.BeginTransaction(context.Background())
	require.NoError(t, err)
	require.NoError(t, db.SaveRoom(ctx, &booking.RoomRecord{ID: 5, Name: "Deluxe", PricePerDay: &price}))
	require.NoError(t, db.SaveBooking(ctx, &booking.BookingRecord{ID: 90, RoomID: 5, CheckIn: "2024-04-10", CheckOut: "2024-04-12"}))
	require.NoError(t, db.CommitTransaction(ctx))

	manager := desk.New(desk.Config{L: logger.Nop(), Gateway: db})

	srv, err := New(context.Background(), Conf{
		L:                logger.Nop(),
		Host:             "localhost",
		Port:             "0",
		LivenessEndpoint: "/liveness",
		RateLimitPerMin:  perMinute,
		RateLimitBurst:   2,
	}, manager)
	require.NoError(t, err)

	return srv.Srv().Handler
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func openSession(t *testing.T, h http.Handler) string {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/sessions/v1", `{"room_id":5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view struct {
		ID       string `json:"id"`
		Bookings int    `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 1, view.Bookings)

	return view.ID
}

func TestLiveness(t *testing.T) {
	rec := do(t, newServer(t, 0), http.MethodGet, "/liveness", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestOpenSession(t *testing.T) {
	h := newServer(t, 0)

	openSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/v1", `{"room_id":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/sessions/v1", `{"room_id":6}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCalendar(t *testing.T) {
	h := newServer(t, 0)
	id := openSession(t, h)

	rec := do(t, h, http.MethodGet, "/api/sessions/v1/"+id+"/calendar?month=2024-04&mode=booked", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Mode string `json:"mode"`
		Days []struct {
			Date       string `json:"date"`
			Class      string `json:"class"`
			Selectable bool   `json:"selectable"`
		} `json:"days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "booked", resp.Mode)
	require.Len(t, resp.Days, 30)
	assert.Equal(t, "2024-04-10", resp.Days[9].Date)
	assert.Equal(t, "booked", resp.Days[9].Class)
	assert.Equal(t, "filtered_out", resp.Days[0].Class)

	rec = do(t, h, http.MethodGet, "/api/sessions/v1/"+id+"/calendar?month=April", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sessions/v1/"+id+"/calendar?mode=weird", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sessions/v1/missing/calendar", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStayAndSubmit(t *testing.T) {
	h := newServer(t, 0)
	id := openSession(t, h)

	rec := do(t, h, http.MethodPut, "/api/sessions/v1/"+id+"/stay", `{"check_in":"2024-04-12"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"quote":null`)

	rec = do(t, h, http.MethodPost, "/api/sessions/v1/"+id+"/submit", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := `{"client_name":"Ann","client_email":"ann@example.com","check_in":"2024-04-12","check_out":"2024-04-14"}`
	rec = do(t, h, http.MethodPut, "/api/sessions/v1/"+id+"/stay", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2 day(s) × 2000 = 4000")

	rec = do(t, h, http.MethodPost, "/api/sessions/v1/"+id+"/submit", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"state":"accepted"`)

	rec = do(t, h, http.MethodPost, "/api/sessions/v1/"+id+"/submit", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitConflict(t *testing.T) {
	h := newServer(t, 0)
	id := openSession(t, h)

	body := `{"client_name":"Ann","client_email":"ann@example.com","check_in":"2024-04-11","check_out":"2024-04-13"}`
	rec := do(t, h, http.MethodPut, "/api/sessions/v1/"+id+"/stay", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/sessions/v1/"+id+"/submit", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already booked")
}

func TestRefreshAndClose(t *testing.T) {
	h := newServer(t, 0)
	id := openSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/v1/"+id+"/refresh", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/sessions/v1/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sessions/v1/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := newServer(t, 1)

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, do(t, h, http.MethodGet, "/api/sessions/v1/missing", "").Code)
	}

	assert.Equal(t, []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}, codes)
}

func TestOutcomeStatus(t *testing.T) {
	cases := []struct {
		out  desk.Outcome
		want int
	}{
		{out: desk.Outcome{State: booking.StateAccepted}, want: http.StatusCreated},
		{out: desk.Outcome{State: booking.StateNetworkError}, want: http.StatusBadGateway},
		{out: desk.Outcome{State: booking.StateRejected, Err: &booking.MissingFieldError{Field: "client_name"}}, want: http.StatusBadRequest},
		{out: desk.Outcome{State: booking.StateRejected, Err: &booking.LocalConflictError{}}, want: http.StatusConflict},
		{out: desk.Outcome{State: booking.StateServerRejected, Err: &booking.LocalConflictError{Server: true}}, want: http.StatusConflict},
		{out: desk.Outcome{State: booking.StateServerRejected, Err: &booking.ServerValidationError{Message: "x"}}, want: http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, outcomeStatus(tc.out), tc.out.State.String())
	}
}

func TestWriteError(t *testing.T) {
	s := &Server{l: logger.Nop()} //nolint:exhaustruct

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "session", err: fmt.Errorf("session x: %w", desk.ErrSessionNotFound), want: http.StatusNotFound},
		{name: "booked", err: desk.ErrAlreadyBooked, want: http.StatusConflict},
		{name: "network", err: &booking.NetworkError{Err: errors.New("refused")}, want: http.StatusBadGateway},
		{name: "malformed", err: fmt.Errorf("get room 5: %w", &booking.MalformedResponseError{Err: errors.New("invalid character")}), want: http.StatusBadGateway},
		{name: "not found", err: &booking.RejectionError{StatusCode: http.StatusNotFound, Message: "Not found."}, want: http.StatusNotFound},
		{name: "upstream 500", err: &booking.RejectionError{StatusCode: http.StatusInternalServerError}, want: http.StatusBadGateway},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.writeError(rec, tc.err)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
