package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/avstrong/roomdesk/internal/booking"
	"github.com/avstrong/roomdesk/internal/desk"
)

type errorResponse struct {
	Error string `json:"error"`
}

type openSessionRequest struct {
	RoomID int64 `json:"room_id"`
}

type calendarResponse struct {
	Month string             `json:"month"`
	Mode  string             `json:"mode"`
	Days  []booking.DayState `json:"days"`
}

type quoteResponse struct {
	Quote   *booking.Quote `json:"quote"`
	Message string         `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers failures that are not part of a submission outcome.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, desk.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, desk.ErrAlreadyBooked):
		status = http.StatusConflict
	case booking.IsNetworkError(err) != nil, booking.IsMalformedResponseError(err) != nil:
		status = http.StatusBadGateway
	case booking.IsRejectionError(err) != nil:
		status = booking.IsRejectionError(err).StatusCode
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
	}

	if status == http.StatusInternalServerError {
		s.l.LogErrorf("Request failed: %v", err.Error())
		writeJSON(w, status, errorResponse{Error: http.StatusText(status)})

		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func outcomeStatus(out desk.Outcome) int {
	switch out.State {
	case booking.StateAccepted:
		return http.StatusCreated
	case booking.StateNetworkError:
		return http.StatusBadGateway
	}

	switch {
	case booking.IsLocalConflictError(out.Err) != nil:
		return http.StatusConflict
	case booking.IsServerValidationError(out.Err) != nil:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) openSessionHandler(w http.ResponseWriter, r *http.Request) {
	var input openSessionRequest

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.RoomID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "room_id must be a positive integer"})

		return
	}

	view, err := s.desk.Open(r.Context(), input.RoomID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	view, err := s.desk.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) calendarHandler(w http.ResponseWriter, r *http.Request) {
	month := time.Now().UTC()

	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "month must look like YYYY-MM"})

			return
		}

		month = parsed
	}

	mode, err := booking.ParseViewMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	days, err := s.desk.Calendar(r.Context(), mux.Vars(r)["id"], month.Year(), month.Month(), mode)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, calendarResponse{
		Month: month.Format("2006-01"),
		Mode:  mode.String(),
		Days:  days,
	})
}

func (s *Server) stayHandler(w http.ResponseWriter, r *http.Request) {
	var stay booking.ProposedStay

	if err := json.NewDecoder(r.Body).Decode(&stay); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	quote, err := s.desk.UpdateStay(r.Context(), mux.Vars(r)["id"], stay)
	if err != nil {
		s.writeError(w, err)

		return
	}

	resp := quoteResponse{Quote: quote}
	if quote == nil {
		resp.Message = booking.UserMessage(&booking.IncompleteStayError{})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	out, err := s.desk.Submit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, outcomeStatus(out), out)
}

func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	view, err := s.desk.Refresh(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) closeSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.desk.Close(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) livenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addRoutes(r *mux.Router) {
	api := func(h http.HandlerFunc) http.Handler {
		return s.applyMiddlewares(h, s.rateLimitMiddleware(), s.loggerMiddleware(), s.recoverMiddleware())
	}

	r.Handle("/api/sessions/v1", api(s.openSessionHandler)).Methods(http.MethodPost)
	r.Handle("/api/sessions/v1/{id}", api(s.getSessionHandler)).Methods(http.MethodGet)
	r.Handle("/api/sessions/v1/{id}", api(s.closeSessionHandler)).Methods(http.MethodDelete)
	r.Handle("/api/sessions/v1/{id}/calendar", api(s.calendarHandler)).Methods(http.MethodGet)
	r.Handle("/api/sessions/v1/{id}/stay", api(s.stayHandler)).Methods(http.MethodPut)
	r.Handle("/api/sessions/v1/{id}/submit", api(s.submitHandler)).Methods(http.MethodPost)
	r.Handle("/api/sessions/v1/{id}/refresh", api(s.refreshHandler)).Methods(http.MethodPost)

	r.Handle(
		s.conf.LivenessEndpoint,
		s.applyMiddlewares(http.HandlerFunc(s.livenessHandler), s.loggerMiddleware(), s.recoverMiddleware()),
	).Methods(http.MethodGet)
}
