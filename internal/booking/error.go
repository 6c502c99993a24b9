package booking

import (
	"errors"
	"fmt"

	"github.com/avstrong/roomdesk/internal/daterange"
)

var (
	ErrInvalidTransition = errors.New("invalid submission transition")
	ErrForeignRoom       = errors.New("record belongs to another room")
	ErrRoomPriceMissing  = errors.New("room has no price per day")
	ErrNegativeAmount    = errors.New("amount must not be negative")
	ErrRoomIDMissing     = errors.New("room id missing")
	ErrMalformedRecord   = errors.New("malformed booking record")
)

type InvalidIntervalError struct {
	Interval BookingInterval
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval for room %d: check-out %v must be after check-in %v",
		e.Interval.RoomID, e.Interval.CheckOut, e.Interval.CheckIn)
}

func IsInvalidIntervalError(err error) *InvalidIntervalError {
	var target *InvalidIntervalError

	if errors.As(err, &target) {
		return target
	}

	return nil
}

type IncompleteStayError struct {
	Field string
}

func (e *IncompleteStayError) Error() string {
	return fmt.Sprintf("stay is incomplete: %s not chosen", e.Field)
}

func IsIncompleteStayError(err error) *IncompleteStayError {
	var target *IncompleteStayError

	if errors.As(err, &target) {
		return target
	}

	return nil
}

type MissingFieldError struct {
	Field  string
	Reason string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func IsMissingFieldError(err error) *MissingFieldError {
	var target *MissingFieldError

	if errors.As(err, &target) {
		return target
	}

	return nil
}

type InvertedRangeError struct {
	CheckIn  daterange.Date
	CheckOut daterange.Date
}

func (e *InvertedRangeError) Error() string {
	return fmt.Sprintf("check-out %v must be after check-in %v", e.CheckOut, e.CheckIn)
}

func IsInvertedRangeError(err error) *InvertedRangeError {
	var target *InvertedRangeError

	if errors.As(err, &target) {
		return target
	}

	return nil
}

// LocalConflictError means the requested dates collide with an existing
// booking. Server is set when the backend reported the collision.
type LocalConflictError struct {
	Range       daterange.Range
	Conflicting []BookingInterval
	Server      bool
	Message     string
}

func (e *LocalConflictError) Error() string {
	if e.Server {
		return fmt.Sprintf("dates already booked (server): %s", e.Message)
	}

	return fmt.Sprintf("dates %v overlap %d existing booking(s)", e.Range, len(e.Conflicting))
}

func IsLocalConflictError(err error) *LocalConflictError {
	var target *LocalConflictError

	if errors.As(err, &target) {
		return target
	}

	return nil
}

type ServerValidationError struct {
	StatusCode int
	Message    string
}

func (e *ServerValidationError) Error() string {
	return e.Message
}

func IsServerValidationError(err error) *ServerValidationError {
	var target *ServerValidationError

	if errors.As(err, &target) {
		return target
	}

	return nil
}

// NetworkError is a transport failure where no server response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func IsNetworkError(err error) *NetworkError {
	var target *NetworkError

	if errors.As(err, &target) {
		return target
	}

	return nil
}

// RejectionError is a raw non-2xx answer from the booking backend, before it
// is mapped onto a user-facing category.
type RejectionError struct {
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("rejected with status %d: %s", e.StatusCode, e.Message)
}

func IsRejectionError(err error) *RejectionError {
	var target *RejectionError

	if errors.As(err, &target) {
		return target
	}

	return nil
}

// RecordError explains why a fetched booking record was dropped.
type RecordError struct {
	Position int
	ID       int64
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record #%d (id %d): %v", e.Position, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is a 2xx answer whose body could not be decoded. The
// server did answer, so retrying the same call will not help.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func IsMalformedResponseError(err error) *MalformedResponseError {
	var target *MalformedResponseError

	if errors.As(err, &target) {
		return target
	}

	return nil
}
