package booking

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

type SubmissionState int

const (
	StateIdle SubmissionState = iota
	StateValidating
	StateValid
	StateRejected
	StateAccepted
	StateServerRejected
	StateNetworkError
)

var submissionStateNames = map[SubmissionState]string{
	StateIdle:           "idle",
	StateValidating:     "validating",
	StateValid:          "valid",
	StateRejected:       "rejected",
	StateAccepted:       "accepted",
	StateServerRejected: "server_rejected",
	StateNetworkError:   "network_error",
}

func (s SubmissionState) String() string {
	if name, ok := submissionStateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("state(%d)", int(s))
}

func (s SubmissionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var submissionTransitions = map[SubmissionState][]SubmissionState{
	StateIdle:           {StateValidating},
	StateValidating:     {StateValid, StateRejected},
	StateValid:          {StateValidating, StateAccepted, StateServerRejected, StateNetworkError},
	StateRejected:       {StateValidating},
	StateServerRejected: {StateValidating},
	StateNetworkError:   {StateValidating},
	StateAccepted:       nil,
}

// Submission tracks one booking attempt from validation to the backend's
// answer. The zero value is Idle.
type Submission struct {
	state SubmissionState
	err   error
}

func (s *Submission) State() SubmissionState {
	return s.state
}

// Err is the failure behind the current state, nil when Valid or Accepted.
func (s *Submission) Err() error {
	return s.err
}

func (s *Submission) moveTo(next SubmissionState) error {
	if !slices.Contains(submissionTransitions[s.state], next) {
		return fmt.Errorf("%v -> %v: %w", s.state, next, ErrInvalidTransition)
	}

	s.state = next

	return nil
}

func (s *Submission) Validate(stay ProposedStay, x *Index) (ValidationResult, error) {
	if err := s.moveTo(StateValidating); err != nil {
		return ValidationResult{}, err
	}

	res := Validate(stay, x)

	next := StateValid
	if !res.OK() {
		next = StateRejected
	}

	if err := s.moveTo(next); err != nil {
		return ValidationResult{}, err
	}

	s.err = res.Err

	return res, nil
}

// Resolve records the outcome of the create-booking call. outcome is the
// gateway's error (nil on success); the mapped category is available via Err.
func (s *Submission) Resolve(outcome error) error {
	mapped := ClassifyOutcome(outcome)

	next := StateAccepted

	switch {
	case mapped == nil:
	case IsNetworkError(mapped) != nil:
		next = StateNetworkError
	default:
		next = StateServerRejected
	}

	if err := s.moveTo(next); err != nil {
		return err
	}

	s.err = mapped

	return nil
}

var conflictMarkers = []string{
	"already booked",
	"overlap",
	"not available",
	"unavailable",
	"double book",
}

// MapServerRejection turns a backend rejection into the category shown to
// the user. Date conflicts share the local conflict category.
func MapServerRejection(rej *RejectionError) error {
	msg := strings.ToLower(rej.Message)

	for _, marker := range conflictMarkers {
		if strings.Contains(msg, marker) {
			return &LocalConflictError{Server: true, Message: rej.Message}
		}
	}

	return &ServerValidationError{StatusCode: rej.StatusCode, Message: rej.Message}
}

// ClassifyOutcome normalises any error from a create-booking call. Anything
// that is not a server answer is treated as a transport failure.
func ClassifyOutcome(err error) error {
	if err == nil {
		return nil
	}

	if rej := IsRejectionError(err); rej != nil {
		return MapServerRejection(rej)
	}

	if IsNetworkError(err) != nil || IsLocalConflictError(err) != nil || IsServerValidationError(err) != nil {
		return err
	}

	return &NetworkError{Err: err}
}

func IsRetryable(err error) bool {
	return IsNetworkError(err) != nil
}

func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsLocalConflictError(err) != nil:
		return "These dates are already booked, choose others."
	case IsInvertedRangeError(err) != nil:
		return "Check-out date must be after check-in date."
	case IsIncompleteStayError(err) != nil:
		return "Choose both check-in and check-out dates."
	case IsNetworkError(err) != nil:
		return "Could not reach the booking service. Your selection is kept, please retry."
	}

	if fieldErr := IsMissingFieldError(err); fieldErr != nil {
		return fieldErr.Error()
	}

	if serverErr := IsServerValidationError(err); serverErr != nil {
		return serverErr.Message
	}

	return "Something went wrong, please try again."
}

type contextKey string

const idempotencyKey contextKey = "idempotencyKey"

// WithIdempotencyKey tags a create-booking call so a retried submission of
// the same stay is recognised by the backend.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey, key)
}

func IdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKey).(string)

	return key, ok && key != ""
}
