package booking

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationState int

const (
	Valid ValidationState = iota + 1
	Rejected
)

func (s ValidationState) String() string {
	if s == Valid {
		return "valid"
	}

	return "rejected"
}

type ValidationResult struct {
	State ValidationState
	Err   error
}

func (r ValidationResult) OK() bool {
	return r.State == Valid
}

type requiredFields struct {
	Room        int64  `json:"room"         validate:"gt=0"`
	ClientName  string `json:"client_name"  validate:"required"`
	ClientEmail string `json:"client_email" validate:"required,email"`
	CheckIn     string `json:"check_in"     validate:"required"`
	CheckOut    string `json:"check_out"    validate:"required"`
}

var fieldValidator = newFieldValidator()

func newFieldValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// Validate runs the local checks in order and stops at the first failure:
// required fields, check-out after check-in, then the advisory overlap check
// against the room's known bookings.
func Validate(stay ProposedStay, x *Index) ValidationResult {
	if err := checkRequired(stay); err != nil {
		return ValidationResult{State: Rejected, Err: err}
	}

	if !stay.CheckOut.After(stay.CheckIn) {
		return ValidationResult{
			State: Rejected,
			Err:   &InvertedRangeError{CheckIn: stay.CheckIn, CheckOut: stay.CheckOut},
		}
	}

	if r := stay.Range(); x.ConflictsWith(r) {
		return ValidationResult{
			State: Rejected,
			Err:   &LocalConflictError{Range: r, Conflicting: x.Overlapping(r)},
		}
	}

	return ValidationResult{State: Valid}
}

func checkRequired(stay ProposedStay) error {
	err := fieldValidator.Struct(requiredFields{
		Room:        stay.RoomID,
		ClientName:  strings.TrimSpace(stay.ClientName),
		ClientEmail: strings.TrimSpace(stay.ClientEmail),
		CheckIn:     stay.CheckIn.String(),
		CheckOut:    stay.CheckOut.String(),
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &MissingFieldError{Field: "stay", Reason: err.Error()}
	}

	first := fieldErrs[0]

	return &MissingFieldError{Field: first.Field(), Reason: reasonFor(first.Tag())}
}

func reasonFor(tag string) string {
	switch tag {
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be selected"
	default:
		return "is required"
	}
}
