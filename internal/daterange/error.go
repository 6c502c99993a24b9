package daterange

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDate     = errors.New("date is empty")
	ErrMalformedDate = errors.New("date is malformed")
)

type InvalidRangeError struct {
	Start Date
	End   Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: end %v must be after start %v", e.End, e.Start)
}

func IsInvalidRangeError(err error) *InvalidRangeError {
	if err == nil {
		return nil
	}

	var rangeErr *InvalidRangeError

	if errors.As(err, &rangeErr) {
		return rangeErr
	}

	return nil
}
