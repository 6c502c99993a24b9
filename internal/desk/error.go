package desk

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAlreadyBooked   = errors.New("session already produced a booking")
)
