package session

import "errors"

var (
	// ErrInvalidInput indicates a missing session id.
	ErrInvalidInput = errors.New("invalid session input")
	// ErrInvalidTransition indicates the session cannot move to the requested state.
	ErrInvalidTransition = errors.New("invalid session transition")
)
