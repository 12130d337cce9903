package settings

import "errors"

var (
	// ErrForbidden indicates the actor lacks admin rights.
	ErrForbidden = errors.New("admin rights required")
	// ErrInvalidInput indicates a malformed settings patch.
	ErrInvalidInput = errors.New("invalid settings input")
)
