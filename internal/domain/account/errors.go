package account

import "errors"

var (
	// ErrInvalidInput indicates a malformed username or password.
	ErrInvalidInput = errors.New("invalid account input")
	// ErrDuplicateUsername indicates the username is taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrRegistrationClosed indicates new accounts are not being accepted.
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrSetupCompleted indicates an admin account already exists.
	ErrSetupCompleted = errors.New("admin setup already completed")
	// ErrInvalidCredentials indicates a username/password mismatch.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound indicates the account doesn't exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrForbidden indicates the actor lacks admin rights.
	ErrForbidden = errors.New("admin rights required")
	// ErrLastAdmin indicates the operation would remove the only admin.
	ErrLastAdmin = errors.New("cannot delete the last admin")
)
