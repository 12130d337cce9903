package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/inkwell/internal/domain/account"
	"github.com/rpggio/inkwell/internal/domain/novel"
	"github.com/rpggio/inkwell/internal/domain/session"
	"github.com/rpggio/inkwell/internal/domain/settings"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrUnknownMethod indicates a call to a method no tool implements.
var ErrUnknownMethod = errors.New("unknown method")

// Error codes that do not come from a domain sentinel.
var (
	errSessionRequired = &APIError{Code: "SESSION_REQUIRED", Message: "session id required", RecoveryHint: "Call start_session and pass its session_id"}
	errInvalidParams   = &APIError{Code: "INVALID_PARAMS", Message: "invalid parameters", RecoveryHint: "Check the tool's input schema"}
)

// MapError maps domain errors to MCP error codes. Unknown errors map to nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, novel.ErrAuthRequired):
		return &APIError{Code: "AUTH_REQUIRED", Message: "sign in or continue as guest first", RecoveryHint: "Call login, register or continue_as_guest"}
	case errors.Is(err, novel.ErrReadOnly):
		return &APIError{Code: "READ_ONLY", Message: "project is read-only for this session", RecoveryHint: "Sign in as the project owner to edit"}
	case errors.Is(err, novel.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Check owner_id; the owner must open the project first"}
	case errors.Is(err, novel.ErrChapterNotFound):
		return &APIError{Code: "CHAPTER_NOT_FOUND", Message: "chapter not found", RecoveryHint: "Call open_project to list chapter ids"}
	case errors.Is(err, novel.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Titles must not be blank"}
	case errors.Is(err, account.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Usernames need at least 3 characters, passwords at least 6"}
	case errors.Is(err, account.ErrDuplicateUsername):
		return &APIError{Code: "USERNAME_TAKEN", Message: "username already exists", RecoveryHint: "Choose another username"}
	case errors.Is(err, account.ErrRegistrationClosed):
		return &APIError{Code: "REGISTRATION_CLOSED", Message: "registration is closed", RecoveryHint: "Ask an admin to enable registration"}
	case errors.Is(err, account.ErrSetupCompleted):
		return &APIError{Code: "SETUP_COMPLETED", Message: "an admin account already exists", RecoveryHint: "Use login instead"}
	case errors.Is(err, account.ErrInvalidCredentials):
		return &APIError{Code: "INVALID_CREDENTIALS", Message: "invalid username or password"}
	case errors.Is(err, account.ErrUserNotFound):
		return &APIError{Code: "USER_NOT_FOUND", Message: "user not found", RecoveryHint: "Call list_users for valid ids"}
	case errors.Is(err, account.ErrForbidden), errors.Is(err, settings.ErrForbidden):
		return &APIError{Code: "FORBIDDEN", Message: "admin rights required"}
	case errors.Is(err, account.ErrLastAdmin):
		return &APIError{Code: "LAST_ADMIN", Message: "cannot delete the last admin"}
	case errors.Is(err, settings.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, session.ErrInvalidTransition):
		return &APIError{Code: "INVALID_TRANSITION", Message: err.Error(), RecoveryHint: "Call logout first"}
	case errors.Is(err, session.ErrInvalidInput):
		return errSessionRequired
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
