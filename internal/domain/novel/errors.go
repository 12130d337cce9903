package novel

import "errors"

var (
	// ErrProjectNotFound indicates no project is stored for the owner.
	ErrProjectNotFound = errors.New("project not found")
	// ErrChapterNotFound indicates the chapter doesn't exist in the project.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrAuthRequired indicates the caller has neither an account nor guest access.
	ErrAuthRequired = errors.New("authentication required")
	// ErrReadOnly indicates the caller may browse but not modify the project.
	ErrReadOnly = errors.New("project is read-only for this caller")
)
