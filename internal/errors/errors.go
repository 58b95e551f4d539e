package errors

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrorTypeIntegrity         ErrorType = "INTEGRITY"
	ErrorTypeUnsupportedChange ErrorType = "UNSUPPORTED_CHANGE"
	ErrorTypeContentFetch      ErrorType = "CONTENT_FETCH"
	ErrorTypeNotFound          ErrorType = "NOT_FOUND"
	ErrorTypeValidation        ErrorType = "VALIDATION"
)

// Error is the typed error carried across package boundaries. Err holds the
// wrapped cause when one exists, so errors.Is/As keep working through it.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Integrity reports a storage/caller contract violation. The whole operation
// that surfaced it aborts; there is no per-path recovery.
func Integrity(format string, args ...any) *Error {
	return &Error{
		Type:    ErrorTypeIntegrity,
		Message: fmt.Sprintf(format, args...),
	}
}

// UnsupportedChange marks a classification branch that should be unreachable.
func UnsupportedChange(format string, args ...any) *Error {
	return &Error{
		Type:    ErrorTypeUnsupportedChange,
		Message: fmt.Sprintf(format, args...),
	}
}

// ContentFetch wraps a storage failure while reading an existing entry's bytes.
func ContentFetch(path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeContentFetch,
		Message: fmt.Sprintf("fetching content for %s", path),
		Err:     err,
	}
}

func NotFound(format string, args ...any) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

func Validation(format string, args ...any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsType reports whether err or anything it wraps is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}
