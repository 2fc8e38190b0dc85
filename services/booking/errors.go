package booking

import (
	"errors"
	"fmt"
)

// ErrorCode classifies booking failures so callers can tell "slot
// unavailable" from "fix your input" from "retry later".
type ErrorCode string

const (
	CodeValidation     ErrorCode = "validation"
	CodeTransition     ErrorCode = "transition"
	CodeConflict       ErrorCode = "conflict"
	CodeAuthorization  ErrorCode = "authorization"
	CodePayment        ErrorCode = "payment"
	CodeConcurrency    ErrorCode = "concurrency"
	CodeNotFound       ErrorCode = "not_found"
	CodeInfrastructure ErrorCode = "infrastructure"
)

// Error is the typed failure crossing the service boundary.
type Error struct {
	Code    ErrorCode
	Message string
	// ConflictingIDs is populated for CodeConflict so callers can
	// suggest alternatives.
	ConflictingIDs []string
	cause          error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a typed booking error.
func NewError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// WrapError attaches a cause to a typed booking error.
func WrapError(code ErrorCode, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, cause: cause}
}

// ConflictError reports an occupied slot along with the blocking bookings.
func ConflictError(ids []string) *Error {
	return &Error{
		Code:           CodeConflict,
		Message:        "requested time slot conflicts with an existing booking",
		ConflictingIDs: ids,
	}
}

// CodeOf extracts the error code, defaulting unknown errors to
// infrastructure so callers retry with backoff.
func CodeOf(err error) ErrorCode {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeInfrastructure
}
