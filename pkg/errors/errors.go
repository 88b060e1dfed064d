package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes for the notifier failure taxonomy. Every per-candidate and
// per-tier failure is contained at its level; only store-unreachable at
// startup is fatal to the process.
const (
	ErrInvalidRecipient ErrorCode = iota + 1000
	ErrTransientProvider
	ErrSessionLost
	ErrStoreUnavailable
	ErrAuthTerminated
)

// Error constructors
func InvalidRecipient(phone string) *AppError {
	return &AppError{
		Code:    ErrInvalidRecipient,
		Message: fmt.Sprintf("invalid recipient phone %q", phone),
	}
}

func TransientProvider(err error) *AppError {
	return &AppError{
		Code:    ErrTransientProvider,
		Message: "transient provider error",
		Err:     err,
	}
}

func SessionLost(err error) *AppError {
	return &AppError{
		Code:    ErrSessionLost,
		Message: "messaging session lost",
		Err:     err,
	}
}

func StoreUnavailable(op string, err error) *AppError {
	return &AppError{
		Code:    ErrStoreUnavailable,
		Message: fmt.Sprintf("store unavailable during %s", op),
		Err:     err,
	}
}

func AuthTerminated(err error) *AppError {
	return &AppError{
		Code:    ErrAuthTerminated,
		Message: "session logged out, external re-authentication required",
		Err:     err,
	}
}

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsAuthTerminated(err error) bool {
	return HasCode(err, ErrAuthTerminated)
}

func IsStoreUnavailable(err error) bool {
	return HasCode(err, ErrStoreUnavailable)
}
