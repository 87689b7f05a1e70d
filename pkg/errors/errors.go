package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Reason narrows a code, e.g. "date_range" for validation errors.
	Reason string `json:"reason,omitempty"`
	// Guard names the violated guard for ErrGuardViolation.
	Guard string `json:"guard,omitempty"`
	Err   error  `json:"-"`
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

// Is matches on code, and on reason or guard when the target sets them.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	if t.Reason != "" && t.Reason != e.Reason {
		return false
	}
	if t.Guard != "" && t.Guard != e.Guard {
		return false
	}
	return true
}

// StatusCode maps the error code onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest, ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrInvalidTransition, ErrConcurrentModification:
		return http.StatusConflict
	case ErrGuardViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrValidation
	ErrInvalidTransition
	ErrGuardViolation
	ErrConcurrentModification
)

const ReasonDateRange = "date_range"

// Sentinels for errors.Is checks.
var (
	NotFoundError          = &AppError{Code: ErrNotFound}
	ValidationError        = &AppError{Code: ErrValidation}
	DateRangeError         = &AppError{Code: ErrValidation, Reason: ReasonDateRange}
	InvalidTransition      = &AppError{Code: ErrInvalidTransition}
	GuardViolation         = &AppError{Code: ErrGuardViolation}
	ConcurrentModification = &AppError{Code: ErrConcurrentModification}
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func NewValidation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Err:     err,
	}
}

func NewDateRange(message string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Reason:  ReasonDateRange,
		Message: message,
	}
}

func NewInvalidTransition(action, from string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("action %s is not allowed from status %s", action, from),
	}
}

func NewGuardViolation(guard, message string) *AppError {
	return &AppError{
		Code:    ErrGuardViolation,
		Guard:   guard,
		Message: message,
	}
}

func NewConcurrentModification(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrConcurrentModification,
		Message: fmt.Sprintf("%s was modified concurrently", resource),
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrInternal
}

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not_found"
	case ErrBadRequest:
		return "bad_request"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrForbidden:
		return "forbidden"
	case ErrInternal:
		return "internal"
	case ErrValidation:
		return "validation"
	case ErrInvalidTransition:
		return "invalid_transition"
	case ErrGuardViolation:
		return "guard_violation"
	case ErrConcurrentModification:
		return "concurrent_modification"
	}
	return "unknown"
}
