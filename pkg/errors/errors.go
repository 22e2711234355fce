package errors

import (
	"errors"
	"net/http"
)

// Domain error kinds. Every operation surfaces exactly one of these.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrForbidden         = errors.New("forbidden")
	ErrNoProfile         = errors.New("no profile for user")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrOutOfStock        = errors.New("insufficient stock")
	ErrAlreadyApproved   = errors.New("already approved")
	ErrAlreadyPaid       = errors.New("already paid")
	ErrAlreadyRated      = errors.New("already rated")
	ErrConflict          = errors.New("resource conflict")
	ErrInternal          = errors.New("internal server error")
)

// AppError carries a domain error kind plus the context needed at the
// HTTP boundary.
type AppError struct {
	Err        error
	StatusCode int
	Message    string
	Retryable  bool
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error kind
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError with the given parameters
func NewAppError(err error, message string, statusCode int, retryable bool) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
	}
}

// StatusCode maps an error to its HTTP status. Unknown errors are treated
// as internal.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNoProfile):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrAlreadyApproved), errors.Is(err, ErrAlreadyPaid),
		errors.Is(err, ErrAlreadyRated), errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, message, http.StatusNotFound, false)
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrForbidden, message, http.StatusForbidden, false)
}

// NewNoProfileError creates an error for an authenticated user without a profile
func NewNoProfileError(message string) *AppError {
	return NewAppError(ErrNoProfile, message, http.StatusForbidden, false)
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, false)
}

// NewInvalidQuantityError creates an error for a non-positive order quantity
func NewInvalidQuantityError(message string) *AppError {
	return NewAppError(ErrInvalidQuantity, message, http.StatusBadRequest, false)
}

// NewInvalidTransitionError creates an error for a state machine precondition violation
func NewInvalidTransitionError(message string) *AppError {
	return NewAppError(ErrInvalidTransition, message, http.StatusConflict, false)
}

// NewOutOfStockError creates an error for a failed inventory reservation
func NewOutOfStockError(message string) *AppError {
	return NewAppError(ErrOutOfStock, message, http.StatusConflict, false)
}

// NewAlreadyApprovedError creates an idempotency guard error for invoice approval
func NewAlreadyApprovedError(message string) *AppError {
	return NewAppError(ErrAlreadyApproved, message, http.StatusConflict, false)
}

// NewAlreadyPaidError creates an idempotency guard error for invoice settlement
func NewAlreadyPaidError(message string) *AppError {
	return NewAppError(ErrAlreadyPaid, message, http.StatusConflict, false)
}

// NewAlreadyRatedError creates an idempotency guard error for order ratings
func NewAlreadyRatedError(message string) *AppError {
	return NewAppError(ErrAlreadyRated, message, http.StatusConflict, false)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrInternal, message, http.StatusInternalServerError, true)
}
