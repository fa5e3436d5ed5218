package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an error for transport mapping and logging.
type ErrorType string

const (
	// Domain errors
	ErrorTypeValidation        ErrorType = "VALIDATION"
	ErrorTypeNotFound          ErrorType = "NOT_FOUND"
	ErrorTypeConflict          ErrorType = "CONFLICT"
	ErrorTypeUnauthorized      ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden         ErrorType = "FORBIDDEN"
	ErrorTypeInvalidTransition ErrorType = "INVALID_TRANSITION"
	ErrorTypeStaleState        ErrorType = "STALE_STATE"

	// Infrastructure errors. Delivery and notification failures are
	// logged and swallowed after commit; they never reach a caller.
	ErrorTypeInternal     ErrorType = "INTERNAL"
	ErrorTypeDatabase     ErrorType = "DATABASE"
	ErrorTypeDelivery     ErrorType = "DELIVERY"
	ErrorTypeNotification ErrorType = "NOTIFICATION"
)

// AppError is the error type carried across layer boundaries.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails attaches structured detail fields.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewInvalidTransitionError creates an error for an illegal status edge.
// Distinguishable from StaleState so a UI can say "not allowed right now"
// rather than "someone else already changed this".
func NewInvalidTransitionError(from, to string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidTransition,
		Message:    fmt.Sprintf("transition from %s to %s is not allowed", from, to),
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewStaleStateError creates an optimistic-concurrency conflict error.
func NewStaleStateError(expected, actual string) *AppError {
	return &AppError{
		Type:       ErrorTypeStaleState,
		Message:    fmt.Sprintf("expected status %s but record is %s", expected, actual),
		HTTPStatus: http.StatusConflict,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewDatabaseError creates a database error.
func NewDatabaseError(operation string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeDatabase,
		Message:    fmt.Sprintf("store operation '%s' failed", operation),
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewDeliveryError creates a realtime delivery error.
func NewDeliveryError(room string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeDelivery,
		Message:    fmt.Sprintf("event delivery to room '%s' failed", room),
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewNotificationError creates an outbound notification error.
func NewNotificationError(recipient string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotification,
		Message:    fmt.Sprintf("notification to '%s' failed", recipient),
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// GetAppError extracts an AppError from an error chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type.
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsStaleState checks if an error is an optimistic-concurrency conflict.
func IsStaleState(err error) bool {
	return IsType(err, ErrorTypeStaleState)
}

// IsInvalidTransition checks if an error is an illegal-edge rejection.
func IsInvalidTransition(err error) bool {
	return IsType(err, ErrorTypeInvalidTransition)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
