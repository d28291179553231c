package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"` // Original error, not exposed in JSON
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceErrorWithStatus creates a service error with specific HTTP status
func NewServiceErrorWithStatus(code, message string, statusCode int) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewServiceErrorWithCause creates a service error that wraps another error
func NewServiceErrorWithCause(code, message string, statusCode int, cause error) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: statusCode,
	}
}

// GetServiceError extracts a ServiceError from anywhere in the error chain
func GetServiceError(err error) (ServiceError, bool) {
	var serviceErr ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return ServiceError{}, false
}

// Common service error constructors
func NewUnauthorizedError(message string) error {
	return ServiceError{
		Code:       ErrCodeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string) error {
	return ServiceError{
		Code:       ErrCodeAuthorization,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewNotFoundError(resource string) error {
	return ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func NewBadRequestError(message string) error {
	return ServiceError{
		Code:       ErrCodeBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewConflictError(code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:       ErrCodeDatabase,
		Message:    fmt.Sprintf("Database operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// Wizard rejections. Codes are stable and returned to clients.
func NewSessionNotFoundError() error {
	return NewNotFoundError("Session")
}

func NewCategoryNotFoundError(id string) error {
	return ServiceError{
		Code:       ErrCodeUnknownCategory,
		Message:    "Emergency category not found",
		Details:    id,
		StatusCode: http.StatusNotFound,
	}
}

func NewStagePreconditionError(message string) error {
	return NewConflictError(ErrCodeStagePrecondition, message)
}

// IllegalTransitionError is returned when an incident is asked to move anywhere
// but the next status of its lifecycle.
type IllegalTransitionError struct {
	From string
	To   string
}

// ErrIllegalTransition matches every *IllegalTransitionError via errors.Is
var ErrIllegalTransition = errors.New("illegal incident transition")

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal incident transition %s -> %s", e.From, e.To)
}

func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// AsServiceError lifts an illegal transition into the API error shape
func (e *IllegalTransitionError) AsServiceError() error {
	return ServiceError{
		Code:       ErrCodeIllegalTransition,
		Message:    "Illegal incident transition",
		Details:    fmt.Sprintf("%s -> %s", e.From, e.To),
		StatusCode: http.StatusConflict,
		Cause:      e,
	}
}

// Error code constants
const (
	ErrCodeValidation               = "VALIDATION_ERROR"
	ErrCodeAuthentication           = "AUTHENTICATION_ERROR"
	ErrCodeAuthorization            = "AUTHORIZATION_ERROR"
	ErrCodeNotFound                 = "NOT_FOUND"
	ErrCodeBadRequest               = "BAD_REQUEST"
	ErrCodeRateLimit                = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal                 = "INTERNAL_ERROR"
	ErrCodeDatabase                 = "DATABASE_ERROR"
	ErrCodeUnknownCategory          = "UNKNOWN_CATEGORY"
	ErrCodeIllegalTransition        = "ILLEGAL_TRANSITION"
	ErrCodeStagePrecondition        = "STAGE_PRECONDITION_FAILED"
	ErrCodeCancelConfirmation       = "CANCEL_CONFIRMATION_REQUIRED"
	ErrCodeNoPendingCancel          = "NO_PENDING_CANCEL"
	ErrCodeTrackerComplete          = "TRACKER_COMPLETE"
	ErrCodeIncidentAlreadyActive    = "INCIDENT_ALREADY_ACTIVE"
	ErrCodeSessionOwnershipMismatch = "SESSION_OWNERSHIP_MISMATCH"
)
