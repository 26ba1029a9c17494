// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"

	// Business rule violations (422)
	CodeBusinessRule             = "BUSINESS_RULE_VIOLATION"
	CodeQuantityExceeded         = "QUANTITY_EXCEEDED"
	CodeInvalidTransition        = "INVALID_TRANSITION"
	CodeMissingSettlementAccount = "MISSING_SETTLEMENT_ACCOUNT"
	CodeConsistencyFault         = "CONSISTENCY_FAULT"
	CodeConcurrentModification   = "CONCURRENT_MODIFICATION"

	// Side effects (finalization committed, downstream write failed)
	CodeSideEffectFailure = "SIDE_EFFECT_FAILURE"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict    = "CONFLICT"
	CodeDuplicate   = "DUPLICATE_ENTRY"
	CodeIdempotency = "IDEMPOTENCY_CONFLICT"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewQuantityExceeded reports a return quantity above the returnable
// remainder. Always carries the actual allowed maximum so the caller can
// reduce the quantity and retry.
func NewQuantityExceeded(originalLineID string, requested, allowed float64) *AppError {
	return &AppError{
		Code:       CodeQuantityExceeded,
		Message:    "Requested return quantity exceeds returnable remainder",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"original_line_id": originalLineID,
			"requested":        requested,
			"max_allowed":      allowed,
		},
	}
}

// NewInvalidTransition reports an illegal lifecycle transition.
func NewInvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("Illegal transition from %s to %s", from, to),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"from": from, "to": to},
	}
}

// NewMissingSettlementAccount is returned when a cash or bank settlement is
// chosen without an account.
func NewMissingSettlementAccount(method string) *AppError {
	return &AppError{
		Code:       CodeMissingSettlementAccount,
		Message:    "Settlement method requires an account",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"method": method},
	}
}

// NewConsistencyFault reports a negative returnable balance: the per-line
// invariant was already violated by some other path. Fatal to the operation
// in progress; never clamped or repaired here.
func NewConsistencyFault(originalLineID string, returnable float64) *AppError {
	return &AppError{
		Code:       CodeConsistencyFault,
		Message:    "Returned quantity exceeds original quantity; data is inconsistent",
		HTTPStatus: http.StatusInternalServerError,
		Details: map[string]any{
			"original_line_id": originalLineID,
			"returnable":       returnable,
		},
	}
}

// NewSideEffectFailure reports a downstream ledger write failure after the
// document state change already committed. Reported as a warning on an
// otherwise successful result; never causes a rollback.
func NewSideEffectFailure(subsystem string, cause error) *AppError {
	return &AppError{
		Code:       CodeSideEffectFailure,
		Message:    fmt.Sprintf("%s write failed after document commit; manual reconciliation required", subsystem),
		HTTPStatus: http.StatusOK,
		Details:    map[string]any{"subsystem": subsystem},
		Err:        cause,
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused
// for a different request (different operation or body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode checks if error carries the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsQuantityExceeded checks if error is CodeQuantityExceeded
func IsQuantityExceeded(err error) bool {
	return IsCode(err, CodeQuantityExceeded)
}

// IsInvalidTransition checks if error is CodeInvalidTransition
func IsInvalidTransition(err error) bool {
	return IsCode(err, CodeInvalidTransition)
}

// IsConsistencyFault checks if error is CodeConsistencyFault
func IsConsistencyFault(err error) bool {
	return IsCode(err, CodeConsistencyFault)
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return IsCode(err, CodeConcurrentModification)
}
