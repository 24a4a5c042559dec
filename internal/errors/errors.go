package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound            = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists       = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation          = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation    = new(ErrCodeInvalidOperation, "invalid operation")
	ErrSequenceContention  = new(ErrCodeSequenceContention, "sequence contention")
	ErrTimeout             = new(ErrCodeTimeout, "operation timed out")
	ErrStoreUnavailable    = new(ErrCodeStoreUnavailable, "store unavailable")
	ErrConstraintViolation = new(ErrCodeConstraintViolation, "constraint violation")
	ErrDatabase            = new(ErrCodeDatabase, "database error")
	ErrSystem              = new(ErrCodeSystemError, "system error")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:            http.StatusNotFound,
		ErrAlreadyExists:       http.StatusConflict,
		ErrValidation:          http.StatusBadRequest,
		ErrInvalidOperation:    http.StatusBadRequest,
		ErrSequenceContention:  http.StatusConflict,
		ErrTimeout:             http.StatusServiceUnavailable,
		ErrStoreUnavailable:    http.StatusServiceUnavailable,
		ErrConstraintViolation: http.StatusConflict,
		ErrDatabase:            http.StatusInternalServerError,
		ErrSystem:              http.StatusInternalServerError,
	}
)

const (
	ErrCodeSystemError         = "system_error"
	ErrCodeNotFound            = "not_found"
	ErrCodeAlreadyExists       = "already_exists"
	ErrCodeValidation          = "validation_error"
	ErrCodeInvalidOperation    = "invalid_operation"
	ErrCodeSequenceContention  = "sequence_contention"
	ErrCodeTimeout             = "timeout"
	ErrCodeStoreUnavailable    = "store_unavailable"
	ErrCodeConstraintViolation = "constraint_violation"
	ErrCodeDatabase            = "database_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// New creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsSequenceContention checks if an error is a lock-wait/serialization
// conflict raised while allocating a number
func IsSequenceContention(err error) bool {
	return errors.Is(err, ErrSequenceContention)
}

// IsTimeout checks if an error is an overall-deadline error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsStoreUnavailable checks if an error means the backing store is unreachable
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsConstraintViolation checks if the defense-in-depth unique constraint fired
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}

// IsRetryable reports whether the retry policy may re-attempt the operation.
// Only contention qualifies: validation, constraint violations and store
// outages must propagate immediately.
func IsRetryable(err error) bool {
	return IsSequenceContention(err)
}

// IsClassified reports whether err already carries one of the taxonomy marks
// above, meaning classification must not wrap it again.
func IsClassified(err error) bool {
	for e := range statusCodeMap {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
