package middleware

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	ierr "github.com/numera/numera/internal/errors"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Display   string         `json:"message"`
	Kind      string         `json:"error_kind,omitempty"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ErrorHandler middleware handles error responses
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			// Get display message from hints
			display := getDisplayMessage(err)

			// Get safe details
			details := getSafeDetails(err)

			response := ErrorResponse{
				Success: false,
				Error: ErrorDetail{
					Display:   display,
					Kind:      errorKind(err),
					Retryable: ierr.IsRetryable(err),
					Details:   details,
				},
			}

			status := ierr.HTTPStatusFromErr(err)
			c.JSON(status, response)
		}
	}
}

// errorKind maps the error onto its machine-checkable taxonomy code so the
// frontend can decide between "try again" and "fix your input".
func errorKind(err error) string {
	switch {
	case ierr.IsValidation(err):
		return ierr.ErrCodeValidation
	case ierr.IsSequenceContention(err):
		return ierr.ErrCodeSequenceContention
	case ierr.IsTimeout(err):
		return ierr.ErrCodeTimeout
	case ierr.IsStoreUnavailable(err):
		return ierr.ErrCodeStoreUnavailable
	case ierr.IsConstraintViolation(err):
		return ierr.ErrCodeConstraintViolation
	case ierr.IsNotFound(err):
		return ierr.ErrCodeNotFound
	case ierr.IsAlreadyExists(err):
		return ierr.ErrCodeAlreadyExists
	case ierr.IsInvalidOperation(err):
		return ierr.ErrCodeInvalidOperation
	}
	return ierr.ErrCodeSystemError
}

func getDisplayMessage(err error) string {
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		// Get the first non-empty hint - GetAllHints is post-order traversal
		for _, hint := range hints {
			if hint = strings.TrimSpace(hint); hint != "" {
				return hint
			}
		}
	}

	// fallback to the error message
	return "An unexpected error occurred"
}

func getSafeDetails(err error) map[string]any {
	details := make(map[string]any)

	allSafeDetails := errors.GetAllSafeDetails(err)
	for _, sdp := range allSafeDetails {
		if len(sdp.SafeDetails) == 0 {
			continue
		}

		for _, payload := range sdp.SafeDetails {
			if len(payload) > 9 && strings.HasPrefix(payload, "__json__:") {
				jsonStr := payload[9:]
				var jsonDetails map[string]any
				if err := json.Unmarshal([]byte(jsonStr), &jsonDetails); err == nil {
					for k, v := range jsonDetails {
						details[k] = v
					}
				}
			}
		}
	}

	return details
}
