// ============================================================================
// backend/internal/shared/errors.go
// Error taxonomy shared by services and the HTTP gateway
// ============================================================================

package shared

import (
	"errors"
	"strings"
)

// Sentinel errors returned by services. The gateway maps them to HTTP status
// codes in util.HandleServiceError.
var (
	// ErrNotFound indicates no record matched the requested key
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing, invalid, or revoked credential
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates a valid credential without the required identity
	ErrForbidden = errors.New("forbidden")

	// ErrParse indicates an unreadable or malformed workbook
	ErrParse = errors.New("failed to read workbook")
)

// ValidationError reports request fields that were missing or invalid.
// It aborts the request before any side effect occurs.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// NewValidationError builds a ValidationError from the offending field names
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// AsValidationError unwraps err into a *ValidationError if it is one
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
