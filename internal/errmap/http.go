// Package errmap translates domain errors into HTTP responses.
// The client-facing messages are part of the wire contract and must not
// drift; handlers write them verbatim.
package errmap

import (
	"errors"
	"net/http"

	"github.com/cardbox-io/cardbox/internal/domain"
)

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e HTTPError) Error() string {
	return e.Message
}

// httpMapping defines a domain error to HTTP status/message mapping.
type httpMapping struct {
	err        error
	statusCode int
	message    string
}

// httpMappings maps domain errors to HTTP status codes and the literal
// client messages. Order matters: first match wins (via errors.Is).
// Token failures deliberately collapse into one generic message — the
// client never learns whether the signature or the expiry failed.
var httpMappings = []httpMapping{
	// Session token errors — 401
	{domain.ErrTokenMissing, http.StatusUnauthorized, "Missing session token"},
	{domain.ErrTokenMalformed, http.StatusUnauthorized, "Invalid or expired session token"},
	{domain.ErrTokenSignatureInvalid, http.StatusUnauthorized, "Invalid or expired session token"},
	{domain.ErrTokenExpired, http.StatusUnauthorized, "Invalid or expired session token"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "Invalid or expired session token"},

	// Permission errors — 403
	{domain.ErrTableNotAllowed, http.StatusForbidden, "Table not allowed"},
	{domain.ErrForbidden, http.StatusForbidden, "Item not found or access denied"},

	// Resource errors
	{domain.ErrNotFound, http.StatusNotFound, "Item not found"},

	// Validation errors — 400
	{domain.ErrMissingPhone, http.StatusBadRequest, "Missing phone"},
	{domain.ErrInvalidPhoneNumber, http.StatusBadRequest, "Invalid phone number"},
	{domain.ErrInvalidPinFormat, http.StatusBadRequest, "PIN must be 4-6 digits"},
	{domain.ErrInvalidAction, http.StatusBadRequest, "Invalid action"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "Invalid request"},
	{domain.ErrEmptyID, http.StatusBadRequest, "Invalid request"},
	{domain.ErrInvalidID, http.StatusBadRequest, "Invalid request"},

	// Availability
	{domain.ErrUnavailable, http.StatusServiceUnavailable, "Service unavailable"},
}

// ToHTTPError converts a domain error to an HTTP error.
// Unmapped errors fall through to the generic 500 path, which carries the
// raw error message (the legacy contract surfaces upstream failures as-is).
func ToHTTPError(err error) HTTPError {
	if err == nil {
		return HTTPError{StatusCode: http.StatusOK}
	}
	for _, m := range httpMappings {
		if errors.Is(err, m.err) {
			return HTTPError{StatusCode: m.statusCode, Message: m.message}
		}
	}
	return HTTPError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
}

// ToHTTPStatusCode extracts just the HTTP status code for a domain error.
func ToHTTPStatusCode(err error) int {
	return ToHTTPError(err).StatusCode
}
