package domain

import "errors"

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// ID validation errors
	ErrEmptyID   = errors.New("ID cannot be empty")
	ErrInvalidID = errors.New("invalid ID format")

	// Resource errors
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")

	// Authorization errors
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("permission denied")

	// Session token errors. All of these surface to clients as a single
	// generic 401; the distinct sentinels exist for logging, metrics,
	// and tests.
	ErrTokenMissing          = errors.New("session token missing")
	ErrTokenMalformed        = errors.New("session token malformed")
	ErrTokenSignatureInvalid = errors.New("session token signature invalid")
	ErrTokenExpired          = errors.New("session token expired")

	// OTP errors. Precedence at verification time is fixed:
	// existence before freshness before match.
	ErrNoOTPFound = errors.New("no OTP found")
	ErrOTPExpired = errors.New("OTP has expired")
	ErrInvalidOTP = errors.New("invalid OTP")

	// Validation errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrMissingPhone       = errors.New("phone number is required")
	ErrInvalidPhoneNumber = errors.New("invalid phone number format")
	ErrInvalidPinFormat   = errors.New("PIN must be 4-6 digits")
	ErrTableNotAllowed    = errors.New("table not allowed")
	ErrInvalidAction      = errors.New("invalid action")

	// PIN state errors
	ErrNoPinSet = errors.New("no PIN set")

	// Operational errors
	ErrUnavailable = errors.New("service temporarily unavailable")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
)

// tokenErrors enumerates the session-token failure modes.
var tokenErrors = []error{
	ErrTokenMissing,
	ErrTokenMalformed,
	ErrTokenSignatureInvalid,
	ErrTokenExpired,
}

// IsTokenError returns true if the error is any session-token failure.
// Clients receive one undifferentiated 401 for all of them.
func IsTokenError(err error) bool {
	for _, target := range tokenErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// clientErrors enumerates all domain errors that represent client-side issues.
var clientErrors = []error{
	ErrInvalidInput,
	ErrMissingPhone,
	ErrInvalidPhoneNumber,
	ErrInvalidPinFormat,
	ErrTableNotAllowed,
	ErrInvalidAction,
	ErrNotFound,
	ErrForbidden,
	ErrUnauthorized,
	ErrEmptyID,
	ErrInvalidID,
	ErrNoOTPFound,
	ErrOTPExpired,
	ErrInvalidOTP,
	ErrTokenMissing,
	ErrTokenMalformed,
	ErrTokenSignatureInvalid,
	ErrTokenExpired,
}

// IsClientError returns true if the error represents a client-side issue
// that will not succeed on retry without client-side changes.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsPermissionDenied returns true if the error represents a permission issue.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrUnauthorized)
}

// IsNotFound returns true if the error represents a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
