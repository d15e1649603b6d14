package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/cardbox-io/cardbox/internal/domain"
)

// pinPattern matches valid PINs: 4 to 6 decimal digits, nothing else.
var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

// ValidatePinFormat checks that pin is 4-6 decimal digits.
func ValidatePinFormat(pin string) error {
	if !pinPattern.MatchString(pin) {
		return fmt.Errorf("pin %q: %w", "[REDACTED]", domain.ErrInvalidPinFormat)
	}
	return nil
}

// HashPin derives the stored PIN digest: hex(SHA-256(pin || userID)).
// The user ID acts as a per-user salt so identical PINs produce distinct
// digests across users. The raw PIN is never persisted.
func HashPin(pin, userID string) string {
	h := sha256.Sum256([]byte(pin + userID))
	return hex.EncodeToString(h[:])
}

// VerifyPinDigest recomputes the digest for a submitted PIN and compares it
// against the stored digest in constant time.
func VerifyPinDigest(pin, userID, storedDigest string) bool {
	candidate := HashPin(pin, userID)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedDigest)) == 1
}
