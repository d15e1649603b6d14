package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// otpRange spans 100000..999999: every generated code has exactly six
// digits with no leading zero, so string comparison never needs padding.
var otpRange = big.NewInt(900_000)

// GenerateOTP generates a cryptographically random 6-digit OTP in the range
// 100000-999999 inclusive. Uses crypto/rand with rejection sampling
// (via big.Int) to avoid modulo bias.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpRange)
	if err != nil {
		return "", fmt.Errorf("generate OTP: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100_000), nil
}

// VerifyOTPCode compares a submitted code against the stored one using
// constant-time comparison.
func VerifyOTPCode(submitted, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1
}

// HashPhone returns the SHA-256 hex digest of an E.164 phone number.
// Used when a phone number must appear in logs or metrics attributes.
func HashPhone(phone string) string {
	h := sha256.Sum256([]byte(phone))
	return hex.EncodeToString(h[:])
}
