// Package auth contains the cryptographic building blocks of the
// authentication subsystem: HMAC signing, OTP generation, PIN digests,
// and session token minting/validation.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sign computes a deterministic HMAC-SHA256 MAC over message using secret,
// returned as 64 lowercase hex characters. An empty message is valid input;
// there is no error path.
func Sign(message, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the MAC for message and compares it against
// candidate using constant-time comparison to prevent timing side-channels.
func VerifySignature(message, secret []byte, candidate string) bool {
	expected := Sign(message, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1
}
