package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardbox-io/cardbox/internal/auth"
	"github.com/cardbox-io/cardbox/internal/domain"
	"github.com/cardbox-io/cardbox/internal/domain/domaintest"
)

const (
	testIssuer = "cardbox"
	testUserID = "7f3f0b6e-9a44-4a0b-8a8e-2a1f0de0f9c3"
)

var testSecret = domain.SecretBytes("unit-test-session-secret-32bytes")

func newSessionPair(clock domain.Clock) (*auth.Minter, *auth.Validator) {
	minter := auth.NewMinter(auth.MinterConfig{
		Secret:   testSecret,
		Lifetime: domain.SessionTokenLifetime,
		Issuer:   testIssuer,
		Clock:    clock,
	})
	validator := auth.NewValidator(auth.ValidatorConfig{
		Secret: testSecret,
		Issuer: testIssuer,
		Clock:  clock,
	})
	return minter, validator
}

func TestSessionRoundTrip(t *testing.T) {
	clock := domaintest.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	minter, validator := newSessionPair(clock)

	result, err := minter.IssueSession(testUserID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, clock.Now().Add(domain.SessionTokenLifetime), result.ExpiresAt)

	userID, err := validator.Authenticate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)
}

func TestSessionTamperDetection(t *testing.T) {
	clock := domaintest.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	minter, validator := newSessionPair(clock)

	result, err := minter.IssueSession(testUserID)
	require.NoError(t, err)

	parts := strings.Split(result.Token, ".")
	require.Len(t, parts, 3)

	// Flip a character in the signature segment.
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = validator.Authenticate(tampered)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenSignatureInvalid)
}

func TestSessionExpiry(t *testing.T) {
	clock := domaintest.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	minter, validator := newSessionPair(clock)

	result, err := minter.IssueSession(testUserID)
	require.NoError(t, err)

	// Just before expiry: still valid.
	clock.Advance(domain.SessionTokenLifetime - time.Second)
	_, err = validator.Authenticate(result.Token)
	require.NoError(t, err)

	// Just past expiry: rejected as expired.
	clock.Advance(2 * time.Second)
	_, err = validator.Authenticate(result.Token)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestAuthenticateFailureClassification(t *testing.T) {
	clock := domaintest.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	minter, validator := newSessionPair(clock)

	otherMinter := auth.NewMinter(auth.MinterConfig{
		Secret:   domain.SecretBytes("a-completely-different-secret!!!"),
		Lifetime: domain.SessionTokenLifetime,
		Issuer:   testIssuer,
		Clock:    clock,
	})

	valid, err := minter.IssueSession(testUserID)
	require.NoError(t, err)
	foreign, err := otherMinter.IssueSession(testUserID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty token", "", domain.ErrTokenMissing},
		{"garbage", "not-a-token", domain.ErrTokenMalformed},
		{"two segments", "abc.def", domain.ErrTokenMalformed},
		{"four segments", valid.Token + ".extra", domain.ErrTokenMalformed},
		{"wrong secret", foreign.Token, domain.ErrTokenSignatureInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.Authenticate(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, domain.IsTokenError(err))
		})
	}
}
