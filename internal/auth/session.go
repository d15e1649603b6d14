package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cardbox-io/cardbox/internal/domain"
)

// Session tokens are standard compact HS256 JWTs carrying the user ID in
// the subject claim, with a fixed 24-hour lifetime. There is no algorithm
// negotiation: HS256 is the only accepted method, and alg "none" is
// rejected by construction.

// MintResult holds the result of minting a session token.
type MintResult struct {
	Token     string
	ExpiresAt time.Time
}

// Minter creates signed session tokens.
type Minter struct {
	secret   domain.SecretBytes
	lifetime time.Duration
	issuer   string
	clock    domain.Clock
}

// MinterConfig holds configuration for creating a Minter.
type MinterConfig struct {
	Secret   domain.SecretBytes
	Lifetime time.Duration
	Issuer   string
	Clock    domain.Clock
}

// NewMinter creates a new session token minter.
func NewMinter(cfg MinterConfig) *Minter {
	return &Minter{
		secret:   cfg.Secret,
		lifetime: cfg.Lifetime,
		issuer:   cfg.Issuer,
		clock:    cfg.Clock,
	}
}

// IssueSession creates a signed session token for the given user.
// The lifetime is fixed at construction and is not configurable per call.
func (m *Minter) IssueSession(userID string) (MintResult, error) {
	now := m.clock.Now().UTC()
	expiresAt := now.Add(m.lifetime)

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret.Expose())
	if err != nil {
		return MintResult{}, fmt.Errorf("sign session token: %w", err)
	}

	return MintResult{Token: signed, ExpiresAt: expiresAt}, nil
}

// Validator validates session tokens and classifies failures.
type Validator struct {
	secret domain.SecretBytes
	issuer string
	clock  domain.Clock
}

// ValidatorConfig holds configuration for creating a Validator.
type ValidatorConfig struct {
	Secret domain.SecretBytes
	Issuer string
	Clock  domain.Clock
}

// NewValidator creates a new session token validator.
func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		clock:  cfg.Clock,
	}
}

// Authenticate parses and fully validates a session token, returning the
// user ID it was issued to. Failures are classified into the four
// domain sentinels (missing, malformed, invalid signature, expired);
// the HTTP layer surfaces all of them as one generic 401.
func (v *Validator) Authenticate(tokenString string) (string, error) {
	if tokenString == "" {
		return "", domain.ErrTokenMissing
	}

	var claims jwt.RegisteredClaims

	opts := []jwt.ParserOption{
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(v.clock.Now),
		jwt.WithExpirationRequired(),
	}

	_, err := jwt.ParseWithClaims(tokenString, &claims, v.keyFunc, opts...)
	if err != nil {
		return "", classifyTokenError(err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("missing sub claim: %w", domain.ErrTokenMalformed)
	}

	return claims.Subject, nil
}

func (v *Validator) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.secret.Expose(), nil
}

// classifyTokenError maps jwt parse errors onto the domain token sentinels.
// Expiry wins over other soft failures; anything that is neither malformed
// nor expired is treated as a signature failure (the token is not ours).
func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", domain.ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", domain.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrTokenSignatureInvalid, err)
	}
}
