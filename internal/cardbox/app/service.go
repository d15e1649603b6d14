// Package app contains the use-case layer of the cardbox service: OTP
// issuance and verification, session minting, the PIN subsystem, and the
// row-scoped data gateway. Adapters provide storage and delivery; the port
// layer translates HTTP requests into calls here.
package app

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/cardbox-io/cardbox/internal/auth"
	"github.com/cardbox-io/cardbox/internal/domain"
)

var tracer = otel.Tracer("cardbox/app")

var (
	otpIssuedTotal     metric.Int64Counter
	otpFailuresTotal   metric.Int64Counter
	sessionMintedTotal metric.Int64Counter
	authFailuresTotal  metric.Int64Counter
	pinChecksTotal     metric.Int64Counter
	dataOpsTotal       metric.Int64Counter
)

func init() {
	m := otel.Meter("cardbox/app")

	otpIssuedTotal, _ = m.Int64Counter("auth_otp_issued_total",
		metric.WithDescription("Total OTP codes issued"))
	otpFailuresTotal, _ = m.Int64Counter("auth_otp_failures_total",
		metric.WithDescription("Total OTP verification failures"))
	sessionMintedTotal, _ = m.Int64Counter("auth_session_minted_total",
		metric.WithDescription("Total session tokens minted"))
	authFailuresTotal, _ = m.Int64Counter("security_auth_failures_total",
		metric.WithDescription("Total session authentication failures"))
	pinChecksTotal, _ = m.Int64Counter("security_pin_checks_total",
		metric.WithDescription("Total PIN verification attempts"))
	dataOpsTotal, _ = m.Int64Counter("data_gateway_ops_total",
		metric.WithDescription("Total data gateway operations"))
}

// OTPRecord represents a one-time code stored in the otp_codes table.
// Rows are append-only: issuance inserts, successful verification deletes,
// and nothing else ever touches them (no sweep, no TTL).
type OTPRecord struct {
	OTPID     string
	Phone     string
	Code      string
	CreatedAt string
}

// UserRecord represents a user stored in the users table.
// PinHash is empty when no PIN is configured.
type UserRecord struct {
	UserID    string
	Phone     string
	FullName  string
	Email     string
	PinHash   string
	CreatedAt string
}

// Profile is the client-facing view of a user record. It carries HasPin
// instead of the digest; the digest never leaves the service.
type Profile struct {
	ID        string `json:"id"`
	Phone     string `json:"phone"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	HasPin    bool   `json:"hasPin"`
	CreatedAt string `json:"created_at"`
}

// Item is a free-form row in one of the user-owned tables. The gateway
// guarantees user_id, id, created_date and updated_date are present and
// authoritative; everything else is client payload.
type Item = map[string]any

// OTPStore persists and retrieves one-time codes.
type OTPStore interface {
	// Insert appends a new OTP row. Older rows for the same phone are
	// left in place; only the most recent row is authoritative.
	Insert(ctx context.Context, record OTPRecord) error

	// Latest returns the most-recently-created row for phone, or
	// domain.ErrNotFound when none exists.
	Latest(ctx context.Context, phone string) (*OTPRecord, error)

	// Delete removes the given row. Deleting an already-deleted row is
	// a no-op (concurrent verification race is accepted).
	Delete(ctx context.Context, record OTPRecord) error
}

// UserStore persists and retrieves user records.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*UserRecord, error)
	FindByPhone(ctx context.Context, phone string) (*UserRecord, error)
	Create(ctx context.Context, record UserRecord) error
	UpdateProfile(ctx context.Context, userID, fullName, email string) (*UserRecord, error)

	// SetPinHash overwrites the stored digest. ClearPinHash removes it;
	// an absent digest means "no PIN configured".
	SetPinHash(ctx context.Context, userID, pinHash string) error
	ClearPinHash(ctx context.Context, userID string) error
}

// ItemStore persists rows of the user-owned tables. Every operation is
// keyed by (userID, id) so foreign rows are unreachable by construction.
type ItemStore interface {
	List(ctx context.Context, table domain.Table, userID string) ([]Item, error)
	Get(ctx context.Context, table domain.Table, userID, id string) (Item, error)
	Put(ctx context.Context, table domain.Table, item Item) error
	Update(ctx context.Context, table domain.Table, userID, id string, attrs Item) (Item, error)
	Delete(ctx context.Context, table domain.Table, userID, id string) error
}

// LoginResult is returned by VerifyLogin on success.
type LoginResult struct {
	User         UserRecord
	SessionToken string
	IsNewUser    bool
}

// AuthServiceConfig holds the dependencies for AuthService.
type AuthServiceConfig struct {
	OTPStore  OTPStore
	UserStore UserStore
	Notifier  auth.Notifier
	Minter    *auth.Minter
	Clock     domain.Clock
	Logger    *slog.Logger
}

// AuthService orchestrates the OTP flows: issuance, login verification,
// and the two PIN-reset steps.
type AuthService struct {
	otpStore  OTPStore
	userStore UserStore
	notifier  auth.Notifier
	minter    *auth.Minter
	clock     domain.Clock
	logger    *slog.Logger

	// verifyLocks serializes concurrent verification attempts per phone
	// so the read-then-delete on the OTP row is not racy within this
	// process. Every attempt runs its own checks; results are never
	// shared between callers. Cross-process races remain accepted
	// behavior.
	verifyLocks keyedMutex

	bgWG sync.WaitGroup // owns background goroutines (notifier dispatch)
}

// NewAuthService creates a new AuthService with the given dependencies.
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	return &AuthService{
		otpStore:  cfg.OTPStore,
		userStore: cfg.UserStore,
		notifier:  cfg.Notifier,
		minter:    cfg.Minter,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
}

// Wait blocks until all background goroutines owned by this service complete.
// The wiring layer invokes this during graceful shutdown.
func (s *AuthService) Wait() {
	s.bgWG.Wait()
}

// DataServiceConfig holds the dependencies for DataService.
type DataServiceConfig struct {
	ItemStore ItemStore
	UserStore UserStore
	Validator *auth.Validator
	Clock     domain.Clock
	Logger    *slog.Logger
}

// DataService is the row-scoped data gateway plus the profile and PIN
// operations. Every entry point authenticates the session token first;
// there is no partial authenticated state.
type DataService struct {
	itemStore ItemStore
	userStore UserStore
	validator *auth.Validator
	clock     domain.Clock
	logger    *slog.Logger
}

// NewDataService creates a new DataService with the given dependencies.
func NewDataService(cfg DataServiceConfig) *DataService {
	return &DataService{
		itemStore: cfg.ItemStore,
		userStore: cfg.UserStore,
		validator: cfg.Validator,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
}

// Authenticate verifies a session token and returns the user ID it was
// issued to. The HTTP layer calls this before dispatching so that token
// failures always win over action or table validation.
func (s *DataService) Authenticate(ctx context.Context, sessionToken string) (string, error) {
	return s.authenticate(ctx, sessionToken)
}

// authenticate verifies the session token and returns the user ID it was
// issued to. All token failures count as auth failures in metrics.
func (s *DataService) authenticate(ctx context.Context, sessionToken string) (string, error) {
	userID, err := s.validator.Authenticate(sessionToken)
	if err != nil {
		authFailuresTotal.Add(ctx, 1)
		return "", err
	}
	return userID, nil
}
