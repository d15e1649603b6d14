package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/cardbox-io/cardbox/internal/auth"
	"github.com/cardbox-io/cardbox/internal/domain"
)

// VerifyLogin checks the submitted code against the most recent OTP for
// the phone and, on success, logs the user in: an existing user record is
// reused, a missing one is created on the spot, and a fresh session token
// is minted either way.
func (s *AuthService) VerifyLogin(ctx context.Context, rawPhone, code string) (*LoginResult, error) {
	ctx, span := tracer.Start(ctx, "AuthService.VerifyLogin")
	defer span.End()

	phone, err := domain.NewPhoneNumber(rawPhone)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("phone.hash", auth.HashPhone(phone.String())))

	if err := s.consumeOTP(ctx, phone.String(), code); err != nil {
		return nil, err
	}

	user, created, err := s.findOrCreateUser(ctx, phone.String())
	if err != nil {
		return nil, err
	}

	minted, err := s.minter.IssueSession(user.UserID)
	if err != nil {
		return nil, fmt.Errorf("minting session: %w", err)
	}

	sessionMintedTotal.Add(ctx, 1)
	s.logger.InfoContext(ctx, "login verified",
		slog.String("user_id", user.UserID),
		slog.Bool("new_user", created))

	return &LoginResult{User: *user, SessionToken: minted.Token, IsNewUser: created}, nil
}

// consumeOTP validates the submitted code against the latest stored row
// for the phone and deletes the row on success. The checks run in a fixed
// order so each failure mode is reported distinctly:
//
//  1. no row            -> domain.ErrNoOTPFound
//  2. row older than 5m -> domain.ErrOTPExpired (row retained)
//  3. code mismatch     -> domain.ErrInvalidOTP (row retained)
//
// Failed attempts never delete the row, so the caller may retry against
// the same code until it expires. Attempts for the same phone are
// serialized through verifyLocks; each attempt runs the full sequence
// itself against the row state it observes.
func (s *AuthService) consumeOTP(ctx context.Context, phone, code string) error {
	unlock := s.verifyLocks.lock(phone)
	defer unlock()

	record, err := s.otpStore.Latest(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			otpFailuresTotal.Add(ctx, 1)
			return domain.ErrNoOTPFound
		}
		return fmt.Errorf("loading otp: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("parsing otp timestamp: %w", err)
	}
	if s.clock.Now().Sub(createdAt) > domain.OTPValidityDuration {
		otpFailuresTotal.Add(ctx, 1)
		return domain.ErrOTPExpired
	}

	if !auth.VerifyOTPCode(code, record.Code) {
		otpFailuresTotal.Add(ctx, 1)
		return domain.ErrInvalidOTP
	}

	// One-time use: the row is gone before anyone acts on the match.
	if err := s.otpStore.Delete(ctx, *record); err != nil {
		return fmt.Errorf("consuming otp: %w", err)
	}
	return nil
}

// keyedMutex hands out one mutex per key. An entry is dropped once its
// last holder releases, so the map stays bounded by in-flight keys.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l := k.locks[key]
	if l == nil {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (s *AuthService) findOrCreateUser(ctx context.Context, phone string) (*UserRecord, bool, error) {
	user, err := s.userStore.FindByPhone(ctx, phone)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("looking up user: %w", err)
	}

	record := UserRecord{
		UserID:    domain.GenerateUserID().String(),
		Phone:     phone,
		CreatedAt: s.clock.Now().UTC().Format(time.RFC3339),
	}
	if err := s.userStore.Create(ctx, record); err != nil {
		return nil, false, fmt.Errorf("creating user: %w", err)
	}
	return &record, true, nil
}
