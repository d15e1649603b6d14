package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardbox-io/cardbox/internal/domain"
)

// RequestPinReset starts a PIN reset: it confirms the phone belongs to an
// existing user and then issues an OTP through the normal path. Unknown
// phones fail with domain.ErrNotFound before any code is generated, so a
// reset can never be initiated for a phone that has no account.
func (s *AuthService) RequestPinReset(ctx context.Context, rawPhone string) error {
	ctx, span := tracer.Start(ctx, "AuthService.RequestPinReset")
	defer span.End()

	phone, err := domain.NewPhoneNumber(rawPhone)
	if err != nil {
		return err
	}

	if _, err := s.userStore.FindByPhone(ctx, phone.String()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	return s.IssueOTP(ctx, phone.String())
}

// VerifyPinReset completes a PIN reset: the submitted code is consumed
// exactly like a login code, and on success the user's stored PIN digest
// is removed. No session token is minted; the client logs in separately.
func (s *AuthService) VerifyPinReset(ctx context.Context, rawPhone, code string) error {
	ctx, span := tracer.Start(ctx, "AuthService.VerifyPinReset")
	defer span.End()

	phone, err := domain.NewPhoneNumber(rawPhone)
	if err != nil {
		return err
	}

	if err := s.consumeOTP(ctx, phone.String(), code); err != nil {
		return err
	}

	user, err := s.userStore.FindByPhone(ctx, phone.String())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	if err := s.userStore.ClearPinHash(ctx, user.UserID); err != nil {
		return fmt.Errorf("clearing pin: %w", err)
	}

	s.logger.InfoContext(ctx, "pin cleared after reset", slog.String("user_id", user.UserID))
	return nil
}
