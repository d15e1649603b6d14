package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardbox-io/cardbox/internal/auth"
	"github.com/cardbox-io/cardbox/internal/domain"
)

// GetProfile returns the authenticated user's profile. The PIN digest is
// reduced to a HasPin flag; the stored value never reaches a client.
func (s *DataService) GetProfile(ctx context.Context, sessionToken string) (*Profile, error) {
	ctx, span := tracer.Start(ctx, "DataService.GetProfile")
	defer span.End()

	userID, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profileOf(user), nil
}

// UpdateProfile sets the user's display name and email and returns the
// refreshed profile. Phone and identity fields are immutable here; they
// only change through the auth flows.
func (s *DataService) UpdateProfile(ctx context.Context, sessionToken, fullName, email string) (*Profile, error) {
	ctx, span := tracer.Start(ctx, "DataService.UpdateProfile")
	defer span.End()

	userID, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userStore.UpdateProfile(ctx, userID, fullName, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	dataOpsTotal.Add(ctx, 1)
	return profileOf(user), nil
}

// SetPin validates the PIN format and stores its digest for the
// authenticated user, replacing any previous PIN.
func (s *DataService) SetPin(ctx context.Context, sessionToken, pin string) error {
	ctx, span := tracer.Start(ctx, "DataService.SetPin")
	defer span.End()

	userID, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return err
	}

	if err := auth.ValidatePinFormat(pin); err != nil {
		return err
	}

	if err := s.userStore.SetPinHash(ctx, userID, auth.HashPin(pin, userID)); err != nil {
		return fmt.Errorf("storing pin: %w", err)
	}

	s.logger.InfoContext(ctx, "pin set", slog.String("user_id", userID))
	return nil
}

// VerifyPin reports whether the submitted PIN matches the stored digest.
// A mismatch is a normal false result, not an error; domain.ErrNoPinSet
// signals that no PIN exists to check against.
func (s *DataService) VerifyPin(ctx context.Context, sessionToken, pin string) (bool, error) {
	ctx, span := tracer.Start(ctx, "DataService.VerifyPin")
	defer span.End()

	userID, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return false, err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.PinHash == "" {
		return false, domain.ErrNoPinSet
	}

	pinChecksTotal.Add(ctx, 1)
	return auth.VerifyPinDigest(pin, userID, user.PinHash), nil
}

// ClearPin removes the authenticated user's PIN. Clearing when no PIN is
// set is a no-op.
func (s *DataService) ClearPin(ctx context.Context, sessionToken string) error {
	ctx, span := tracer.Start(ctx, "DataService.ClearPin")
	defer span.End()

	userID, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return err
	}

	if err := s.userStore.ClearPinHash(ctx, userID); err != nil {
		return fmt.Errorf("clearing pin: %w", err)
	}

	s.logger.InfoContext(ctx, "pin cleared", slog.String("user_id", userID))
	return nil
}

func (s *DataService) loadUser(ctx context.Context, userID string) (*UserRecord, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

func profileOf(user *UserRecord) *Profile {
	return &Profile{
		ID:        user.UserID,
		Phone:     user.Phone,
		FullName:  user.FullName,
		Email:     user.Email,
		HasPin:    user.PinHash != "",
		CreatedAt: user.CreatedAt,
	}
}
