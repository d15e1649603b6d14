// Package domain contains pure business logic and types.
// No external dependencies allowed beyond uuid - this is the innermost ring.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// UserID is a value object representing a unique user identifier.
// Always valid in memory - use NewUserID to construct.
type UserID struct {
	value string
}

// NewUserID creates a UserID from a raw string, validating it is a valid UUID.
func NewUserID(raw string) (UserID, error) {
	if raw == "" {
		return UserID{}, ErrEmptyID
	}
	if _, err := uuid.Parse(raw); err != nil {
		return UserID{}, fmt.Errorf("invalid user ID %q: %w", raw, ErrInvalidID)
	}
	return UserID{value: raw}, nil
}

// MustUserID creates a UserID, panicking on invalid input. Use only in tests.
func MustUserID(raw string) UserID {
	id, err := NewUserID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateUserID creates a new random UserID.
func GenerateUserID() UserID {
	return UserID{value: uuid.NewString()}
}

func (id UserID) String() string { return id.value }
func (id UserID) IsZero() bool   { return id.value == "" }

// ItemID is a value object representing a unique row identifier in one of
// the user-owned tables (cards, folders, tags).
type ItemID struct {
	value string
}

// NewItemID creates an ItemID from a raw string, validating it is a valid UUID.
func NewItemID(raw string) (ItemID, error) {
	if raw == "" {
		return ItemID{}, ErrEmptyID
	}
	if _, err := uuid.Parse(raw); err != nil {
		return ItemID{}, fmt.Errorf("invalid item ID %q: %w", raw, ErrInvalidID)
	}
	return ItemID{value: raw}, nil
}

// MustItemID creates an ItemID, panicking on invalid input. Use only in tests.
func MustItemID(raw string) ItemID {
	id, err := NewItemID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateItemID creates a new random ItemID.
func GenerateItemID() ItemID {
	return ItemID{value: uuid.NewString()}
}

func (id ItemID) String() string { return id.value }
func (id ItemID) IsZero() bool   { return id.value == "" }

// OTPID is a value object identifying a stored one-time code row.
type OTPID struct {
	value string
}

// NewOTPID creates an OTPID from a raw string, validating it is a valid UUID.
func NewOTPID(raw string) (OTPID, error) {
	if raw == "" {
		return OTPID{}, ErrEmptyID
	}
	if _, err := uuid.Parse(raw); err != nil {
		return OTPID{}, fmt.Errorf("invalid OTP ID %q: %w", raw, ErrInvalidID)
	}
	return OTPID{value: raw}, nil
}

// GenerateOTPID creates a new random OTPID.
func GenerateOTPID() OTPID {
	return OTPID{value: uuid.NewString()}
}

func (id OTPID) String() string { return id.value }
func (id OTPID) IsZero() bool   { return id.value == "" }
