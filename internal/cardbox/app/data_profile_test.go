package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardbox-io/cardbox/internal/auth"
	"github.com/cardbox-io/cardbox/internal/domain"
)

func (h *dataHarness) withStoredUser(pinHash string) *UserRecord {
	user := &UserRecord{
		UserID:    h.userID,
		Phone:     testPhone,
		FullName:  "Ada Lovelace",
		Email:     "ada@example.com",
		PinHash:   pinHash,
		CreatedAt: "2024-01-01T00:00:00Z",
	}
	h.users.getByIDFn = func(ctx context.Context, userID string) (*UserRecord, error) {
		if userID == user.UserID {
			return user, nil
		}
		return nil, domain.ErrNotFound
	}
	return user
}

func TestGetProfile_ReportsHasPinNotDigest(t *testing.T) {
	h := newDataHarness()
	h.withStoredUser("some-digest")

	profile, err := h.service.GetProfile(context.Background(), h.token)
	require.NoError(t, err)

	assert.Equal(t, h.userID, profile.ID)
	assert.Equal(t, testPhone, profile.Phone)
	assert.Equal(t, "Ada Lovelace", profile.FullName)
	assert.True(t, profile.HasPin)

	h.withStoredUser("")
	profile, err = h.service.GetProfile(context.Background(), h.token)
	require.NoError(t, err)
	assert.False(t, profile.HasPin)
}

func TestUpdateProfile_ReturnsRefreshedProfile(t *testing.T) {
	h := newDataHarness()
	h.users.updateFn = func(ctx context.Context, userID, fullName, email string) (*UserRecord, error) {
		require.Equal(t, h.userID, userID)
		return &UserRecord{UserID: userID, Phone: testPhone, FullName: fullName, Email: email}, nil
	}

	profile, err := h.service.UpdateProfile(context.Background(), h.token, "Grace Hopper", "grace@example.com")
	require.NoError(t, err)

	assert.Equal(t, "Grace Hopper", profile.FullName)
	assert.Equal(t, "grace@example.com", profile.Email)
}

func TestSetPin_ValidatesFormat(t *testing.T) {
	tests := []struct {
		name   string
		pin    string
		wantOK bool
	}{
		{name: "four digits", pin: "1234", wantOK: true},
		{name: "six digits", pin: "123456", wantOK: true},
		{name: "too short", pin: "123", wantOK: false},
		{name: "too long", pin: "1234567", wantOK: false},
		{name: "letters", pin: "12ab", wantOK: false},
		{name: "empty", pin: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newDataHarness()

			err := h.service.SetPin(context.Background(), h.token, tt.pin)
			if !tt.wantOK {
				require.ErrorIs(t, err, domain.ErrInvalidPinFormat)
				assert.Empty(t, h.users.pinSet)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, auth.HashPin(tt.pin, h.userID), h.users.pinSet[h.userID],
				"the digest is salted with the user id")
		})
	}
}

func TestVerifyPin(t *testing.T) {
	h := newDataHarness()
	h.withStoredUser(auth.HashPin("4321", h.userID))

	valid, err := h.service.VerifyPin(context.Background(), h.token, "4321")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = h.service.VerifyPin(context.Background(), h.token, "0000")
	require.NoError(t, err, "a mismatch is a result, not an error")
	assert.False(t, valid)
}

func TestVerifyPin_NoPinConfigured(t *testing.T) {
	h := newDataHarness()
	h.withStoredUser("")

	_, err := h.service.VerifyPin(context.Background(), h.token, "1234")
	require.ErrorIs(t, err, domain.ErrNoPinSet)
}

func TestClearPin(t *testing.T) {
	h := newDataHarness()

	err := h.service.ClearPin(context.Background(), h.token)
	require.NoError(t, err)
	assert.Equal(t, []string{h.userID}, h.users.pinCleared)
}
