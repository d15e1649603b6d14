package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cardbox-io/cardbox/internal/auth"
	"github.com/cardbox-io/cardbox/internal/domain"
	"github.com/cardbox-io/cardbox/internal/domain/domaintest"
)

// Stubs follow the fn-field pattern: set only the functions a test cares
// about, everything else falls back to a benign default.

type stubOTPStore struct {
	mu       sync.Mutex
	insertFn func(ctx context.Context, record OTPRecord) error
	latestFn func(ctx context.Context, phone string) (*OTPRecord, error)
	deleteFn func(ctx context.Context, record OTPRecord) error
	inserted []OTPRecord
	deleted  []OTPRecord
}

func (s *stubOTPStore) Insert(ctx context.Context, record OTPRecord) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, record)
	return nil
}

func (s *stubOTPStore) Latest(ctx context.Context, phone string) (*OTPRecord, error) {
	if s.latestFn != nil {
		return s.latestFn(ctx, phone)
	}
	return nil, domain.ErrNotFound
}

func (s *stubOTPStore) Delete(ctx context.Context, record OTPRecord) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, record)
	return nil
}

func (s *stubOTPStore) insertedRecords() []OTPRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OTPRecord(nil), s.inserted...)
}

func (s *stubOTPStore) deletedRecords() []OTPRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OTPRecord(nil), s.deleted...)
}

type stubUserStore struct {
	mu            sync.Mutex
	getByIDFn     func(ctx context.Context, userID string) (*UserRecord, error)
	findByPhoneFn func(ctx context.Context, phone string) (*UserRecord, error)
	createFn      func(ctx context.Context, record UserRecord) error
	updateFn      func(ctx context.Context, userID, fullName, email string) (*UserRecord, error)
	setPinFn      func(ctx context.Context, userID, pinHash string) error
	clearPinFn    func(ctx context.Context, userID string) error
	created       []UserRecord
	pinCleared    []string
	pinSet        map[string]string
}

func (s *stubUserStore) GetByID(ctx context.Context, userID string) (*UserRecord, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, userID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubUserStore) FindByPhone(ctx context.Context, phone string) (*UserRecord, error) {
	if s.findByPhoneFn != nil {
		return s.findByPhoneFn(ctx, phone)
	}
	return nil, domain.ErrNotFound
}

func (s *stubUserStore) Create(ctx context.Context, record UserRecord) error {
	if s.createFn != nil {
		return s.createFn(ctx, record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, record)
	return nil
}

func (s *stubUserStore) UpdateProfile(ctx context.Context, userID, fullName, email string) (*UserRecord, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, userID, fullName, email)
	}
	return nil, domain.ErrNotFound
}

func (s *stubUserStore) SetPinHash(ctx context.Context, userID, pinHash string) error {
	if s.setPinFn != nil {
		return s.setPinFn(ctx, userID, pinHash)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pinSet == nil {
		s.pinSet = make(map[string]string)
	}
	s.pinSet[userID] = pinHash
	return nil
}

func (s *stubUserStore) ClearPinHash(ctx context.Context, userID string) error {
	if s.clearPinFn != nil {
		return s.clearPinFn(ctx, userID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinCleared = append(s.pinCleared, userID)
	return nil
}

type stubItemStore struct {
	listFn   func(ctx context.Context, table domain.Table, userID string) ([]Item, error)
	getFn    func(ctx context.Context, table domain.Table, userID, id string) (Item, error)
	putFn    func(ctx context.Context, table domain.Table, item Item) error
	updateFn func(ctx context.Context, table domain.Table, userID, id string, attrs Item) (Item, error)
	deleteFn func(ctx context.Context, table domain.Table, userID, id string) error
}

func (s *stubItemStore) List(ctx context.Context, table domain.Table, userID string) ([]Item, error) {
	if s.listFn != nil {
		return s.listFn(ctx, table, userID)
	}
	return nil, nil
}

func (s *stubItemStore) Get(ctx context.Context, table domain.Table, userID, id string) (Item, error) {
	if s.getFn != nil {
		return s.getFn(ctx, table, userID, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubItemStore) Put(ctx context.Context, table domain.Table, item Item) error {
	if s.putFn != nil {
		return s.putFn(ctx, table, item)
	}
	return nil
}

func (s *stubItemStore) Update(ctx context.Context, table domain.Table, userID, id string, attrs Item) (Item, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, table, userID, id, attrs)
	}
	return nil, domain.ErrNotFound
}

func (s *stubItemStore) Delete(ctx context.Context, table domain.Table, userID, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, table, userID, id)
	}
	return nil
}

type stubNotifier struct {
	sendFn func(ctx context.Context, phone, otp string) error
	sent   chan string
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{sent: make(chan string, 8)}
}

func (s *stubNotifier) SendOTP(ctx context.Context, phone, otp string) error {
	if s.sendFn != nil {
		return s.sendFn(ctx, phone, otp)
	}
	s.sent <- otp
	return nil
}

const (
	testPhone  = "+15550001111"
	testSecret = "test-session-secret-0123456789ab"
	testIssuer = "cardbox"
)

var testStart = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type authHarness struct {
	service  *AuthService
	otps     *stubOTPStore
	users    *stubUserStore
	notifier *stubNotifier
	clock    *domaintest.FakeClock
}

func newAuthHarness() *authHarness {
	clock := domaintest.NewFakeClock(testStart)
	otps := &stubOTPStore{}
	users := &stubUserStore{}
	notifier := newStubNotifier()

	service := NewAuthService(AuthServiceConfig{
		OTPStore:  otps,
		UserStore: users,
		Notifier:  notifier,
		Minter: auth.NewMinter(auth.MinterConfig{
			Secret:   domain.SecretBytes(testSecret),
			Lifetime: domain.SessionTokenLifetime,
			Issuer:   testIssuer,
			Clock:    clock,
		}),
		Clock:  clock,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &authHarness{service: service, otps: otps, users: users, notifier: notifier, clock: clock}
}

type dataHarness struct {
	service *DataService
	items   *stubItemStore
	users   *stubUserStore
	clock   *domaintest.FakeClock
	token   string
	userID  string
}

func newDataHarness() *dataHarness {
	clock := domaintest.NewFakeClock(testStart)
	items := &stubItemStore{}
	users := &stubUserStore{}

	minter := auth.NewMinter(auth.MinterConfig{
		Secret:   domain.SecretBytes(testSecret),
		Lifetime: domain.SessionTokenLifetime,
		Issuer:   testIssuer,
		Clock:    clock,
	})
	userID := domain.GenerateUserID().String()
	minted, err := minter.IssueSession(userID)
	if err != nil {
		panic(err)
	}

	service := NewDataService(DataServiceConfig{
		ItemStore: items,
		UserStore: users,
		Validator: auth.NewValidator(auth.ValidatorConfig{
			Secret: domain.SecretBytes(testSecret),
			Issuer: testIssuer,
			Clock:  clock,
		}),
		Clock:  clock,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &dataHarness{
		service: service,
		items:   items,
		users:   users,
		clock:   clock,
		token:   minted.Token,
		userID:  userID,
	}
}
