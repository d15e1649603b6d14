package port

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cardbox-io/cardbox/internal/auth"
	"github.com/cardbox-io/cardbox/internal/cardbox/app"
	"github.com/cardbox-io/cardbox/internal/domain"
	"github.com/cardbox-io/cardbox/internal/domain/domaintest"
)

// The handler tests run against real services wired to in-memory stores,
// so they exercise the full wire contract end to end.

type memOTPStore struct {
	mu   sync.Mutex
	rows []app.OTPRecord
}

func (s *memOTPStore) Insert(_ context.Context, record app.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, record)
	return nil
}

func (s *memOTPStore) Latest(_ context.Context, phone string) (*app.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *app.OTPRecord
	for i := range s.rows {
		r := s.rows[i]
		if r.Phone != phone {
			continue
		}
		if latest == nil || r.CreatedAt > latest.CreatedAt {
			latest = &s.rows[i]
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (s *memOTPStore) Delete(_ context.Context, record app.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, r := range s.rows {
		if r.Phone == record.Phone && r.CreatedAt == record.CreatedAt {
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return nil
}

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*app.UserRecord
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*app.UserRecord)}
}

func (s *memUserStore) GetByID(_ context.Context, userID string) (*app.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *memUserStore) FindByPhone(_ context.Context, phone string) (*app.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Phone == phone {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memUserStore) Create(_ context.Context, record app.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[record.UserID]; ok {
		return domain.ErrAlreadyExists
	}
	s.users[record.UserID] = &record
	return nil
}

func (s *memUserStore) UpdateProfile(_ context.Context, userID, fullName, email string) (*app.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	user.FullName = fullName
	user.Email = email
	copied := *user
	return &copied, nil
}

func (s *memUserStore) SetPinHash(_ context.Context, userID, pinHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	user.PinHash = pinHash
	return nil
}

func (s *memUserStore) ClearPinHash(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	user.PinHash = ""
	return nil
}

type memItemStore struct {
	mu   sync.Mutex
	rows map[domain.Table]map[string]app.Item
}

func newMemItemStore() *memItemStore {
	return &memItemStore{rows: make(map[domain.Table]map[string]app.Item)}
}

func (s *memItemStore) List(_ context.Context, table domain.Table, userID string) ([]app.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []app.Item
	for _, item := range s.rows[table] {
		if item["user_id"] == userID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := out[i]["id"].(string)
		b, _ := out[j]["id"].(string)
		return a < b
	})
	return out, nil
}

func (s *memItemStore) Get(_ context.Context, table domain.Table, userID, id string) (app.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.rows[table][id]
	if !ok || item["user_id"] != userID {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *memItemStore) Put(_ context.Context, table domain.Table, item app.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[table] == nil {
		s.rows[table] = make(map[string]app.Item)
	}
	id, _ := item["id"].(string)
	s.rows[table][id] = item
	return nil
}

func (s *memItemStore) Update(_ context.Context, table domain.Table, userID, id string, attrs app.Item) (app.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.rows[table][id]
	if !ok || item["user_id"] != userID {
		return nil, domain.ErrNotFound
	}
	for k, v := range attrs {
		item[k] = v
	}
	return item, nil
}

func (s *memItemStore) Delete(_ context.Context, table domain.Table, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.rows[table][id]
	if ok && item["user_id"] == userID {
		delete(s.rows[table], id)
	}
	return nil
}

type captureNotifier struct {
	codes chan string
}

func (n *captureNotifier) SendOTP(_ context.Context, _, otp string) error {
	n.codes <- otp
	return nil
}

const (
	harnessSecret = "port-test-secret-0123456789abcdef"
	harnessIssuer = "cardbox"
	harnessPhone  = "+972501234567"
)

var harnessStart = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type portHarness struct {
	sendOTP  *SendOTPHandler
	dataAPI  *DataAPIHandler
	authSvc  *app.AuthService
	otps     *memOTPStore
	users    *memUserStore
	items    *memItemStore
	notifier *captureNotifier
	clock    *domaintest.FakeClock
}

func newPortHarness() *portHarness {
	clock := domaintest.NewFakeClock(harnessStart)
	otps := &memOTPStore{}
	users := newMemUserStore()
	items := newMemItemStore()
	notifier := &captureNotifier{codes: make(chan string, 8)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authSvc := app.NewAuthService(app.AuthServiceConfig{
		OTPStore:  otps,
		UserStore: users,
		Notifier:  notifier,
		Minter: auth.NewMinter(auth.MinterConfig{
			Secret:   domain.SecretBytes(harnessSecret),
			Lifetime: domain.SessionTokenLifetime,
			Issuer:   harnessIssuer,
			Clock:    clock,
		}),
		Clock:  clock,
		Logger: logger,
	})

	dataSvc := app.NewDataService(app.DataServiceConfig{
		ItemStore: items,
		UserStore: users,
		Validator: auth.NewValidator(auth.ValidatorConfig{
			Secret: domain.SecretBytes(harnessSecret),
			Issuer: harnessIssuer,
			Clock:  clock,
		}),
		Clock:  clock,
		Logger: logger,
	})

	return &portHarness{
		sendOTP:  NewSendOTPHandler(authSvc, logger),
		dataAPI:  NewDataAPIHandler(dataSvc, logger),
		authSvc:  authSvc,
		otps:     otps,
		users:    users,
		items:    items,
		notifier: notifier,
		clock:    clock,
	}
}

// post runs a JSON POST against a handler and decodes the response body
// into a generic map.
func post(t *testing.T, handler http.Handler, body any) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded),
		"body: %s", rec.Body.String())
	return rec.Code, decoded
}

func postList(t *testing.T, handler http.Handler, body any) (int, []any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	handler.ServeHTTP(rec, req)

	var decoded []any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded),
		"body: %s", rec.Body.String())
	return rec.Code, decoded
}

// login walks the real flow: issue a code, capture it from the notifier,
// verify it, and return the minted session token.
func (h *portHarness) login(t *testing.T, phone string) string {
	t.Helper()

	status, _ := post(t, h.sendOTP, map[string]any{"phone": phone})
	require.Equal(t, http.StatusOK, status)
	h.authSvc.Wait()

	var code string
	select {
	case code = <-h.notifier.codes:
	default:
		t.Fatal("no otp dispatched")
	}

	status, body := post(t, h.sendOTP, map[string]any{
		"phone": phone, "action": "verify", "userOtp": code,
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["success"], "login failed: %v", body)

	token, _ := body["sessionToken"].(string)
	require.NotEmpty(t, token)
	return token
}

func itemID(t *testing.T, body map[string]any) string {
	t.Helper()
	id, ok := body["id"].(string)
	require.True(t, ok, "missing id in %v", body)
	return id
}

