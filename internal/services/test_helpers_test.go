package services

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/barberbook/internal/auth"
	"github.com/BradenHooton/barberbook/internal/metrics"
	"github.com/BradenHooton/barberbook/internal/models"
	pkgauth "github.com/BradenHooton/barberbook/pkg/auth"
	pkglogger "github.com/BradenHooton/barberbook/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPassword = "Str0ng!Pass"
	testEmail    = "barber@shop.com"
)

// fakeAccountRepo is an in-memory credential store. Every method holds the
// mutex for its whole body, matching the single-statement SQL updates.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*models.Account

	// GetByEmailErr, when set, is returned by GetByEmail
	GetByEmailErr error
	// RecordFailedLoginErr, when set, is returned by RecordFailedLogin
	RecordFailedLoginErr error

	recordFailedCalls int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*models.Account)}
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	if a.LockUntil != nil {
		t := *a.LockUntil
		c.LockUntil = &t
	}
	if a.RefreshTokenHash != nil {
		h := *a.RefreshTokenHash
		c.RefreshTokenHash = &h
	}
	if a.VerificationTokenHash != nil {
		h := *a.VerificationTokenHash
		c.VerificationTokenHash = &h
	}
	c.TwoFactorSecretEncrypted = append([]byte(nil), a.TwoFactorSecretEncrypted...)
	c.TwoFactorSecretNonce = append([]byte(nil), a.TwoFactorSecretNonce...)
	return &c
}

func (r *fakeAccountRepo) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.Email == account.Email {
			return nil, models.ErrConflict
		}
	}
	stored := cloneAccount(account)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.accounts[stored.ID] = stored
	return cloneAccount(stored), nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.GetByEmailErr != nil {
		return nil, r.GetByEmailErr
	}
	for _, a := range r.accounts {
		if a.Email == strings.ToLower(email) {
			return cloneAccount(a), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeAccountRepo) ClearExpiredLock(_ context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.accounts[id]; ok && a.LockUntil != nil && !a.LockUntil.After(now) {
		a.FailedLoginAttempts = 0
		a.LockUntil = nil
	}
	return nil
}

func (r *fakeAccountRepo) RecordFailedLogin(_ context.Context, id string, policy models.LockoutPolicy, now time.Time) (*models.LockoutState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.RecordFailedLoginErr != nil {
		return nil, r.RecordFailedLoginErr
	}
	a, ok := r.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	r.recordFailedCalls++

	lockUntil := now.Add(policy.Duration)
	switch {
	case a.LockUntil != nil && !a.LockUntil.After(now):
		a.FailedLoginAttempts = 1
		a.LockUntil = nil
		if 1 >= policy.Threshold {
			a.LockUntil = &lockUntil
		}
	case a.LockUntil == nil:
		a.FailedLoginAttempts++
		if a.FailedLoginAttempts >= policy.Threshold {
			a.LockUntil = &lockUntil
		}
	default:
		a.FailedLoginAttempts++
	}

	state := &models.LockoutState{FailedLoginAttempts: a.FailedLoginAttempts}
	if a.LockUntil != nil {
		t := *a.LockUntil
		state.LockUntil = &t
	}
	return state, nil
}

func (r *fakeAccountRepo) CompleteLogin(_ context.Context, id, refreshTokenHash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || a.LockUntil != nil && a.LockUntil.After(now) {
		return models.ErrAccountLocked
	}
	a.FailedLoginAttempts = 0
	a.LockUntil = nil
	a.RefreshTokenHash = &refreshTokenHash
	return nil
}

func (r *fakeAccountRepo) RotateRefreshToken(_ context.Context, id, oldHash, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || a.RefreshTokenHash == nil || *a.RefreshTokenHash != oldHash {
		return models.ErrSessionExpired
	}
	a.RefreshTokenHash = &newHash
	return nil
}

func (r *fakeAccountRepo) ClearRefreshToken(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	a.RefreshTokenHash = nil
	return nil
}

func (r *fakeAccountRepo) VerifyEmail(_ context.Context, tokenHash string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.VerificationTokenHash != nil && *a.VerificationTokenHash == tokenHash {
			a.EmailVerified = true
			a.VerificationTokenHash = nil
			return cloneAccount(a), nil
		}
	}
	return nil, models.ErrInvalidVerificationToken
}

func (r *fakeAccountRepo) SetTwoFactorSecret(_ context.Context, id string, ciphertext, nonce []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || a.TwoFactorEnabled {
		return models.ErrConflict
	}
	a.TwoFactorSecretEncrypted = ciphertext
	a.TwoFactorSecretNonce = nonce
	return nil
}

func (r *fakeAccountRepo) EnableTwoFactor(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || len(a.TwoFactorSecretEncrypted) == 0 {
		return models.ErrTwoFactorNotSetUp
	}
	a.TwoFactorEnabled = true
	return nil
}

func (r *fakeAccountRepo) DisableTwoFactor(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	a.TwoFactorEnabled = false
	a.TwoFactorSecretEncrypted = nil
	a.TwoFactorSecretNonce = nil
	return nil
}

// snapshot returns the stored account without going through the service
func (r *fakeAccountRepo) snapshot(t *testing.T, id string) *models.Account {
	t.Helper()
	a, err := r.GetByID(context.Background(), id)
	require.NoError(t, err)
	return a
}

// MockTokenRevocationRepository implements TokenRevocationRepository for testing
type MockTokenRevocationRepository struct {
	RevokeTokenFunc func(ctx context.Context, jti, accountID string, expiresAt time.Time) error
}

func (m *MockTokenRevocationRepository) RevokeToken(ctx context.Context, jti, accountID string, expiresAt time.Time) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, jti, accountID, expiresAt)
	}
	return nil
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	SendVerificationEmailFunc func(ctx context.Context, email, token string) error
}

func (m *MockEmailSender) SendVerificationEmail(ctx context.Context, email, token string) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email, token)
	}
	return nil
}

// MockIPAttemptStore implements IPAttemptStore for testing
type MockIPAttemptStore struct {
	GetFunc       func(ctx context.Context, ip string, now time.Time) (*models.IPAttemptRecord, error)
	IncrementFunc func(ctx context.Context, ip string, maxFailures int, window time.Duration, now time.Time) (*models.IPAttemptRecord, error)
	DeleteFunc    func(ctx context.Context, ip string) error
}

func (m *MockIPAttemptStore) Get(ctx context.Context, ip string, now time.Time) (*models.IPAttemptRecord, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, ip, now)
	}
	return nil, nil
}

func (m *MockIPAttemptStore) Increment(ctx context.Context, ip string, maxFailures int, window time.Duration, now time.Time) (*models.IPAttemptRecord, error) {
	if m.IncrementFunc != nil {
		return m.IncrementFunc(ctx, ip, maxFailures, window, now)
	}
	return &models.IPAttemptRecord{Count: 1}, nil
}

func (m *MockIPAttemptStore) Delete(ctx context.Context, ip string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, ip)
	}
	return nil
}

// testClock is a settable time source
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(discardLogger())
}

func newTestTOTPManager(t *testing.T) *auth.TOTPManager {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	tm, err := auth.NewTOTPManager(key, "MyBarber.ai", 1)
	require.NoError(t, err)
	return tm
}

// authFixture wires an AuthService over in-memory collaborators
type authFixture struct {
	service *AuthService
	repo    *fakeAccountRepo
	revoke  *MockTokenRevocationRepository
	email   *MockEmailSender
	tokens  *auth.TokenManager
	totp    *auth.TOTPManager
	hasher  *pkgauth.PasswordHasher
	metrics *metrics.Metrics
	clock   *testClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		repo:    newFakeAccountRepo(),
		revoke:  &MockTokenRevocationRepository{},
		email:   &MockEmailSender{},
		tokens:  auth.NewTokenManager("test-secret-key-that-is-at-least-32-characters-long", "barberbook", 15*time.Minute, 7*24*time.Hour),
		totp:    newTestTOTPManager(t),
		hasher:  pkgauth.NewPasswordHasher(bcrypt.MinCost),
		metrics: metrics.New("test"),
		clock:   newTestClock(),
	}

	service, err := NewAuthService(AuthServiceDeps{
		Accounts:    f.repo,
		Revocations: f.revoke,
		Tokens:      f.tokens,
		TOTP:        f.totp,
		Hasher:      f.hasher,
		Email:       f.email,
		Metrics:     f.metrics,
	}, models.DefaultLockoutPolicy(), discardLogger(), newTestAuditLogger())
	require.NoError(t, err)
	service.now = f.clock.Now
	f.service = service
	return f
}

// seedAccount stores an account with testPassword
func (f *authFixture) seedAccount(t *testing.T, email string) *models.Account {
	t.Helper()
	hash, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)
	account, err := f.repo.Create(context.Background(), &models.Account{
		Email:        email,
		Name:         "Test Barber",
		PasswordHash: hash,
	})
	require.NoError(t, err)
	return account
}

// enableTwoFactor provisions and enables a secret, returning it in plaintext
func (f *authFixture) enableTwoFactor(t *testing.T, accountID string) string {
	t.Helper()
	ctx := context.Background()
	enrollment, err := f.totp.GenerateSecret(testEmail)
	require.NoError(t, err)
	ct, nonce, err := f.totp.EncryptSecret(enrollment.Secret)
	require.NoError(t, err)
	require.NoError(t, f.repo.SetTwoFactorSecret(ctx, accountID, ct, nonce))
	require.NoError(t, f.repo.EnableTwoFactor(ctx, accountID))
	return enrollment.Secret
}

func (f *authFixture) login(t *testing.T, email, password, code string) *models.LoginResult {
	t.Helper()
	result, err := f.service.Login(context.Background(), models.LoginCredentials{
		Email:         email,
		Password:      password,
		TwoFactorCode: code,
		IPAddress:     "203.0.113.1",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}
