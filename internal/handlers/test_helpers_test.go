package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/barberbook/internal/auth"
	"github.com/BradenHooton/barberbook/internal/models"
	"github.com/BradenHooton/barberbook/internal/services"
	pkghttp "github.com/BradenHooton/barberbook/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds access token claims to the request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Type:   models.TokenTypeAccess,
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response and returns it
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc        func(ctx context.Context, creds models.LoginCredentials) (*models.LoginResult, error)
	RegisterFunc     func(ctx context.Context, in services.RegisterInput) (*models.AuthResponse, error)
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	LogoutFunc       func(ctx context.Context, claims *models.TokenClaims, ipAddress string) error
	VerifyEmailFunc  func(ctx context.Context, token string) error
	MeFunc           func(ctx context.Context, accountID string) (*models.PublicProfile, error)
}

func (m *MockAuthService) Login(ctx context.Context, creds models.LoginCredentials) (*models.LoginResult, error) {
	if m.LoginFunc == nil {
		return models.LoginRejected(models.RejectInvalidCredentials), nil
	}
	return m.LoginFunc(ctx, creds)
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*models.AuthResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, in)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if m.RefreshTokenFunc == nil {
		return nil, models.ErrSessionExpired
	}
	return m.RefreshTokenFunc(ctx, refreshToken)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *models.TokenClaims, ipAddress string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, claims, ipAddress)
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, token string) error {
	if m.VerifyEmailFunc == nil {
		return models.ErrInvalidVerificationToken
	}
	return m.VerifyEmailFunc(ctx, token)
}

func (m *MockAuthService) Me(ctx context.Context, accountID string) (*models.PublicProfile, error) {
	if m.MeFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.MeFunc(ctx, accountID)
}

// MockIPGuard implements IPGuardInterface and records the calls it receives
type MockIPGuard struct {
	CheckFunc func(ctx context.Context, ip string) models.IPDecision
	Failures  []string
	Successes []string
}

func (m *MockIPGuard) Check(ctx context.Context, ip string) models.IPDecision {
	if m.CheckFunc == nil {
		return models.IPDecision{Allowed: true}
	}
	return m.CheckFunc(ctx, ip)
}

func (m *MockIPGuard) RecordFailure(_ context.Context, ip string) {
	m.Failures = append(m.Failures, ip)
}

func (m *MockIPGuard) RecordSuccess(_ context.Context, ip string) {
	m.Successes = append(m.Successes, ip)
}

// MockTwoFactorService implements TwoFactorServiceInterface for testing
type MockTwoFactorService struct {
	SetupFunc   func(ctx context.Context, accountID string) (*auth.TOTPEnrollment, error)
	VerifyFunc  func(ctx context.Context, accountID, code string) error
	DisableFunc func(ctx context.Context, accountID, code string) error
}

func (m *MockTwoFactorService) Setup(ctx context.Context, accountID string) (*auth.TOTPEnrollment, error) {
	if m.SetupFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.SetupFunc(ctx, accountID)
}

func (m *MockTwoFactorService) Verify(ctx context.Context, accountID, code string) error {
	if m.VerifyFunc == nil {
		return models.ErrTwoFactorNotSetUp
	}
	return m.VerifyFunc(ctx, accountID, code)
}

func (m *MockTwoFactorService) Disable(ctx context.Context, accountID, code string) error {
	if m.DisableFunc == nil {
		return models.ErrTwoFactorNotEnabled
	}
	return m.DisableFunc(ctx, accountID, code)
}

// MockPinger implements Pinger for testing
type MockPinger struct {
	Err error
}

func (m *MockPinger) HealthCheck(context.Context) error {
	return m.Err
}
