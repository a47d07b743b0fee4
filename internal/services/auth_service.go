package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/barberbook/internal/auth"
	"github.com/BradenHooton/barberbook/internal/models"
	pkgauth "github.com/BradenHooton/barberbook/pkg/auth"
	pkglogger "github.com/BradenHooton/barberbook/pkg/logger"
)

// AccountRepository is the credential store used by AuthService
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	ClearExpiredLock(ctx context.Context, id string, now time.Time) error
	RecordFailedLogin(ctx context.Context, id string, policy models.LockoutPolicy, now time.Time) (*models.LockoutState, error)
	CompleteLogin(ctx context.Context, id, refreshTokenHash string, now time.Time) error
	RotateRefreshToken(ctx context.Context, id, oldHash, newHash string) error
	ClearRefreshToken(ctx context.Context, id string) error
	VerifyEmail(ctx context.Context, tokenHash string) (*models.Account, error)
}

// TokenRevocationRepository records access tokens revoked by logout
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti, accountID string, expiresAt time.Time) error
}

// AuthServiceDeps groups the collaborators of AuthService
type AuthServiceDeps struct {
	Accounts    AccountRepository
	Revocations TokenRevocationRepository
	Tokens      *auth.TokenManager
	TOTP        *auth.TOTPManager
	Hasher      *pkgauth.PasswordHasher
	Email       EmailSender
	Timing      *auth.TimingDelay
	Metrics     MetricsRecorder
}

// RegisterInput is a validated registration request
type RegisterInput struct {
	Email     string
	Password  string
	Name      string
	IPAddress string
	UserAgent string
}

// AuthService runs the login state machine and the session lifecycle
type AuthService struct {
	repo        AccountRepository
	revokeRepo  TokenRevocationRepository
	tm          *auth.TokenManager
	totp        *auth.TOTPManager
	hasher      *pkgauth.PasswordHasher
	email       EmailSender
	timing      *auth.TimingDelay
	metrics     MetricsRecorder
	policy      models.LockoutPolicy
	dummyHash   string
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewAuthService creates a new AuthService. It precomputes a bcrypt hash at
// the configured cost so unknown emails cost the same as wrong passwords.
func NewAuthService(deps AuthServiceDeps, policy models.LockoutPolicy, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) (*AuthService, error) {
	dummyHash, err := deps.Hasher.Hash("barberbook-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &AuthService{
		repo:        deps.Accounts,
		revokeRepo:  deps.Revocations,
		tm:          deps.Tokens,
		totp:        deps.TOTP,
		hasher:      deps.Hasher,
		email:       deps.Email,
		timing:      deps.Timing,
		metrics:     metricsOrNoop(deps.Metrics),
		policy:      policy,
		dummyHash:   dummyHash,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}, nil
}

// Login runs LockCheck, PasswordCheck and TwoFactorCheck in order. Every
// expected refusal is a LoginResult rejection; the error return is reserved
// for storage, crypto and signing failures.
func (s *AuthService) Login(ctx context.Context, creds models.LoginCredentials) (*models.LoginResult, error) {
	result, err := s.login(ctx, creds)
	switch {
	case err != nil:
		s.metrics.ObserveLogin("error")
	case result.Succeeded():
		s.metrics.ObserveLogin("success")
	default:
		s.metrics.ObserveLogin(string(result.Rejection.Kind))
	}
	return result, err
}

func (s *AuthService) login(ctx context.Context, creds models.LoginCredentials) (*models.LoginResult, error) {
	start := time.Now()
	now := s.now()
	email := pkgauth.NormalizeEmail(creds.Email)

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to load account: %w", err)
		}
		s.hasher.Verify(creds.Password, s.dummyHash)
		s.auditFailure(creds, "", email, "unknown_email")
		return s.reject(ctx, start, models.RejectInvalidCredentials), nil
	}

	if account.IsLocked(now) {
		s.auditFailure(creds, account.ID, email, string(models.RejectAccountLocked))
		return models.LoginLocked(account.LockRemaining(now)), nil
	}

	if account.HasExpiredLock(now) {
		if err := s.repo.ClearExpiredLock(ctx, account.ID, now); err != nil {
			return nil, fmt.Errorf("failed to clear expired lock: %w", err)
		}
		account.FailedLoginAttempts = 0
		account.LockUntil = nil
	}

	if !s.hasher.Verify(creds.Password, account.PasswordHash) {
		state, err := s.repo.RecordFailedLogin(ctx, account.ID, s.policy, now)
		if err != nil {
			return nil, fmt.Errorf("failed to record failed login: %w", err)
		}
		if state.LockUntil != nil && state.FailedLoginAttempts == s.policy.Threshold {
			s.logger.Warn("account locked after failed logins",
				slog.String("user_id", account.ID),
				slog.Int("failed_attempts", state.FailedLoginAttempts))
			s.auditLogger.LogLockout(account.ID, creds.IPAddress, state.FailedLoginAttempts, *state.LockUntil)
		}
		s.auditFailure(creds, account.ID, email, string(models.RejectInvalidCredentials))
		return s.reject(ctx, start, models.RejectInvalidCredentials), nil
	}

	if account.TwoFactorEnabled {
		if creds.TwoFactorCode == "" {
			s.auditFailure(creds, account.ID, email, string(models.RejectTwoFactorRequired))
			return models.LoginRejected(models.RejectTwoFactorRequired), nil
		}

		secret, err := s.totp.DecryptSecret(account.TwoFactorSecretEncrypted, account.TwoFactorSecretNonce)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt two-factor secret: %w", err)
		}
		if !s.totp.Validate(secret, creds.TwoFactorCode, now) {
			s.auditFailure(creds, account.ID, email, string(models.RejectInvalidTwoFactorCode))
			return s.reject(ctx, start, models.RejectInvalidTwoFactorCode), nil
		}
	}

	resp, err := s.startSession(ctx, account, "login", now)
	if errors.Is(err, models.ErrAccountLocked) {
		return s.lockedByConcurrentAttempt(ctx, creds, account.ID, email, now)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", account.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventLogin,
		UserID:    account.ID,
		IPAddress: creds.IPAddress,
		UserAgent: creds.UserAgent,
		Success:   true,
	})
	return models.LoginSucceeded(resp), nil
}

// Register creates an account and signs it in. A taken email yields
// models.ErrConflict; a weak password yields *pkgauth.PasswordValidationError.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.AuthResponse, error) {
	email := pkgauth.NormalizeEmail(in.Email)

	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		s.metrics.ObserveRegistration("weak_password")
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken, verificationHash, err := pkgauth.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	account, err := s.repo.Create(ctx, &models.Account{
		Email:                 email,
		Name:                  in.Name,
		PasswordHash:          passwordHash,
		VerificationTokenHash: &verificationHash,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.metrics.ObserveRegistration("conflict")
			return nil, models.ErrConflict
		}
		s.metrics.ObserveRegistration("error")
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	resp, err := s.startSession(ctx, account, "register", s.now())
	if err != nil {
		return nil, err
	}

	if err := s.email.SendVerificationEmail(ctx, account.Email, verificationToken); err != nil {
		s.logger.Error("failed to send verification email",
			slog.String("user_id", account.ID),
			slog.Any("error", err))
	}

	s.metrics.ObserveRegistration("success")
	s.logger.Info("account registered", slog.String("user_id", account.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventRegister,
		UserID:    account.ID,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Success:   true,
	})
	return resp, nil
}

// RefreshToken exchanges the account's current refresh token for a new pair.
// Any failure, including reuse of a superseded token, is ErrSessionExpired.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	pair, err := s.refreshToken(ctx, refreshToken)
	s.metrics.ObserveTokens("refresh", resultLabel(err))
	return pair, err
}

func (s *AuthService) refreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.tm.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, models.ErrSessionExpired
	}

	pair, err := s.tm.GenerateTokenPair(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	err = s.repo.RotateRefreshToken(ctx, claims.UserID, pkgauth.HashToken(refreshToken), pkgauth.HashToken(pair.RefreshToken))
	if err != nil {
		if errors.Is(err, models.ErrSessionExpired) || errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("refresh with superseded token", slog.String("user_id", claims.UserID))
			return nil, models.ErrSessionExpired
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	s.auditLogger.LogAccountAction(pkglogger.EventTokenRefresh, claims.UserID, "", nil)
	return pair, nil
}

// Logout revokes the presented access token and drops the refresh token
func (s *AuthService) Logout(ctx context.Context, claims *models.TokenClaims, ipAddress string) error {
	if claims == nil {
		return models.ErrUnauthorized
	}

	expiresAt := s.now().Add(s.tm.AccessTokenExpiry())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revokeRepo.RevokeToken(ctx, claims.ID, claims.UserID, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}
	if err := s.repo.ClearRefreshToken(ctx, claims.UserID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}

	s.auditLogger.LogAccountAction(pkglogger.EventLogout, claims.UserID, ipAddress, nil)
	return nil
}

// VerifyEmail consumes a verification token from the welcome email
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return models.ErrInvalidVerificationToken
	}

	account, err := s.repo.VerifyEmail(ctx, pkgauth.HashToken(token))
	if err != nil {
		return err
	}

	s.auditLogger.LogAccountAction(pkglogger.EventEmailVerified, account.ID, "", nil)
	return nil
}

// Me returns the public profile of an account
func (s *AuthService) Me(ctx context.Context, accountID string) (*models.PublicProfile, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.PublicProfile(), nil
}

// startSession issues a token pair, resets lockout state and stores the
// refresh token hash as the account's only session.
func (s *AuthService) startSession(ctx context.Context, account *models.Account, flow string, now time.Time) (*models.AuthResponse, error) {
	pair, err := s.issueSession(ctx, account.ID, now)
	s.metrics.ObserveTokens(flow, resultLabel(err))
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         account.PublicProfile(),
	}, nil
}

func (s *AuthService) issueSession(ctx context.Context, accountID string, now time.Time) (*models.TokenPair, error) {
	pair, err := s.tm.GenerateTokenPair(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	if err := s.repo.CompleteLogin(ctx, accountID, pkgauth.HashToken(pair.RefreshToken), now); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return pair, nil
}

// lockedByConcurrentAttempt reports the lock another request set after this
// one passed LockCheck. The correct password does not override it.
func (s *AuthService) lockedByConcurrentAttempt(ctx context.Context, creds models.LoginCredentials, accountID, email string, now time.Time) (*models.LoginResult, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload locked account: %w", err)
	}
	s.auditFailure(creds, accountID, email, string(models.RejectAccountLocked))
	return models.LoginLocked(account.LockRemaining(now)), nil
}

// reject pads the response time before returning a rejection
func (s *AuthService) reject(ctx context.Context, start time.Time, kind models.RejectionKind) *models.LoginResult {
	s.timing.WaitFrom(ctx, start)
	return models.LoginRejected(kind)
}

func (s *AuthService) auditFailure(creds models.LoginCredentials, accountID, email, reason string) {
	s.logger.Info("login failed", slog.String("reason", reason))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     pkglogger.EventLogin,
		UserID:        accountID,
		Email:         email,
		IPAddress:     creds.IPAddress,
		UserAgent:     creds.UserAgent,
		Success:       false,
		FailureReason: reason,
	})
}
