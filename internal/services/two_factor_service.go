package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/barberbook/internal/auth"
	"github.com/BradenHooton/barberbook/internal/models"
	pkglogger "github.com/BradenHooton/barberbook/pkg/logger"
)

// TwoFactorRepository stores TOTP secrets and the enabled flag
type TwoFactorRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	SetTwoFactorSecret(ctx context.Context, id string, ciphertext, nonce []byte) error
	EnableTwoFactor(ctx context.Context, id string) error
	DisableTwoFactor(ctx context.Context, id string) error
}

// TwoFactorService handles TOTP enrollment for signed-in accounts
type TwoFactorService struct {
	repo        TwoFactorRepository
	totp        *auth.TOTPManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewTwoFactorService creates a new TwoFactorService
func NewTwoFactorService(repo TwoFactorRepository, totp *auth.TOTPManager, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *TwoFactorService {
	return &TwoFactorService{
		repo:        repo,
		totp:        totp,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Setup provisions a fresh secret. Two-factor stays disabled until Verify
// confirms a code from it. Calling Setup again replaces a pending secret.
func (s *TwoFactorService) Setup(ctx context.Context, accountID string) (*auth.TOTPEnrollment, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.TwoFactorEnabled {
		return nil, models.ErrConflict
	}

	enrollment, err := s.totp.GenerateSecret(account.Email)
	if err != nil {
		return nil, err
	}

	ciphertext, nonce, err := s.totp.EncryptSecret(enrollment.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt two-factor secret: %w", err)
	}

	if err := s.repo.SetTwoFactorSecret(ctx, account.ID, ciphertext, nonce); err != nil {
		return nil, err
	}

	s.auditLogger.LogAccountAction(pkglogger.EventTwoFactorSetup, account.ID, "", nil)
	return enrollment, nil
}

// Verify enables two-factor once code matches the pending secret
func (s *TwoFactorService) Verify(ctx context.Context, accountID, code string) error {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.HasTwoFactorSecret() {
		return models.ErrTwoFactorNotSetUp
	}

	if err := s.checkCode(account, code); err != nil {
		return err
	}

	if err := s.repo.EnableTwoFactor(ctx, account.ID); err != nil {
		return err
	}

	s.logger.Info("two-factor enabled", slog.String("user_id", account.ID))
	s.auditLogger.LogAccountAction(pkglogger.EventTwoFactorEnabled, account.ID, "", nil)
	return nil
}

// Disable turns two-factor off after confirming a current code
func (s *TwoFactorService) Disable(ctx context.Context, accountID, code string) error {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.TwoFactorEnabled {
		return models.ErrTwoFactorNotEnabled
	}

	if err := s.checkCode(account, code); err != nil {
		return err
	}

	if err := s.repo.DisableTwoFactor(ctx, account.ID); err != nil {
		return err
	}

	s.logger.Info("two-factor disabled", slog.String("user_id", account.ID))
	s.auditLogger.LogAccountAction(pkglogger.EventTwoFactorDisabled, account.ID, "", nil)
	return nil
}

func (s *TwoFactorService) checkCode(account *models.Account, code string) error {
	secret, err := s.totp.DecryptSecret(account.TwoFactorSecretEncrypted, account.TwoFactorSecretNonce)
	if err != nil {
		return fmt.Errorf("failed to decrypt two-factor secret: %w", err)
	}
	if !s.totp.Validate(secret, code, s.now()) {
		return models.ErrInvalidTwoFactorCode
	}
	return nil
}
