package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/barberbook/internal/database"
	"github.com/BradenHooton/barberbook/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, email, name, password_hash, email_verified, verification_token_hash,
	two_factor_enabled, two_factor_secret_encrypted, two_factor_secret_nonce,
	refresh_token_hash, failed_login_attempts, lock_until, created_at, updated_at`

// AccountRepository is the Postgres credential store
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var a models.Account
	err := scanner.Scan(
		&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.EmailVerified, &a.VerificationTokenHash,
		&a.TwoFactorEnabled, &a.TwoFactorSecretEncrypted, &a.TwoFactorSecretNonce,
		&a.RefreshTokenHash, &a.FailedLoginAttempts, &a.LockUntil, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &a, nil
}

// Create inserts a new account. The email must already be normalised;
// a duplicate yields models.ErrConflict.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	query := `
		INSERT INTO accounts (id, email, name, password_hash, verification_token_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + accountColumns

	created, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.Email, account.Name, account.PasswordHash, account.VerificationTokenHash,
	))
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = lower($1)`
	return scanAccountRow(r.pool.QueryRow(ctx, query, email))
}

// ClearExpiredLock resets the counter and lock of an account whose lock has
// elapsed at now. It is a no-op for unlocked or still-locked accounts.
func (r *AccountRepository) ClearExpiredLock(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE accounts
		SET failed_login_attempts = 0, lock_until = NULL, updated_at = $2
		WHERE id = $1 AND lock_until IS NOT NULL AND lock_until <= $2
	`
	if _, err := r.pool.Exec(ctx, query, id, now); err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// RecordFailedLogin increments the failure counter in a single statement and
// sets lock_until when the threshold is reached. An elapsed lock restarts the
// count at 1. An active lock is never extended.
func (r *AccountRepository) RecordFailedLogin(ctx context.Context, id string, policy models.LockoutPolicy, now time.Time) (*models.LockoutState, error) {
	query := `
		UPDATE accounts SET
			failed_login_attempts = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= $2 THEN 1
				ELSE failed_login_attempts + 1
			END,
			lock_until = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= $2 THEN
					CASE WHEN 1 >= $3::int THEN $4::timestamptz ELSE NULL END
				WHEN lock_until IS NULL AND failed_login_attempts + 1 >= $3::int THEN $4::timestamptz
				ELSE lock_until
			END,
			updated_at = $2
		WHERE id = $1
		RETURNING failed_login_attempts, lock_until
	`

	var state models.LockoutState
	err := r.pool.QueryRow(ctx, query, id, now, policy.Threshold, now.Add(policy.Duration)).
		Scan(&state.FailedLoginAttempts, &state.LockUntil)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &state, nil
}

// CompleteLogin resets lockout state and stores the hash of the one active
// refresh token, replacing any previous session. It refuses with
// models.ErrAccountLocked while a lock is active at now, so a lock set by a
// concurrent failure after the caller's read is never wiped.
func (r *AccountRepository) CompleteLogin(ctx context.Context, id, refreshTokenHash string, now time.Time) error {
	query := `
		UPDATE accounts
		SET failed_login_attempts = 0, lock_until = NULL, refresh_token_hash = $2, updated_at = $3
		WHERE id = $1 AND (lock_until IS NULL OR lock_until <= $3)
	`
	return r.execOne(ctx, models.ErrAccountLocked, query, id, refreshTokenHash, now)
}

// RotateRefreshToken swaps oldHash for newHash only if oldHash is still the
// stored value. Any other state means the token was superseded or revoked.
func (r *AccountRepository) RotateRefreshToken(ctx context.Context, id, oldHash, newHash string) error {
	query := `
		UPDATE accounts
		SET refresh_token_hash = $3, updated_at = NOW()
		WHERE id = $1 AND refresh_token_hash = $2
	`
	return r.execOne(ctx, models.ErrSessionExpired, query, id, oldHash, newHash)
}

func (r *AccountRepository) ClearRefreshToken(ctx context.Context, id string) error {
	query := `UPDATE accounts SET refresh_token_hash = NULL, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, models.ErrNotFound, query, id)
}

// SetTwoFactorSecret stores a new encrypted secret for an account that has
// not enabled two-factor yet.
func (r *AccountRepository) SetTwoFactorSecret(ctx context.Context, id string, ciphertext, nonce []byte) error {
	query := `
		UPDATE accounts
		SET two_factor_secret_encrypted = $2, two_factor_secret_nonce = $3, updated_at = NOW()
		WHERE id = $1 AND two_factor_enabled = FALSE
	`
	return r.execOne(ctx, models.ErrConflict, query, id, ciphertext, nonce)
}

func (r *AccountRepository) EnableTwoFactor(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET two_factor_enabled = TRUE, updated_at = NOW()
		WHERE id = $1 AND two_factor_secret_encrypted IS NOT NULL
	`
	return r.execOne(ctx, models.ErrTwoFactorNotSetUp, query, id)
}

// DisableTwoFactor turns two-factor off and discards the secret
func (r *AccountRepository) DisableTwoFactor(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET two_factor_enabled = FALSE, two_factor_secret_encrypted = NULL,
			two_factor_secret_nonce = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, models.ErrNotFound, query, id)
}

// VerifyEmail consumes a verification token and marks the owning account verified
func (r *AccountRepository) VerifyEmail(ctx context.Context, tokenHash string) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET email_verified = TRUE, verification_token_hash = NULL, updated_at = NOW()
		WHERE verification_token_hash = $1
		RETURNING ` + accountColumns

	account, err := scanAccountRow(r.pool.QueryRow(ctx, query, tokenHash))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidVerificationToken
	}
	return account, err
}

// execOne runs an update expected to touch exactly one row and returns
// noRows when it touched none.
func (r *AccountRepository) execOne(ctx context.Context, noRows error, query string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("account update failed: %w", database.MapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return noRows
	}
	return nil
}
