package models

import (
	"math"
	"time"
)

// Account is the persisted credential record for one registered user.
type Account struct {
	ID                       string
	Email                    string
	Name                     string
	PasswordHash             string // bcrypt hash, never serialized
	EmailVerified            bool
	VerificationTokenHash    *string
	TwoFactorEnabled         bool
	TwoFactorSecretEncrypted []byte // AES-256-GCM ciphertext of the base32 secret
	TwoFactorSecretNonce     []byte
	RefreshTokenHash         *string // SHA-256 of the single active refresh token
	FailedLoginAttempts      int
	LockUntil                *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// IsLocked reports whether LockUntil is set and still in the future.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// HasExpiredLock reports whether a lock was set but has elapsed and not yet been cleared.
func (a *Account) HasExpiredLock(now time.Time) bool {
	return a.LockUntil != nil && !a.LockUntil.After(now)
}

// LockRemaining returns how long the account stays locked, or zero.
func (a *Account) LockRemaining(now time.Time) time.Duration {
	if !a.IsLocked(now) {
		return 0
	}
	return a.LockUntil.Sub(now)
}

// HasTwoFactorSecret reports whether a TOTP secret has been provisioned.
func (a *Account) HasTwoFactorSecret() bool {
	return len(a.TwoFactorSecretEncrypted) > 0 && len(a.TwoFactorSecretNonce) > 0
}

// PublicProfile is the only account shape ever returned to clients.
type PublicProfile struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

// PublicProfile returns the client-facing view of the account.
func (a *Account) PublicProfile() *PublicProfile {
	return &PublicProfile{
		ID:               a.ID,
		Email:            a.Email,
		Name:             a.Name,
		TwoFactorEnabled: a.TwoFactorEnabled,
	}
}

// LockoutPolicy configures per-account lockout.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy returns 5 failures / 15 minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		Threshold: 5,
		Duration:  15 * time.Minute,
	}
}

// LockoutState is the counter state returned by an atomic failure increment.
type LockoutState struct {
	FailedLoginAttempts int
	LockUntil           *time.Time
}

// CeilMinutes rounds a duration up to whole minutes.
func CeilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Minutes()))
}
