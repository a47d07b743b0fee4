package models

import "time"

// LoginCredentials is everything the orchestrator needs for one attempt.
type LoginCredentials struct {
	Email         string
	Password      string
	TwoFactorCode string
	IPAddress     string
	UserAgent     string
}

// RejectionKind enumerates the closed set of login rejections.
type RejectionKind string

const (
	RejectInvalidCredentials   RejectionKind = "invalid_credentials"
	RejectAccountLocked        RejectionKind = "account_locked"
	RejectTwoFactorRequired    RejectionKind = "two_factor_required"
	RejectInvalidTwoFactorCode RejectionKind = "invalid_two_factor_code"
)

// LoginRejection describes why an attempt was refused. LockRemaining is only
// set for RejectAccountLocked.
type LoginRejection struct {
	Kind          RejectionKind
	LockRemaining time.Duration
}

// LoginResult is either a success or a rejection, never both.
type LoginResult struct {
	Success   *AuthResponse
	Rejection *LoginRejection
}

// LoginSucceeded builds a successful result.
func LoginSucceeded(resp *AuthResponse) *LoginResult {
	return &LoginResult{Success: resp}
}

// LoginRejected builds a rejected result.
func LoginRejected(kind RejectionKind) *LoginResult {
	return &LoginResult{Rejection: &LoginRejection{Kind: kind}}
}

// LoginLocked builds an account-locked rejection carrying the remaining lock time.
func LoginLocked(remaining time.Duration) *LoginResult {
	return &LoginResult{Rejection: &LoginRejection{Kind: RejectAccountLocked, LockRemaining: remaining}}
}

// Succeeded reports whether the attempt authenticated.
func (r *LoginResult) Succeeded() bool {
	return r != nil && r.Success != nil
}
