package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrValidation     = errors.New("validation failed")
	ErrInternalServer = errors.New("internal server error")

	// Token errors. Every verification failure collapses to ErrInvalidToken.
	ErrInvalidToken   = errors.New("invalid token")
	ErrSessionExpired = errors.New("session expired")

	// Two-factor errors
	ErrTwoFactorNotSetUp    = errors.New("two-factor authentication not set up")
	ErrTwoFactorNotEnabled  = errors.New("two-factor authentication not enabled")
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")

	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")

	// ErrAccountLocked is returned when a lock set by a concurrent attempt
	// blocks a session from starting.
	ErrAccountLocked = errors.New("account locked")
)
