package models

import "time"

// IPAttemptRecord tracks failed logins from one client IP. It lives only in
// the IP attempt store and is never persisted with accounts.
type IPAttemptRecord struct {
	Count        int
	BlockedUntil *time.Time
}

// IsBlocked reports whether the record blocks the IP at now.
func (r *IPAttemptRecord) IsBlocked(now time.Time) bool {
	return r != nil && r.BlockedUntil != nil && r.BlockedUntil.After(now)
}

// BlockExpired reports whether a block was set and has elapsed.
func (r *IPAttemptRecord) BlockExpired(now time.Time) bool {
	return r != nil && r.BlockedUntil != nil && !r.BlockedUntil.After(now)
}

// IPDecision is the IP guard verdict for an incoming attempt.
type IPDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}
