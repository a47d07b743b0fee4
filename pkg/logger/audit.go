package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventLogin             = "login"
	EventRegister          = "register"
	EventAccountLocked     = "account_locked"
	EventIPBlocked         = "ip_blocked"
	EventTokenRefresh      = "token_refresh"
	EventLogout            = "logout"
	EventEmailVerified     = "email_verified"
	EventTwoFactorSetup    = "two_factor_setup"
	EventTwoFactorEnabled  = "two_factor_enabled"
	EventTwoFactorDisabled = "two_factor_disabled"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes security events as structured "audit" records
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

// LogAuthAttempt logs authentication attempts. Emails are masked before
// they reach the log.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// LogLockout records an account reaching the failure threshold
func (al *AuditLogger) LogLockout(userID, ipAddress string, attempts int, until time.Time) {
	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit",
		slog.String("audit_type", "lockout"),
		slog.String("event_type", EventAccountLocked),
		slog.String("user_id", userID),
		slog.String("ip_address", ipAddress),
		slog.Int("failed_attempts", attempts),
		slog.String("lock_until", until.UTC().Format(time.RFC3339)),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	)
}

// LogIPBlocked records a client IP crossing the guard threshold
func (al *AuditLogger) LogIPBlocked(ipAddress string, count int, until time.Time) {
	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit",
		slog.String("audit_type", "ip_guard"),
		slog.String("event_type", EventIPBlocked),
		slog.String("ip_address", ipAddress),
		slog.Int("failed_attempts", count),
		slog.String("blocked_until", until.UTC().Format(time.RFC3339)),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	)
}

// LogAccountAction logs general account actions
func (al *AuditLogger) LogAccountAction(eventType, userID, ipAddress string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "account"),
		slog.String("event_type", eventType),
		slog.String("user_id", userID),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}
