package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/barberbook/internal/models"
	pkglogger "github.com/BradenHooton/barberbook/pkg/logger"
)

// IPAttemptStore holds failed-login records keyed by client IP
type IPAttemptStore interface {
	Get(ctx context.Context, ip string, now time.Time) (*models.IPAttemptRecord, error)
	Increment(ctx context.Context, ip string, maxFailures int, window time.Duration, now time.Time) (*models.IPAttemptRecord, error)
	Delete(ctx context.Context, ip string) error
}

// IPGuardConfig holds the per-IP failure threshold and block length
type IPGuardConfig struct {
	MaxFailures   int
	BlockDuration time.Duration
}

// IPGuard is the per-client-IP gate that runs before the login orchestrator.
// Store errors fail open: the account lockout remains authoritative.
type IPGuard struct {
	store       IPAttemptStore
	config      IPGuardConfig
	metrics     MetricsRecorder
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewIPGuard(store IPAttemptStore, config IPGuardConfig, metrics MetricsRecorder, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *IPGuard {
	return &IPGuard{
		store:       store,
		config:      config,
		metrics:     metricsOrNoop(metrics),
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Check reports whether ip may attempt a login. An elapsed block is
// removed here, so the next failure starts a fresh count.
func (g *IPGuard) Check(ctx context.Context, ip string) models.IPDecision {
	now := g.now()

	record, err := g.store.Get(ctx, ip, now)
	if err != nil {
		g.logger.Error("ip guard lookup failed", slog.String("ip_address", ip), slog.Any("error", err))
		return models.IPDecision{Allowed: true}
	}

	if record.IsBlocked(now) {
		g.logger.Warn("blocked ip attempt", slog.String("ip_address", ip))
		return models.IPDecision{Allowed: false, RetryAfter: record.BlockedUntil.Sub(now)}
	}

	if record.BlockExpired(now) {
		if err := g.store.Delete(ctx, ip); err != nil {
			g.logger.Error("failed to clear expired ip block", slog.String("ip_address", ip), slog.Any("error", err))
		}
	}

	return models.IPDecision{Allowed: true}
}

// RecordFailure counts a failed attempt from ip
func (g *IPGuard) RecordFailure(ctx context.Context, ip string) {
	now := g.now()

	record, err := g.store.Increment(ctx, ip, g.config.MaxFailures, g.config.BlockDuration, now)
	if err != nil {
		g.logger.Error("failed to record ip attempt", slog.String("ip_address", ip), slog.Any("error", err))
		return
	}

	if record.Count == g.config.MaxFailures && record.IsBlocked(now) {
		g.logger.Warn("ip blocked due to failed attempts", slog.String("ip_address", ip))
		g.metrics.ObserveIPBlock()
		g.auditLogger.LogIPBlocked(ip, record.Count, *record.BlockedUntil)
	}
}

// RecordSuccess clears any record for ip
func (g *IPGuard) RecordSuccess(ctx context.Context, ip string) {
	if err := g.store.Delete(ctx, ip); err != nil {
		g.logger.Error("failed to reset ip attempts", slog.String("ip_address", ip), slog.Any("error", err))
	}
}
