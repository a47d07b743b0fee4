package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RevokedTokenPurger deletes revocation records whose tokens have expired
type RevokedTokenPurger interface {
	CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// IPAttemptPruner drops idle IP attempt records. Only the in-process store
// needs this; Redis expires its keys itself.
type IPAttemptPruner interface {
	PruneExpired(now time.Time) int
}

// CleanupManager periodically purges expired revoked tokens and stale IP
// attempt records
type CleanupManager struct {
	revocations RevokedTokenPurger
	ipAttempts  IPAttemptPruner
	logger      *slog.Logger
	interval    time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewCleanupManager creates a new cleanup manager. ipAttempts may be nil.
func NewCleanupManager(
	revocations RevokedTokenPurger,
	ipAttempts IPAttemptPruner,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		revocations: revocations,
		ipAttempts:  ipAttempts,
		logger:      logger,
		interval:    interval,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic cleanup task and blocks until stopped
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	now := cm.now()

	if cm.ipAttempts != nil {
		if removed := cm.ipAttempts.PruneExpired(now); removed > 0 {
			cm.logger.Info("pruned ip attempt records", slog.Int("removed", removed))
		}
	}

	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.revocations.CleanupExpiredTokens(cleanupCtx, now)
	if err != nil {
		cm.logger.Error("failed to cleanup expired tokens", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("expired token cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop. It is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
