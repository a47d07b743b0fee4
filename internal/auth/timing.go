package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// TimingConfig controls the floor applied to rejected login responses
type TimingConfig struct {
	BaseDelayMs   int
	RandomDelayMs int
}

// TimingDelay pads rejected logins up to a jittered floor so an unknown
// email, a wrong password and a wrong 2FA code take about the same time.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// target returns base + a crypto/rand jitter in [0, RandomDelayMs)
func (td *TimingDelay) target() time.Duration {
	d := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(int64(td.config.RandomDelayMs))); err == nil {
			d += time.Duration(n.Int64()) * time.Millisecond
		}
	}
	return d
}

// WaitFrom sleeps until at least the target delay has passed since start.
// It returns early if ctx is cancelled.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time) {
	if td == nil {
		return
	}

	remaining := td.target() - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
