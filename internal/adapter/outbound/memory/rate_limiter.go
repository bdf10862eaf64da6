package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/ratelimit"
)

// Cleanup defaults. An hour of idleness is far beyond any configured
// period, so dropping the key cannot change a future verdict.
const (
	defaultCleanupInterval = 5 * time.Minute
	defaultKeyTTL          = time.Hour
)

// RateLimiter is the in-process ratelimit.Limiter: GCRA over a map of
// theoretical arrival times, one entry per key. One daemon process per
// host means in-memory state is sufficient. A background sweep keeps
// the map from growing without bound as client IPs come and go.
type RateLimiter struct {
	mu    sync.Mutex
	cells map[string]time.Time // key -> TAT

	cleanupInterval time.Duration
	keyTTL          time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewRateLimiter creates a limiter with the default sweep settings.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(defaultCleanupInterval, defaultKeyTTL)
}

// NewRateLimiterWithConfig creates a limiter sweeping every
// cleanupInterval, dropping keys idle longer than keyTTL.
func NewRateLimiterWithConfig(cleanupInterval, keyTTL time.Duration) *RateLimiter {
	return &RateLimiter{
		cells:           make(map[string]time.Time),
		stopChan:        make(chan struct{}),
		cleanupInterval: cleanupInterval,
		keyTTL:          keyTTL,
	}
}

// Allow charges one request against key. GCRA: each key carries a
// theoretical arrival time (TAT); a request is allowed when now is
// within the burst window of the TAT, and allowing it advances the TAT
// by one emission interval.
func (r *RateLimiter) Allow(ctx context.Context, key string, cfg ratelimit.Config) (ratelimit.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Rate
	}
	emission := cfg.Period / time.Duration(cfg.Rate)
	burstWindow := time.Duration(cfg.Burst) * emission

	tat, ok := r.cells[key]
	if !ok || tat.Before(now) {
		tat = now
	}

	if allowAt := tat.Add(-burstWindow); now.Before(allowAt) {
		return ratelimit.Result{
			Allowed:    false,
			RetryAfter: allowAt.Sub(now),
			ResetAfter: tat.Sub(now),
		}, nil
	}

	next := tat.Add(emission)
	if next.Before(now) {
		next = now.Add(emission)
	}
	r.cells[key] = next

	remaining := int((burstWindow - next.Sub(now)) / emission)
	if remaining < 0 {
		remaining = 0
	}
	if remaining > cfg.Burst {
		remaining = cfg.Burst
	}

	return ratelimit.Result{
		Allowed:    true,
		Remaining:  remaining,
		ResetAfter: next.Sub(now),
	}, nil
}

// StartCleanup launches the sweep goroutine. It exits when ctx is
// cancelled or Stop is called.
func (r *RateLimiter) StartCleanup(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

// sweep drops keys whose TAT fell behind the TTL cutoff.
func (r *RateLimiter) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.keyTTL)
	swept := 0
	for key, tat := range r.cells {
		if tat.Before(cutoff) {
			delete(r.cells, key)
			swept++
		}
	}
	if swept > 0 {
		slog.Debug("rate limiter sweep", "swept_keys", swept, "remaining_keys", len(r.cells))
	}
}

// Stop halts the sweep goroutine and waits for it. Safe to call more
// than once.
func (r *RateLimiter) Stop() {
	r.once.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}

// Size reports the tracked key count. Feeds the rate_limit_keys gauge
// and the sweep tests.
func (r *RateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cells)
}

var _ ratelimit.Limiter = (*RateLimiter)(nil)
