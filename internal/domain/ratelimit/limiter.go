package ratelimit

import "context"

// Limiter decides whether a keyed request may proceed.
//
// Implementations use GCRA so the allowance spreads evenly across the
// period instead of resetting at window edges; a client hammering the
// status endpoint sees a steady trickle, not a thundering herd every
// minute. The port is storage-agnostic: the daemon ships an in-memory
// adapter, and a shared backend could replace it without touching the
// middleware.
type Limiter interface {
	// Allow charges one request against key under cfg. When the verdict
	// is a rejection, Result.RetryAfter says when the next request
	// would pass. Keys come from FormatKey.
	Allow(ctx context.Context, key string, cfg Config) (Result, error)
}
