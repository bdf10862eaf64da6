// Package ratelimit defines the rate limiting port consumed by the
// status server's middleware. The domain owns the interface; storage
// adapters implement it.
package ratelimit

import (
	"fmt"
	"time"
)

// Config sets the limit applied to one key.
type Config struct {
	// Rate is how many requests each key gets per Period.
	Rate int

	// Burst is the extra headroom on top of the steady rate. Keep it at
	// or above Rate or the limiter turns every burst into a rejection.
	Burst int

	// Period is the window the Rate is measured over.
	Period time.Duration
}

// Result is the verdict for one request.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Remaining is how many more requests the key has right now.
	Remaining int

	// RetryAfter is how long the caller must wait before the next
	// request would pass. Zero when Allowed.
	RetryAfter time.Duration

	// ResetAfter is how long until the key's budget is fully restored.
	ResetAfter time.Duration
}

// KeyType namespaces limiter keys by what they identify.
type KeyType string

// KeyTypeIP keys on the client address. The status server limits every
// request this way; further key types slot in beside it if an
// authenticated surface ever appears.
const KeyTypeIP KeyType = "ip"

const keyPrefix = "ratelimit"

// FormatKey builds the canonical "ratelimit:<type>:<value>" key so all
// adapters bucket identically.
func FormatKey(keyType KeyType, value string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, keyType, value)
}
