package respawn

import (
	"errors"
	"fmt"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/gate"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNoSession is returned when an operation needs a linked session
	// and none exists. Call Login or Restore first.
	ErrNoSession = errors.New("no linked session")

	// ErrCooldownActive is returned when a free respawn is claimed
	// while the cooldown is still running.
	ErrCooldownActive = errors.New("cooldown active")

	// ErrWalletDenied is returned when the wallet backend refuses to
	// authorize or sign: user rejection, wrong passphrase, locked
	// daemon, or an account mismatch.
	ErrWalletDenied = errors.New("wallet denied")

	// ErrWalletUnreachable is returned when the wallet daemon cannot
	// be contacted.
	ErrWalletUnreachable = errors.New("wallet unreachable")
)

// CooldownActiveError is returned by Respawn when the free claim is
// still locked. It carries the wait so callers can render a countdown
// or decide to pay.
type CooldownActiveError struct {
	// Remaining is the wait at the time of the check.
	Remaining time.Duration
	// CooldownEnds is the absolute unlock instant.
	CooldownEnds time.Time
}

// Error returns a human-readable description of the active cooldown.
func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("cooldown active: %s remaining", gate.FormatRemaining(e.Remaining))
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrCooldownActive).
func (e *CooldownActiveError) Is(target error) bool {
	return target == ErrCooldownActive
}

// WalletDeniedError is returned when the wallet backend refuses an
// authorization or signing request.
type WalletDeniedError struct {
	// Backend is the wallet backend name, e.g. "keystore" or "walletd".
	Backend string
	// Cause is the underlying refusal.
	Cause error
}

// Error returns a human-readable description of the refusal.
func (e *WalletDeniedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("wallet %s denied the request: %v", e.Backend, e.Cause)
	}
	return fmt.Sprintf("wallet %s denied the request", e.Backend)
}

// Unwrap returns the underlying refusal.
func (e *WalletDeniedError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrWalletDenied).
func (e *WalletDeniedError) Is(target error) bool {
	return target == ErrWalletDenied
}

// WalletUnreachableError is returned when the wallet daemon cannot be
// contacted at its configured address.
type WalletUnreachableError struct {
	// Backend is the wallet backend name.
	Backend string
	// Cause is the underlying transport error.
	Cause error
}

// Error returns a human-readable description of the failure.
func (e *WalletUnreachableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("wallet %s unreachable: %v", e.Backend, e.Cause)
	}
	return fmt.Sprintf("wallet %s unreachable", e.Backend)
}

// Unwrap returns the underlying transport error.
func (e *WalletUnreachableError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrWalletUnreachable).
func (e *WalletUnreachableError) Is(target error) bool {
	return target == ErrWalletUnreachable
}
