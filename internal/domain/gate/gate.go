// Package gate implements the respawn cooldown gate: a point-in-time
// eligibility check against an on-chain access table, and the two
// actions that consume it (free respawn, paid bypass). Enforcement
// lives in the target contract; this layer only derives status and
// submits, it never decides.
package gate

import (
	"context"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
)

// DefaultCooldownHours applies when the configuration leaves the
// cooldown unset.
const DefaultCooldownHours = 24

// DefaultPaymentMemo is attached to pay transactions without a
// configured memo.
const DefaultPaymentMemo = "respawn"

// FailMode selects the read-path error policy.
type FailMode string

const (
	// FailOpen absorbs read failures into defaults: an unreachable or
	// undeployed access contract behaves like a fresh user. The lenient
	// mode integrating UIs expect.
	FailOpen FailMode = "open"

	// FailStrict propagates the first read failure instead. Useful when
	// "network blip" and "genuinely eligible" must stay distinguishable.
	FailStrict FailMode = "strict"
)

// Session is the slice of a wallet session the gate consumes.
type Session interface {
	Account() chain.AccountName
	TableRows(ctx context.Context, q chain.TableQuery) (*chain.TableRows, error)
	Transact(ctx context.Context, actions ...chain.Action) (*chain.TransactResult, error)
}

// Config names the contracts and parameters the gate operates against.
// Immutable; supplied once by the integrating application.
type Config struct {
	// AccessContract hosts the access table and the record action.
	AccessContract chain.AccountName
	// AccessTable is the table holding one row per account.
	AccessTable string
	// AccessAction records a free entry.
	AccessAction string
	// PaymentContract and PaymentAction take the paid bypass.
	PaymentContract chain.AccountName
	PaymentAction   string
	// PaymentAmount is the bypass price in canonical asset form,
	// e.g. "1.0000 XPR".
	PaymentAmount string
	// PaymentMemo rides along with the payment; DefaultPaymentMemo
	// when empty.
	PaymentMemo string
	// TokenContract holds balances; the native token contract when
	// empty.
	TokenContract chain.AccountName
	// CooldownHours is the free-entry cooldown window;
	// DefaultCooldownHours when zero or negative.
	CooldownHours int
	// FailMode is the read-path error policy; FailOpen when empty.
	FailMode FailMode
}

// Cooldown returns the configured window as a duration.
func (c Config) Cooldown() time.Duration {
	hours := c.CooldownHours
	if hours <= 0 {
		hours = DefaultCooldownHours
	}
	return time.Duration(hours) * time.Hour
}

// Memo returns the payment memo, defaulted.
func (c Config) Memo() string {
	if c.PaymentMemo == "" {
		return DefaultPaymentMemo
	}
	return c.PaymentMemo
}

// Token returns the balance contract, defaulted.
func (c Config) Token() chain.AccountName {
	if c.TokenContract == "" {
		return chain.NativeTokenContract
	}
	return c.TokenContract
}

// Mode returns the fail mode, defaulted.
func (c Config) Mode() FailMode {
	if c.FailMode == "" {
		return FailOpen
	}
	return c.FailMode
}

// Status is a derived snapshot, never persisted. CanRespawnFree is true
// iff no access row exists for the account or the cooldown has elapsed.
type Status struct {
	// CanRespawnFree reports free-entry eligibility at CheckedAt.
	CanRespawnFree bool
	// LastAccess is the recorded last entry; nil when no row exists.
	LastAccess *time.Time
	// CooldownEnds is LastAccess plus the cooldown; nil when no row
	// exists. An absolute instant so presentation layers can tick a
	// countdown against it.
	CooldownEnds *time.Time
	// Remaining is CooldownEnds minus CheckedAt, zero when free. Static;
	// re-derive from CooldownEnds for a live countdown.
	Remaining time.Duration
	// Tokens holds the account's balances under the token contract, in
	// table order.
	Tokens []chain.TokenBalance
	// XPRBalance is the native-token entry from Tokens, nil when absent.
	XPRBalance *chain.TokenBalance
	// HasEnoughXPR reports whether XPRBalance covers the payment amount,
	// boundary inclusive.
	HasEnoughXPR bool
	// CheckedAt is the clock reading the snapshot was derived from.
	CheckedAt time.Time
}

// Option is the user's chosen path out of a cooldown.
type Option string

const (
	// OptionWait is the free path: respawn once the cooldown allows.
	OptionWait Option = "wait"
	// OptionPay buys past the cooldown.
	OptionPay Option = "pay"
)

// Result is the outcome of one user decision. Write failures land in
// Err; they never escape as faults.
type Result struct {
	Option      Option                `json:"option"`
	Success     bool                  `json:"success"`
	Transaction *chain.TransactResult `json:"transact_result,omitempty"`
	Err         string                `json:"error,omitempty"`
}
