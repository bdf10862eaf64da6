package gate

import (
	"context"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
)

// RecordFreeAccess submits the single action that records a free entry.
// It does not re-check the cooldown: callers confirm eligibility first,
// and the access contract is the authority either way. Signing and
// broadcast failures propagate.
func RecordFreeAccess(ctx context.Context, sess Session, cfg Config) (*chain.TransactResult, error) {
	return sess.Transact(ctx, chain.Action{
		Account: cfg.AccessContract,
		Name:    cfg.AccessAction,
		Data: map[string]any{
			"account": sess.Account(),
		},
	})
}

// PayForAccess submits the single action that buys past the cooldown.
// Signing and broadcast failures propagate; a user paying real tokens
// must never be left guessing whether payment went through.
func PayForAccess(ctx context.Context, sess Session, cfg Config) (*chain.TransactResult, error) {
	return sess.Transact(ctx, chain.Action{
		Account: cfg.PaymentContract,
		Name:    cfg.PaymentAction,
		Data: map[string]any{
			"account":  sess.Account(),
			"quantity": cfg.PaymentAmount,
			"memo":     cfg.Memo(),
		},
	})
}
