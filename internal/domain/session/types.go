// Package session holds the wallet session: one authenticated binding
// between an account+permission and the capabilities to query chain
// state and sign for it. Sessions are created by the link flow, shared
// by reference, and never mutated after construction.
package session

import (
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
)

// Record is the persisted form of a session. It carries no key material;
// keys stay inside the wallet backend. Restoring from a Record succeeds
// only if the backend still authorizes the account.
type Record struct {
	// ID is a cryptographically random identifier, 32 bytes hex-encoded.
	ID string `json:"id"`
	// Account is the on-chain account the session signs for.
	Account chain.AccountName `json:"account"`
	// Permission is the permission level authorized ("active" usually).
	Permission chain.PermissionName `json:"permission"`
	// ChainID binds the record to one network.
	ChainID string `json:"chain_id"`
	// Wallet names the backend that authorized the session.
	Wallet string `json:"wallet"`
	// CreatedAt is when the user approved the login (UTC).
	CreatedAt time.Time `json:"created_at"`
	// LastUsed is the last time the session was restored or used (UTC).
	LastUsed time.Time `json:"last_used"`
}

// IdleSince reports how long the record has been unused at now.
func (r *Record) IdleSince(now time.Time) time.Duration {
	return now.Sub(r.LastUsed)
}
