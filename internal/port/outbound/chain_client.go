// Package outbound defines the outbound port interfaces: the chain API
// a session queries and broadcasts through, and the wallet backend that
// authorizes accounts and signs transactions.
package outbound

import (
	"context"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
)

// ChainClient is the outbound port for the chain's HTTP API. Adapters
// implement this against a real node; tests implement it in-memory.
type ChainClient interface {
	// GetInfo fetches node metadata, primarily the chain id that
	// sessions and signatures are bound to.
	GetInfo(ctx context.Context) (*chain.Info, error)

	// GetTableRows runs one bounded table read. Rows come back as raw
	// JSON for the caller to interpret; a missing table or undeployed
	// contract surfaces as an error, never as a fabricated empty result.
	GetTableRows(ctx context.Context, q chain.TableQuery) (*chain.TableRows, error)

	// PushTransaction broadcasts a signed transaction and returns the
	// node's acceptance result. No retries at this layer.
	PushTransaction(ctx context.Context, tx *chain.SignedTransaction) (*chain.TransactResult, error)
}
