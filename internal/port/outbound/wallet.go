package outbound

import (
	"context"
	"errors"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
)

// Wallet backend errors shared by all adapters.
var (
	// ErrAuthorizationDenied means the user (or the backend acting for
	// them) declined a login or signing request.
	ErrAuthorizationDenied = errors.New("wallet authorization denied")

	// ErrWalletUnreachable means the backend could not be contacted at
	// all; distinct from a reachable backend saying no.
	ErrWalletUnreachable = errors.New("wallet unreachable")
)

// Wallet is the outbound port for a signing backend. Two adapters exist:
// a remote wallet daemon holding the user's keys, and a local encrypted
// keystore for development. Authorize is the only interactive call; the
// rest must complete without user input.
type Wallet interface {
	// Authorize asks the backend to approve a session on the given
	// chain, returning the account+permission it will sign for. May
	// block on user approval; honor ctx for the overall wait.
	Authorize(ctx context.Context, chainID string) (chain.Authorization, error)

	// Verify silently confirms the backend still authorizes auth on the
	// given chain. Used by session restore; must never prompt.
	Verify(ctx context.Context, chainID string, auth chain.Authorization) error

	// SignTransaction has the backend fill transaction headers, sign,
	// and return the broadcastable form. Serialization details belong
	// to the backend.
	SignTransaction(ctx context.Context, chainID string, tx *chain.Transaction) (*chain.SignedTransaction, error)

	// Release tells the backend a session ended. Best effort; callers
	// log failures and move on.
	Release(ctx context.Context, auth chain.Authorization) error

	// Name identifies the backend ("walletd", "keystore") for session
	// records and logs.
	Name() string
}
