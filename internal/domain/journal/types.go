// Package journal contains domain types for the local event journal:
// a persistent history of logins, logouts, and submitted transactions.
// Read-only status checks are deliberately not journaled.
package journal

import (
	"context"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
)

// Event constants for journal entries.
const (
	// EventLogin records an interactive wallet login.
	EventLogin = "session.login"
	// EventRestore records a silent session restore.
	EventRestore = "session.restore"
	// EventLogout records an explicit logout.
	EventLogout = "session.logout"
	// EventRespawn records a free-access submission.
	EventRespawn = "gate.respawn"
	// EventPay records a paid-bypass submission.
	EventPay = "gate.pay"
)

// Entry is one journaled event. Failed submissions are journaled too,
// with Error set; the journal answers "what did I sign and when",
// including the attempts that went nowhere.
type Entry struct {
	// Timestamp is when the event occurred (UTC).
	Timestamp time.Time `json:"timestamp"`
	// ID is a unique entry id for correlation.
	ID string `json:"id"`
	// Event is one of the Event* constants.
	Event string `json:"event"`
	// Account is the session account the event belongs to.
	Account chain.AccountName `json:"account"`
	// ChainID is the network the event happened on.
	ChainID string `json:"chain_id,omitempty"`
	// Wallet names the backend involved.
	Wallet string `json:"wallet,omitempty"`
	// TxID is the broadcast transaction id, when one was assigned.
	TxID string `json:"tx_id,omitempty"`
	// Quantity is the payment amount for gate.pay events.
	Quantity string `json:"quantity,omitempty"`
	// Memo is the payment memo for gate.pay events.
	Memo string `json:"memo,omitempty"`
	// Error holds the failure message for unsuccessful submissions.
	Error string `json:"error,omitempty"`
}

// Store persists journal entries.
// Interface owned by domain per hexagonal architecture.
// Implementations handle batching and async writes behind Append.
type Store interface {
	// Append stores entries. Must be non-blocking from the caller's
	// perspective.
	Append(ctx context.Context, entries ...Entry) error

	// Flush forces pending entries to storage. Called during shutdown.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Reader provides read access to the journal for the status server and
// CLI. Separate from Store, which only writes.
type Reader interface {
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
