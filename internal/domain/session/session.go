package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
	"github.com/Respawn-Gate/Respawngate/internal/port/outbound"
)

// Session is the live capability object. All fields are set at
// construction and read-only afterwards, so a Session is safe to share
// across concurrent status checks and a pending transaction.
type Session struct {
	record *Record
	chain  outbound.ChainClient
	wallet outbound.Wallet
}

// New binds a record to its chain and wallet capabilities. Only the link
// flow constructs sessions; everything else receives them.
func New(rec *Record, chainClient outbound.ChainClient, wallet outbound.Wallet) *Session {
	return &Session{record: rec, chain: chainClient, wallet: wallet}
}

// Account returns the on-chain account the session signs for.
func (s *Session) Account() chain.AccountName { return s.record.Account }

// Permission returns the authorized permission level.
func (s *Session) Permission() chain.PermissionName { return s.record.Permission }

// ChainID returns the network the session is bound to.
func (s *Session) ChainID() string { return s.record.ChainID }

// Wallet returns the name of the wallet backend holding the keys.
func (s *Session) Wallet() string { return s.record.Wallet }

// Auth returns the account@permission pair actions are signed with.
func (s *Session) Auth() chain.Authorization {
	return chain.Authorization{Actor: s.record.Account, Permission: s.record.Permission}
}

// Record returns the persistable form of the session.
func (s *Session) Record() *Record { return s.record }

// TableRows runs one table read through the session's chain capability.
// Errors surface to the caller; absorbing them is a policy decision that
// belongs to the gate layer, not here.
func (s *Session) TableRows(ctx context.Context, q chain.TableQuery) (*chain.TableRows, error) {
	if q.Limit <= 0 {
		q.Limit = chain.DefaultTableLimit
	}
	rows, err := s.chain.GetTableRows(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("table read %s/%s/%s: %w", q.Code, q.Scope, q.Table, err)
	}
	return rows, nil
}

// Transact signs the given actions with the session's authorization and
// broadcasts the result. One call, one transaction, no retries; signing
// and broadcast failures propagate verbatim to the caller.
func (s *Session) Transact(ctx context.Context, actions ...chain.Action) (*chain.TransactResult, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("transact: no actions")
	}

	auth := s.Auth()
	for i := range actions {
		if len(actions[i].Authorization) == 0 {
			actions[i].Authorization = []chain.Authorization{auth}
		}
	}

	signed, err := s.wallet.SignTransaction(ctx, s.record.ChainID, &chain.Transaction{Actions: actions})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	result, err := s.chain.PushTransaction(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("broadcast transaction: %w", err)
	}
	return result, nil
}

// NewRecord builds a record for a freshly authorized session.
func NewRecord(auth chain.Authorization, chainID, wallet string) (*Record, error) {
	id, err := GenerateRecordID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Record{
		ID:         id,
		Account:    auth.Actor,
		Permission: auth.Permission,
		ChainID:    chainID,
		Wallet:     wallet,
		CreatedAt:  now,
		LastUsed:   now,
	}, nil
}

// GenerateRecordID creates a cryptographically random record ID.
// Returns 64 hex characters (32 bytes).
func GenerateRecordID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate record ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}
