// Package keystore implements a local development wallet: one ed25519
// key per file, sealed under a passphrase. It lets the gate run end to
// end against a dev chain without a wallet daemon. The transaction
// encoding it signs is its own; mainnet nodes will not accept it.
package keystore

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mr-tron/base58"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
	"github.com/Respawn-Gate/Respawngate/internal/port/outbound"
)

// errWrongPassphrase is a denial: the backend is reachable and said no.
var errWrongPassphrase = fmt.Errorf("%w: wrong passphrase", outbound.ErrAuthorizationDenied)

// txExpiry is the window the signed transaction stays broadcastable.
const txExpiry = 2 * time.Minute

// PassphraseFunc supplies the passphrase when the keystore unlocks.
// Interactive surfaces prompt the user; scripts return a constant. It
// is only called when a key operation actually needs it.
type PassphraseFunc func(ctx context.Context) (string, error)

// Keystore implements the outbound.Wallet interface over a sealed key
// file. The private key is held in memory between unlock and Release.
type Keystore struct {
	path       string
	passphrase PassphraseFunc
	logger     *slog.Logger

	mu   sync.Mutex
	priv ed25519.PrivateKey // nil while locked
}

// Option is a functional option for configuring Keystore.
type Option func(*Keystore)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Keystore) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// New creates a keystore wallet over the file at path. The file must
// already exist; Create writes new ones.
func New(path string, passphrase PassphraseFunc, opts ...Option) *Keystore {
	k := &Keystore{
		path:       path,
		passphrase: passphrase,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Name identifies this backend in session records and logs.
func (k *Keystore) Name() string { return "keystore" }

// Authorize unlocks the keystore and returns the identity it holds.
// This is the interactive moment: the passphrase function runs here.
func (k *Keystore) Authorize(ctx context.Context, chainID string) (chain.Authorization, error) {
	f, err := loadFile(k.path)
	if err != nil {
		return chain.Authorization{}, err
	}
	if err := k.unlock(ctx, f); err != nil {
		return chain.Authorization{}, err
	}
	k.logger.Debug("keystore unlocked", "account", f.Account, "public_key", f.PublicKey)
	return chain.Authorization{Actor: f.Account, Permission: f.Permission}, nil
}

// Verify confirms the keystore still holds the given identity. It never
// runs the passphrase function; the passphrase is asked for lazily when
// a restored session first signs.
func (k *Keystore) Verify(ctx context.Context, chainID string, auth chain.Authorization) error {
	f, err := loadFile(k.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: keystore file missing", outbound.ErrAuthorizationDenied)
		}
		return err
	}
	if f.Account != auth.Actor || f.Permission != auth.Permission {
		return fmt.Errorf("%w: keystore holds %s@%s", outbound.ErrAuthorizationDenied, f.Account, f.Permission)
	}
	return nil
}

// txPayload is the transaction form this backend signs and broadcasts.
// Field order is fixed and action data maps marshal with sorted keys,
// so the same transaction always yields the same bytes.
type txPayload struct {
	Expiration     string         `json:"expiration"`
	RefBlockNum    uint16         `json:"ref_block_num"`
	RefBlockPrefix uint32         `json:"ref_block_prefix"`
	Actions        []chain.Action `json:"actions"`
}

// SignTransaction fills headers, signs sha256(chainID || payload), and
// returns the broadcastable form. Unlocks first if needed, which may
// run the passphrase function.
func (k *Keystore) SignTransaction(ctx context.Context, chainID string, tx *chain.Transaction) (*chain.SignedTransaction, error) {
	f, err := loadFile(k.path)
	if err != nil {
		return nil, err
	}
	if err := k.unlock(ctx, f); err != nil {
		return nil, err
	}

	payload := txPayload{
		Expiration: time.Now().UTC().Add(txExpiry).Format("2006-01-02T15:04:05"),
		Actions:    tx.Actions,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("keystore: encode transaction: %w", err)
	}

	digest := sha256.Sum256(append([]byte(chainID), body...))

	k.mu.Lock()
	priv := k.priv
	k.mu.Unlock()
	if priv == nil {
		return nil, fmt.Errorf("%w: keystore locked", outbound.ErrAuthorizationDenied)
	}
	sig := ed25519.Sign(priv, digest[:])

	return &chain.SignedTransaction{
		Payload:    body,
		Signatures: []string{sigPrefix + base58.Encode(sig)},
	}, nil
}

// Release locks the keystore and wipes the cached key.
func (k *Keystore) Release(ctx context.Context, auth chain.Authorization) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.priv {
		k.priv[i] = 0
	}
	k.priv = nil
	return nil
}

// PublicKey reads the stored public key without unlocking.
func (k *Keystore) PublicKey() (string, error) {
	f, err := loadFile(k.path)
	if err != nil {
		return "", err
	}
	return f.PublicKey, nil
}

// unlock verifies the passphrase and caches the private key. Idempotent
// while unlocked.
func (k *Keystore) unlock(ctx context.Context, f *fileFormat) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.priv != nil {
		return nil
	}
	if k.passphrase == nil {
		return fmt.Errorf("%w: no passphrase source configured", outbound.ErrAuthorizationDenied)
	}

	pass, err := k.passphrase(ctx)
	if err != nil {
		return fmt.Errorf("keystore: read passphrase: %w", err)
	}
	priv, err := f.openSeed(pass)
	if err != nil {
		return err
	}
	k.priv = priv
	return nil
}

// Compile-time check that Keystore implements the Wallet interface.
var _ outbound.Wallet = (*Keystore)(nil)
