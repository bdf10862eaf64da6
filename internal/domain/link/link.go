// Package link manages the handshake that produces a session: explicit
// login through a wallet backend, silent restore of a persisted session,
// and logout. Link is the only component that constructs sessions.
package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
	"github.com/Respawn-Gate/Respawngate/internal/domain/session"
	"github.com/Respawn-Gate/Respawngate/internal/port/outbound"
)

// Link wires a wallet backend, a chain client, and a session store into
// the session lifecycle.
type Link struct {
	chain  outbound.ChainClient
	wallet outbound.Wallet
	store  session.Store
	logger *slog.Logger
}

// New creates a Link. A nil logger falls back to slog.Default.
func New(chainClient outbound.ChainClient, wallet outbound.Wallet, store session.Store, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	return &Link{chain: chainClient, wallet: wallet, store: store, logger: logger}
}

// Login performs an interactive login: fetches the chain id, asks the
// wallet backend to authorize an account, and persists the resulting
// record. Every failure propagates; a user seeing login fail must know.
func (l *Link) Login(ctx context.Context) (*session.Session, error) {
	info, err := l.chain.GetInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain info: %w", err)
	}

	auth, err := l.wallet.Authorize(ctx, info.ChainID)
	if err != nil {
		return nil, fmt.Errorf("authorize with %s: %w", l.wallet.Name(), err)
	}

	rec, err := session.NewRecord(auth, info.ChainID, l.wallet.Name())
	if err != nil {
		return nil, err
	}
	if err := l.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	l.logger.Info("session established",
		"account", auth.Actor,
		"permission", auth.Permission,
		"wallet", l.wallet.Name())
	return session.New(rec, l.chain, l.wallet), nil
}

// Restore attempts to revive the most recently used session for the
// current chain without any user interaction. (nil, nil) means there is
// nothing to restore: no persisted record, or the wallet no longer
// authorizes the account (the stale record is deleted in that case).
// Infrastructure failures, an unreachable chain or store, return an
// error so callers can distinguish "logged out" from "offline".
func (l *Link) Restore(ctx context.Context) (*session.Session, error) {
	info, err := l.chain.GetInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain info: %w", err)
	}

	rec, err := l.store.Newest(ctx, info.ChainID)
	if errors.Is(err, session.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session record: %w", err)
	}

	auth := chainAuth(rec)
	if err := l.wallet.Verify(ctx, rec.ChainID, auth); err != nil {
		if errors.Is(err, outbound.ErrAuthorizationDenied) {
			// The wallet revoked or forgot the account; the record is
			// dead weight now.
			l.logger.Info("dropping stale session record", "account", rec.Account)
			_ = l.store.Delete(ctx, rec.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("verify session with %s: %w", l.wallet.Name(), err)
	}

	rec.LastUsed = time.Now().UTC()
	if err := l.store.Save(ctx, rec); err != nil {
		l.logger.Warn("failed to bump session last-used", "error", err)
	}

	l.logger.Debug("session restored", "account", rec.Account, "wallet", rec.Wallet)
	return session.New(rec, l.chain, l.wallet), nil
}

// Logout releases the wallet authorization and deletes the persisted
// record. Release is best effort; deleting the record is what actually
// logs the user out, so its error is the one returned.
func (l *Link) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return nil
	}
	rec := sess.Record()

	if err := l.wallet.Release(ctx, sess.Auth()); err != nil {
		l.logger.Warn("wallet release failed", "account", rec.Account, "error", err)
	}

	if err := l.store.Delete(ctx, rec.ID); err != nil {
		return fmt.Errorf("delete session record: %w", err)
	}
	l.logger.Info("session ended", "account", rec.Account)
	return nil
}

func chainAuth(rec *session.Record) chain.Authorization {
	return chain.Authorization{Actor: rec.Account, Permission: rec.Permission}
}
