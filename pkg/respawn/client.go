package respawn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/keystore"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/memory"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/rpc"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/state"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/walletd"
	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
	"github.com/Respawn-Gate/Respawngate/internal/domain/gate"
	"github.com/Respawn-Gate/Respawngate/internal/domain/link"
	"github.com/Respawn-Gate/Respawngate/internal/domain/session"
	"github.com/Respawn-Gate/Respawngate/internal/domain/token"
	"github.com/Respawn-Gate/Respawngate/internal/port/outbound"
)

// Client is the respawn gate client. It holds at most one linked
// session at a time; Login or Restore establish it, Logout drops it.
// Safe for concurrent use.
type Client struct {
	chainAPI       string
	gateCfg        GateConfig
	walletBackend  string
	keystorePath   string
	walletdAddr    string
	passphrase     PassphraseFunc
	sessionPath    string
	memorySessions bool
	timeout        time.Duration
	timeoutSet     bool
	httpClient     *http.Client
	logger         *slog.Logger

	domainCfg  gate.Config
	walletName string
	link       *link.Link
	checker    *gate.Checker
	reader     *token.Reader

	mu   sync.RWMutex
	sess *session.Session
}

// New creates a respawn gate client. The chain API endpoint and the
// gate configuration are required; the wallet backend defaults to a
// keystore at ~/.respawn-gate/keystore.json and sessions persist to
// ~/.respawn-gate/sessions.json.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		chainAPI:      os.Getenv("RESPAWN_GATE_CHAIN_API"),
		walletBackend: "keystore",
		timeout:       10 * time.Second,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.chainAPI == "" {
		return nil, errors.New("respawn: chain API endpoint required (WithChainAPI or RESPAWN_GATE_CHAIN_API)")
	}
	c.gateCfg = c.gateCfg.withDefaults()
	if err := c.gateCfg.validate(); err != nil {
		return nil, err
	}
	c.domainCfg = c.gateCfg.domain()

	rpcOpts := []rpc.ClientOption{
		rpc.WithLogger(c.logger),
	}
	if c.httpClient != nil {
		rpcOpts = append(rpcOpts, rpc.WithHTTPClient(c.httpClient))
	}
	// The timeout mutates whichever http.Client is current, so it has
	// to follow the client option. A supplied client keeps its own
	// timeout unless WithTimeout was given explicitly.
	if c.httpClient == nil || c.timeoutSet {
		rpcOpts = append(rpcOpts, rpc.WithTimeout(c.timeout))
	}
	chainClient := rpc.NewClient(c.chainAPI, rpcOpts...)

	wallet, err := c.buildWallet()
	if err != nil {
		return nil, err
	}

	store, err := c.buildSessions()
	if err != nil {
		return nil, err
	}

	c.link = link.New(chainClient, wallet, store, c.logger)
	c.reader = token.NewReader(c.logger)
	c.checker = gate.NewChecker(c.reader, c.logger)
	return c, nil
}

// Login links an account through the wallet backend and persists the
// session. With the keystore backend this unlocks the key file; with
// walletd the daemon decides interactively.
func (c *Client) Login(ctx context.Context) error {
	sess, err := c.link.Login(ctx)
	if err != nil {
		return c.walletErr(err)
	}
	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()
	return nil
}

// Restore silently revives a previously persisted session. It returns
// false with a nil error when there is nothing to restore, or when the
// wallet no longer vouches for the stored record.
func (c *Client) Restore(ctx context.Context) (bool, error) {
	sess, err := c.link.Restore(ctx)
	if err != nil {
		return false, c.walletErr(err)
	}
	if sess == nil {
		return false, nil
	}
	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()
	return true, nil
}

// Logout drops the linked session and releases the wallet
// authorization. Not being logged in is not an error.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()

	if sess == nil {
		return nil
	}
	return c.link.Logout(ctx, sess)
}

// Account returns the linked account name, or "" when not linked.
func (c *Client) Account() string {
	if sess := c.session(); sess != nil {
		return sess.Account().String()
	}
	return ""
}

// Status reads the access table and balances and reports eligibility.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	sess := c.session()
	if sess == nil {
		return nil, ErrNoSession
	}
	return c.checker.Check(ctx, sess, c.domainCfg)
}

// Balances lists the account's holdings under the gate token contract.
func (c *Client) Balances(ctx context.Context) ([]TokenBalance, error) {
	sess := c.session()
	if sess == nil {
		return nil, ErrNoSession
	}
	return c.reader.Balances(ctx, sess, chain.AccountName(c.gateCfg.TokenContract))
}

// Respawn claims the free respawn. While the cooldown is still running
// it returns a *CooldownActiveError instead of submitting; the
// contract enforces the same rule on chain regardless.
func (c *Client) Respawn(ctx context.Context) (*TransactResult, error) {
	sess := c.session()
	if sess == nil {
		return nil, ErrNoSession
	}

	st, err := c.checker.Check(ctx, sess, c.domainCfg)
	if err != nil {
		return nil, fmt.Errorf("status check: %w", err)
	}
	if !st.CanRespawnFree {
		e := &CooldownActiveError{Remaining: st.Remaining}
		if st.CooldownEnds != nil {
			e.CooldownEnds = *st.CooldownEnds
		}
		return nil, e
	}

	res, err := gate.RecordFreeAccess(ctx, sess, c.domainCfg)
	if err != nil {
		return nil, c.walletErr(err)
	}
	return res, nil
}

// Pay transfers the configured payment amount, buying an immediate
// respawn regardless of the cooldown.
func (c *Client) Pay(ctx context.Context) (*TransactResult, error) {
	sess := c.session()
	if sess == nil {
		return nil, ErrNoSession
	}

	res, err := gate.PayForAccess(ctx, sess, c.domainCfg)
	if err != nil {
		return nil, c.walletErr(err)
	}
	return res, nil
}

func (c *Client) session() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess
}

func (c *Client) buildWallet() (outbound.Wallet, error) {
	switch c.walletBackend {
	case "walletd":
		if c.walletdAddr == "" {
			return nil, errors.New("respawn: walletd address required (WithWalletd)")
		}
		c.walletName = "walletd"
		return walletd.NewClient(c.walletdAddr, walletd.WithLogger(c.logger)), nil
	case "keystore":
		path := c.keystorePath
		if path == "" {
			path = defaultPath("keystore.json")
		}
		pass := c.passphrase
		if pass == nil {
			pass = envPassphrase
		}
		c.walletName = "keystore"
		return keystore.New(expandHome(path), keystore.PassphraseFunc(pass), keystore.WithLogger(c.logger)), nil
	}
	return nil, fmt.Errorf("respawn: unknown wallet backend %q", c.walletBackend)
}

func (c *Client) buildSessions() (session.Store, error) {
	if c.memorySessions {
		return memory.NewSessionStore(), nil
	}
	path := c.sessionPath
	if path == "" {
		path = defaultPath("sessions.json")
	}
	return state.NewFileStore(expandHome(path), c.logger), nil
}

// walletErr maps the wallet port sentinels onto the public error types.
func (c *Client) walletErr(err error) error {
	switch {
	case errors.Is(err, outbound.ErrAuthorizationDenied):
		return &WalletDeniedError{Backend: c.walletName, Cause: err}
	case errors.Is(err, outbound.ErrWalletUnreachable):
		return &WalletUnreachableError{Backend: c.walletName, Cause: err}
	}
	return err
}

func envPassphrase(ctx context.Context) (string, error) {
	if pass := os.Getenv("RESPAWN_GATE_PASSPHRASE"); pass != "" {
		return pass, nil
	}
	return "", errors.New("respawn: no passphrase source (WithPassphrase or RESPAWN_GATE_PASSPHRASE)")
}

func defaultPath(file string) string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".respawn-gate", file)
	}
	return file
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
