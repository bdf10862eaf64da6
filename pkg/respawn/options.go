package respawn

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// PassphraseFunc supplies the keystore passphrase on demand, typically
// by prompting. It is called at most once per unlock.
type PassphraseFunc func(ctx context.Context) (string, error)

// WithChainAPI sets the chain HTTP API endpoint.
// If not set, defaults to the RESPAWN_GATE_CHAIN_API environment variable.
func WithChainAPI(url string) Option {
	return func(c *Client) {
		c.chainAPI = url
	}
}

// WithGate sets the gate contracts and parameters. Required.
func WithGate(cfg GateConfig) Option {
	return func(c *Client) {
		c.gateCfg = cfg
	}
}

// WithKeystore selects the local encrypted keystore as the wallet
// backend, reading the file at path. A leading "~" expands to the home
// directory. This is the default backend, at
// ~/.respawn-gate/keystore.json.
func WithKeystore(path string) Option {
	return func(c *Client) {
		c.walletBackend = "keystore"
		c.keystorePath = path
	}
}

// WithPassphrase sets the passphrase source for the keystore backend.
// If not set, the RESPAWN_GATE_PASSPHRASE environment variable is used.
func WithPassphrase(fn PassphraseFunc) Option {
	return func(c *Client) {
		c.passphrase = fn
	}
}

// WithWalletd selects a remote wallet daemon as the wallet backend,
// reached at addr (e.g. "http://127.0.0.1:6666").
func WithWalletd(addr string) Option {
	return func(c *Client) {
		c.walletBackend = "walletd"
		c.walletdAddr = addr
	}
}

// WithSessionFile sets the path of the persisted session file.
// If not set, defaults to ~/.respawn-gate/sessions.json.
func WithSessionFile(path string) Option {
	return func(c *Client) {
		c.sessionPath = path
		c.memorySessions = false
	}
}

// WithMemorySessions keeps sessions in memory only. Nothing survives
// the process; each run needs a fresh Login.
func WithMemorySessions() Option {
	return func(c *Client) {
		c.memorySessions = true
	}
}

// WithTimeout sets the chain HTTP request timeout.
// If not set, defaults to 10 seconds. Combined with WithHTTPClient it
// overrides the supplied client's timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		c.timeoutSet = true
	}
}

// WithHTTPClient sets a custom http.Client for chain requests.
// This is useful for testing, proxying, or custom transport
// configurations.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger. If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
