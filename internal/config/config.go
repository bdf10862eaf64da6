// Package config provides configuration types for respawn-gate.
//
// Settings load from respawn-gate.yaml, searched in the current directory,
// ~/.respawn-gate and /etc/respawn-gate, with RESPAWN_GATE_* environment
// variables taking precedence over the file. Defaults fill whatever remains
// unset, and validation runs last so errors describe the effective
// configuration rather than the raw file.
//
// Durations are plain strings ("10s", "720h") parsed at wiring time, and
// the gate section carries the on-chain names verbatim; mapping onto domain
// types happens in cmd.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for respawn-gate.
type Config struct {
	// Chain configures the chain API endpoint every read and submit
	// goes through.
	Chain ChainConfig `yaml:"chain" mapstructure:"chain"`

	// Wallet selects the signing backend.
	Wallet WalletConfig `yaml:"wallet" mapstructure:"wallet"`

	// Session configures where linked-session records persist.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// Gate names the contracts and parameters of the respawn gate.
	Gate GateConfig `yaml:"gate" mapstructure:"gate"`

	// Journal configures the optional local transaction journal.
	Journal JournalConfig `yaml:"journal" mapstructure:"journal"`

	// Serve configures the read-only status server.
	Serve ServeConfig `yaml:"serve" mapstructure:"serve"`
}

// ChainConfig configures the chain API client.
type ChainConfig struct {
	// API is the chain node endpoint (e.g., "https://api.chain.example").
	API string `yaml:"api" mapstructure:"api" validate:"required,url"`

	// RequestTimeout bounds each chain API call (e.g., "10s", "30s").
	// Defaults to "10s" if not specified.
	RequestTimeout string `yaml:"request_timeout" mapstructure:"request_timeout" validate:"omitempty"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty; the --debug flag overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// WalletConfig selects and configures the signing backend.
type WalletConfig struct {
	// Backend is the signer implementation: "keystore" (local sealed
	// file) or "walletd" (external wallet daemon).
	// Defaults to "keystore" if empty.
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=keystore walletd"`

	// WalletdAddr is the wallet daemon base URL.
	// Required when backend is "walletd"; ignored otherwise.
	WalletdAddr string `yaml:"walletd_addr" mapstructure:"walletd_addr" validate:"omitempty,url"`

	// KeystorePath is the sealed keystore file for the "keystore" backend.
	// Defaults to "~/.respawn-gate/keystore.json".
	KeystorePath string `yaml:"keystore_path" mapstructure:"keystore_path"`
}

// SessionConfig configures session persistence.
type SessionConfig struct {
	// StorePath is the JSON file holding linked-session records.
	// Defaults to "~/.respawn-gate/sessions.json".
	StorePath string `yaml:"store_path" mapstructure:"store_path"`

	// IdleTTL is how long an unused session record survives before the
	// in-memory store's cleanup drops it (e.g., "720h" = 30 days).
	// Defaults to "720h" if not specified.
	IdleTTL string `yaml:"idle_ttl" mapstructure:"idle_ttl" validate:"omitempty"`
}

// GateConfig names the on-chain contracts and parameters of the gate.
// These map one-to-one onto the domain gate configuration.
type GateConfig struct {
	// AccessContract hosts the access table and the record action.
	AccessContract string `yaml:"access_contract" mapstructure:"access_contract" validate:"required,account_name"`

	// AccessTable is the table holding one row per account.
	// Defaults to "accounts".
	AccessTable string `yaml:"access_table" mapstructure:"access_table"`

	// AccessAction records a free entry.
	AccessAction string `yaml:"access_action" mapstructure:"access_action" validate:"required,account_name"`

	// PaymentContract and PaymentAction take the paid bypass.
	PaymentContract string `yaml:"payment_contract" mapstructure:"payment_contract" validate:"required,account_name"`
	PaymentAction   string `yaml:"payment_action" mapstructure:"payment_action" validate:"required,account_name"`

	// PaymentAmount is the bypass price in canonical asset form,
	// e.g. "1.0000 XPR".
	PaymentAmount string `yaml:"payment_amount" mapstructure:"payment_amount" validate:"required,asset"`

	// PaymentMemo rides along with the payment.
	// Defaults to "respawn".
	PaymentMemo string `yaml:"payment_memo" mapstructure:"payment_memo"`

	// TokenContract holds balances.
	// Defaults to "eosio.token".
	TokenContract string `yaml:"token_contract" mapstructure:"token_contract" validate:"omitempty,account_name"`

	// CooldownHours is the free-entry cooldown window.
	// Defaults to 24 if not specified.
	CooldownHours int `yaml:"cooldown_hours" mapstructure:"cooldown_hours" validate:"omitempty,min=1"`

	// FailMode is the read-path error policy: "open" absorbs chain read
	// failures into defaults, "strict" propagates them.
	// Defaults to "open" if empty.
	FailMode string `yaml:"fail_mode" mapstructure:"fail_mode" validate:"omitempty,oneof=open strict"`
}

// JournalConfig configures the local transaction journal.
type JournalConfig struct {
	// Output specifies where journal entries are written.
	// Valid values: "off", "stdout" or "file:///absolute/dir"
	// Defaults to "off" if empty.
	Output string `yaml:"output" mapstructure:"output" validate:"required,journal_output"`
}

// ServeConfig configures the read-only status server.
type ServeConfig struct {
	// HTTPAddr is the address to listen on (e.g., "127.0.0.1:8099").
	// Defaults to "127.0.0.1:8099" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// CacheTTL is how long a status snapshot may be served from cache
	// (e.g., "2s"). "0s" disables caching so every check is a fresh
	// chain read. Defaults to "0s".
	CacheTTL string `yaml:"cache_ttl" mapstructure:"cache_ttl" validate:"omitempty"`

	// RateLimit configures the per-IP rate limiter in front of the
	// status endpoints.
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-IP rate limiting on the status server.
type RateLimitConfig struct {
	// Enabled turns rate limiting on or off.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// PerMinute is the maximum requests per minute per IP address.
	// Defaults to 120 if rate limiting is enabled.
	PerMinute int `yaml:"per_minute" mapstructure:"per_minute" validate:"omitempty,min=1"`
}

// ExpandHome replaces a leading "~" in path with the user's home
// directory. The path comes back unchanged when it has no such prefix or
// when the home directory cannot be resolved.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// SetDefaults applies sensible default values to the configuration.
// User-supplied paths may use a leading "~" for the home directory.
func (c *Config) SetDefaults() {
	// Chain defaults
	if c.Chain.RequestTimeout == "" {
		c.Chain.RequestTimeout = "10s"
	}
	if c.Chain.LogLevel == "" {
		c.Chain.LogLevel = "info"
	}

	// Wallet defaults
	if c.Wallet.Backend == "" {
		c.Wallet.Backend = "keystore"
	}
	if c.Wallet.KeystorePath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Wallet.KeystorePath = filepath.Join(home, ".respawn-gate", "keystore.json")
		}
	}
	c.Wallet.KeystorePath = ExpandHome(c.Wallet.KeystorePath)

	// Session defaults
	if c.Session.StorePath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Session.StorePath = filepath.Join(home, ".respawn-gate", "sessions.json")
		}
	}
	c.Session.StorePath = ExpandHome(c.Session.StorePath)
	if c.Session.IdleTTL == "" {
		c.Session.IdleTTL = "720h"
	}

	// Gate defaults -- the required contract names have no defaults.
	if c.Gate.AccessTable == "" {
		c.Gate.AccessTable = "accounts"
	}
	if c.Gate.PaymentMemo == "" {
		c.Gate.PaymentMemo = "respawn"
	}
	if c.Gate.TokenContract == "" {
		c.Gate.TokenContract = "eosio.token"
	}
	if c.Gate.CooldownHours == 0 {
		c.Gate.CooldownHours = 24
	}
	if c.Gate.FailMode == "" {
		c.Gate.FailMode = "open"
	}

	// Journal defaults -- off unless asked for.
	if c.Journal.Output == "" {
		c.Journal.Output = "off"
	}

	// Serve defaults -- bind to localhost only for security.
	// Users who need network access must explicitly set http_addr.
	if c.Serve.HTTPAddr == "" {
		c.Serve.HTTPAddr = "127.0.0.1:8099"
	}
	if c.Serve.CacheTTL == "" {
		c.Serve.CacheTTL = "0s"
	}

	// Rate limit defaults -- enabled by default to protect the chain node.
	// Only apply the default when the user hasn't explicitly set it in YAML/env.
	// viper.IsSet distinguishes "not set" (zero value) from "explicitly false".
	if !viper.IsSet("serve.rate_limit.enabled") {
		c.Serve.RateLimit.Enabled = true
	}
	if c.Serve.RateLimit.PerMinute == 0 {
		c.Serve.RateLimit.PerMinute = 120
	}
}
