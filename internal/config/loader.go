// Package config provides configuration loading for respawn-gate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for respawn-gate.yaml/.yml in standard locations.
// The search requires an explicit YAML extension to avoid matching the binary itself,
// which Viper's built-in SetConfigName would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location.
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("respawn-gate")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: RESPAWN_GATE_CHAIN_API
	viper.SetEnvPrefix("RESPAWN_GATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Bind nested keys for env var support
	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a respawn-gate config file
// with an explicit YAML extension (.yaml or .yml). This prevents Viper from
// matching the binary "respawn-gate" (no extension) in the current directory.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".respawn-gate"),
	}
	if runtime.GOOS == "windows" {
		// %ProgramData%\respawn-gate (typically C:\ProgramData\respawn-gate)
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "respawn-gate"))
		}
	} else {
		paths = append(paths, "/etc/respawn-gate")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for respawn-gate.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "respawn-gate"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all config keys for environment variable support.
// This enables overriding nested config values via environment variables.
// Example: RESPAWN_GATE_CHAIN_API overrides chain.api
func bindNestedEnvKeys() {
	// Chain config
	_ = viper.BindEnv("chain.api")
	_ = viper.BindEnv("chain.request_timeout")
	_ = viper.BindEnv("chain.log_level")

	// Wallet config
	_ = viper.BindEnv("wallet.backend")
	_ = viper.BindEnv("wallet.walletd_addr")
	_ = viper.BindEnv("wallet.keystore_path")

	// Session config
	_ = viper.BindEnv("session.store_path")
	_ = viper.BindEnv("session.idle_ttl")

	// Gate config
	_ = viper.BindEnv("gate.access_contract")
	_ = viper.BindEnv("gate.access_table")
	_ = viper.BindEnv("gate.access_action")
	_ = viper.BindEnv("gate.payment_contract")
	_ = viper.BindEnv("gate.payment_action")
	_ = viper.BindEnv("gate.payment_amount")
	_ = viper.BindEnv("gate.payment_memo")
	_ = viper.BindEnv("gate.token_contract")
	_ = viper.BindEnv("gate.cooldown_hours")
	_ = viper.BindEnv("gate.fail_mode")

	// Journal config
	_ = viper.BindEnv("journal.output")

	// Serve config
	_ = viper.BindEnv("serve.http_addr")
	_ = viper.BindEnv("serve.cache_ttl")
	_ = viper.BindEnv("serve.rate_limit.enabled")
	_ = viper.BindEnv("serve.rate_limit.per_minute")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, and returns the validated Config.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults,
// but does NOT validate. Use this for commands that inspect the effective
// configuration even when required fields are missing.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only
		// This allows running with pure environment variable configuration
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
