// Package cmd provides the CLI commands for respawn-gate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Respawn-Gate/Respawngate/internal/config"
)

var cfgFile string
var debugMode bool

var rootCmd = &cobra.Command{
	Use:   "respawn-gate",
	Short: "Respawn Gate - chain-backed respawn cooldown client",
	Long: `Respawn Gate links a wallet-held account to an on-chain respawn gate:
a free respawn every cooldown window, recorded in the access table, or a
paid bypass when the wait is too long. All state lives on chain; this
client only reads tables and submits signed actions.

Quick start:
  1. Create a config file: respawn-gate.yaml (gate contracts + chain api)
  2. Initialize a local key: respawn-gate wallet-init <account>
  3. Link the account:       respawn-gate login

Configuration:
  Config is loaded from respawn-gate.yaml in the current directory,
  $HOME/.respawn-gate/, or /etc/respawn-gate/.

  Environment variables can override config values with the RESPAWN_GATE_ prefix.
  Example: RESPAWN_GATE_CHAIN_API=https://api.testnet.example

Commands:
  login        Link an account through the wallet backend
  logout       Unlink the current session
  status       Show cooldown and balance for the linked account
  balances     List token balances for the linked account
  respawn      Take the free respawn (refused while cooling down)
  pay          Pay to bypass the cooldown
  serve        Run the read-only status server
  stop         Stop a running status server
  wallet-init  Create a local sealed keystore
  config       Print the effective configuration
  version      Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./respawn-gate.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "force debug logging regardless of chain.log_level")
}

func initConfig() {
	config.InitViper(cfgFile)
}
