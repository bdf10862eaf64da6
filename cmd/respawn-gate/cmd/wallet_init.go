package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/keystore"
	"github.com/Respawn-Gate/Respawngate/internal/config"
	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
)

var walletInitPermission string

var walletInitCmd = &cobra.Command{
	Use:   "wallet-init <account>",
	Short: "Create a local keystore for an account",
	Long: `Wallet-init generates a fresh signing key for the given account and
writes it, encrypted under a passphrase, to the configured keystore
path. Run this once before the first login when using the keystore
backend.

The printed public key must be added to the account's permission on
chain before signed transactions will be accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Raw load: a keystore can be created before chain.api is set.
		cfg, err := config.LoadConfigRaw()
		if err != nil {
			return err
		}
		if cfg.Wallet.Backend != "keystore" {
			return fmt.Errorf("wallet-init requires the keystore backend, config has %q", cfg.Wallet.Backend)
		}

		pass, err := readSecret("New keystore passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readSecret("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}

		pub, err := keystore.Create(
			cfg.Wallet.KeystorePath,
			chain.AccountName(args[0]),
			chain.PermissionName(walletInitPermission),
			pass,
		)
		if err != nil {
			return err
		}

		fmt.Printf("Keystore created at %s\n", cfg.Wallet.KeystorePath)
		fmt.Printf("  account:    %s@%s\n", args[0], walletInitPermission)
		fmt.Printf("  public key: %s\n", pub)
		fmt.Println("Add this key to the account's permission before logging in.")
		return nil
	},
}

func init() {
	walletInitCmd.Flags().StringVar(&walletInitPermission, "permission", "active", "permission the key signs for")
	rootCmd.AddCommand(walletInitCmd)
}
