package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Link an account through the configured wallet",
	Long: `Login asks the wallet backend which account to use, verifies the
wallet's chain matches the configured API node, and persists the
session so later commands run without another wallet round trip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		sess, err := app.link.Login(ctx)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Printf("Linked %s@%s\n", sess.Account(), sess.Permission())
		fmt.Printf("  chain:  %s\n", sess.ChainID())
		fmt.Printf("  wallet: %s\n", sess.Wallet())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
