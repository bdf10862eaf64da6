package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var respawnCmd = &cobra.Command{
	Use:   "respawn",
	Short: "Claim the free respawn",
	Long: `Respawn submits the access action for the linked account. The claim
is refused locally while the cooldown is still running; the contract
enforces the same rule on chain.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		sess, err := app.restoreSession(ctx)
		if err != nil {
			return err
		}

		res := app.gate.Respawn(ctx, sess, app.gateCfg)
		if !res.Success {
			return fmt.Errorf("respawn failed: %s", res.Err)
		}

		fmt.Printf("Respawned %s\n", sess.Account())
		if res.Transaction != nil {
			fmt.Printf("  transaction: %s\n", res.Transaction.TransactionID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(respawnCmd)
}
