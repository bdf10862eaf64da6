package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Pay to skip the cooldown",
	Long: `Pay transfers the configured payment amount to the payment contract,
buying an immediate respawn regardless of the cooldown. The wallet
backend shows the transfer before signing; there is no extra prompt
here.`,
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

		res := app.gate.Pay(ctx, sess, app.gateCfg)
		if !res.Success {
			return fmt.Errorf("payment failed: %s", res.Err)
		}

		fmt.Printf("Paid %s, respawn unlocked for %s\n", app.gateCfg.PaymentAmount, sess.Account())
		if res.Transaction != nil {
			fmt.Printf("  transaction: %s\n", res.Transaction.TransactionID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(payCmd)
}
