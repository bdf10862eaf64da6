package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
	"github.com/Respawn-Gate/Respawngate/internal/domain/token"
)

var balancesContract string

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "List token balances for the linked account",
	Long: `Balances lists every holding the linked account has under a token
contract. The configured gate token contract is queried unless
--contract names another one.`,
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

		contract := chain.AccountName(balancesContract)
		if contract == "" {
			contract = app.gateCfg.TokenContract
		}

		balances, err := token.NewReader(app.logger).Balances(ctx, sess, contract)
		if err != nil {
			return err
		}
		if len(balances) == 0 {
			fmt.Printf("No balances for %s under %s\n", sess.Account(), contract)
			return nil
		}

		fmt.Printf("Balances for %s under %s:\n", sess.Account(), contract)
		for _, b := range balances {
			fmt.Printf("  %s %s\n", b.Amount, b.Symbol)
		}
		return nil
	},
}

func init() {
	balancesCmd.Flags().StringVar(&balancesContract, "contract", "", "token contract to query instead of the configured one")
	rootCmd.AddCommand(balancesCmd)
}
