package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Respawn-Gate/Respawngate/internal/domain/gate"
	"github.com/Respawn-Gate/Respawngate/internal/service"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show respawn eligibility, cooldown and balance",
	Long: `Status reads the access table and token balances for the linked
account and reports whether a free respawn is available right now.

With --watch the command keeps running, ticking the cooldown down once
a second and exiting when the free respawn unlocks.`,
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

		st, err := app.gate.Status(ctx, sess, app.gateCfg)
		if err != nil {
			return err
		}

		printStatus(sess.Account().String(), sess.Wallet(), st, app.gateCfg)

		if statusWatch && !st.CanRespawnFree {
			return watchCooldown(ctx, app, sess, st)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "keep running and count the cooldown down")
	rootCmd.AddCommand(statusCmd)
}

func printStatus(account, wallet string, st *gate.Status, cfg gate.Config) {
	fmt.Printf("Account:  %s\n", account)
	fmt.Printf("Wallet:   %s\n", wallet)
	if st.XPRBalance != nil {
		fmt.Printf("Balance:  %s %s\n", st.XPRBalance.Amount, st.XPRBalance.Symbol)
	} else {
		fmt.Printf("Balance:  none\n")
	}

	if st.CanRespawnFree {
		fmt.Printf("Respawn:  free now\n")
		return
	}

	fmt.Printf("Respawn:  cooldown, %s remaining", gate.FormatRemaining(st.Remaining))
	if st.CooldownEnds != nil {
		fmt.Printf(" (until %s)", st.CooldownEnds.Local().Format("15:04:05"))
	}
	fmt.Println()

	if st.HasEnoughXPR {
		fmt.Printf("          'respawn-gate pay' skips the wait for %s\n", cfg.PaymentAmount)
	} else {
		fmt.Printf("          paid respawn needs %s, balance is short\n", cfg.PaymentAmount)
	}
}

// watchCooldown rewrites a countdown line once a second, re-deriving
// the remaining time from the absolute deadline so a suspended laptop
// does not stall the clock. When the deadline passes it re-checks the
// chain once: the table row is the truth, the local clock only a hint.
func watchCooldown(ctx context.Context, app *app, sess service.GateSession, st *gate.Status) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	deadline := st.CooldownEnds
	rechecked := false

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case <-ticker.C:
		}

		if deadline == nil {
			fmt.Println()
			return nil
		}

		remaining := time.Until(*deadline)
		if remaining > 0 {
			fmt.Printf("\rCooldown: %s remaining ", gate.FormatRemaining(remaining))
			continue
		}

		if rechecked {
			fmt.Printf("\rRespawn:  free now                \n")
			return nil
		}
		rechecked = true

		fresh, err := app.gate.Status(ctx, sess, app.gateCfg)
		if err != nil {
			fmt.Println()
			return err
		}
		if fresh.CanRespawnFree {
			fmt.Printf("\rRespawn:  free now                \n")
			return nil
		}
		// Chain clock ran behind ours; track the fresh deadline.
		deadline = fresh.CooldownEnds
		rechecked = false
	}
}
