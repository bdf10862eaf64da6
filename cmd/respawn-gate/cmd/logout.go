package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Unlink the current session",
	Long: `Logout removes the persisted session and tells the wallet backend to
forget the link. Already being logged out is not an error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		sess, err := app.link.Restore(ctx)
		if err != nil {
			return err
		}
		if sess == nil {
			fmt.Println("No linked session.")
			return nil
		}

		account := sess.Account()
		if err := app.link.Logout(ctx, sess); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}

		fmt.Printf("Unlinked %s\n", account)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
