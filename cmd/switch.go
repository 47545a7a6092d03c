package cmd

import (
	"errors"
	"fmt"

	"github.com/bnema/modal-accounts-cli/internal/adapters/httpapi"
	"github.com/spf13/cobra"
)

func newSwitchCmd(app *app) *cobra.Command {
	var next bool

	cmd := &cobra.Command{
		Use:   "switch [username]",
		Short: "Make an account the active one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if next == (len(args) == 1) {
				return errors.New("pass either a username or --next")
			}

			var (
				account httpapi.AccountView
				err     error
			)
			if next {
				account, err = app.client.SwitchNext(cmd.Context())
			} else {
				account, err = app.client.SwitchTo(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "active account: %s ($%.2f)\n", account.Username, account.Balance)
			return err
		},
	}

	cmd.Flags().BoolVar(&next, "next", false, "Switch to the next account above the minimum balance")

	return cmd
}
