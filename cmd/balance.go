package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bnema/modal-accounts-cli/internal/adapters/httpapi"
	"github.com/spf13/cobra"
)

func newBalanceCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Read remaining credit from the remote balance document",
	}

	cmd.AddCommand(newBalanceCheckCmd(app))

	return cmd
}

func newBalanceCheckCmd(app *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "check [username]",
		Short: "Refresh one account's balance (default: the active one), or every account with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if len(args) > 0 {
					return errors.New("--all takes no username")
				}
				return checkAllBalances(cmd, app)
			}

			username, err := accountArg(cmd.Context(), app, args)
			if err != nil {
				return err
			}

			var balance httpapi.BalanceView
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), fmt.Sprintf("Reading balance of %s...", username), func(ctx context.Context) error {
				var checkErr error
				balance, checkErr = app.client.CheckBalance(ctx, username)
				return checkErr
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: $%.2f\n", balance.Username, balance.Balance)
			return err
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Check every account")

	return cmd
}

func checkAllBalances(cmd *cobra.Command, app *app) error {
	var balances httpapi.BalancesView
	err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Reading balances...", func(ctx context.Context) error {
		var checkErr error
		balances, checkErr = app.client.CheckAllBalances(ctx)
		return checkErr
	})
	if err != nil {
		return err
	}

	usernames := make([]string, 0, len(balances.Balances))
	for username := range balances.Balances {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	for _, username := range usernames {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: $%.2f\n", username, balances.Balances[username])
	}

	if balances.Error != "" {
		return fmt.Errorf("some balances could not be read: %s", balances.Error)
	}

	return nil
}
