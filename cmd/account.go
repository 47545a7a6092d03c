package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(
		newAccountAddCmd(app),
		newAccountRemoveCmd(app),
		newAccountListCmd(app),
		newAccountHistoryCmd(app),
		newAccountGPUCmd(app),
	)

	return cmd
}

func newAccountAddCmd(app *app) *cobra.Command {
	var tokenID string
	var tokenSecret string

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Register an account with its Modal token pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.client.AddAccount(cmd.Context(), args[0], tokenID, tokenSecret)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "added %s (id %d, balance $%.2f)\n", account.Username, account.ID, account.Balance)
			return err
		},
	}

	cmd.Flags().StringVar(&tokenID, "token-id", "", "Modal token id (ak-...)")
	cmd.Flags().StringVar(&tokenSecret, "token-secret", "", "Modal token secret (as-...)")
	_ = cmd.MarkFlagRequired("token-id")
	_ = cmd.MarkFlagRequired("token-secret")

	return cmd
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <username>",
		Aliases: []string{"rm"},
		Short:   "Remove an account that is not active",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.client.RemoveAccount(cmd.Context(), args[0]); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return err
		},
	}
}

func newAccountListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overview, err := app.client.Overview(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(overview.Accounts)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tUSERNAME\tBALANCE\tSTATUS\tGPU\tACTIVE")
			for _, account := range overview.Accounts {
				active := ""
				if account.IsActive {
					active = "*"
				}
				_, _ = fmt.Fprintf(w, "%d\t%s\t$%.2f\t%s\t%s\t%s\n", account.ID, account.Username, account.Balance, account.Status, account.SelectedGPU, active)
			}

			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newAccountHistoryCmd(app *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <username>",
		Short: "Show the usage log of an account, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.client.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "no history for %s\n", args[0])
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, entry := range entries {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", entry.Timestamp.Local().Format("2006-01-02 15:04"), entry.Action, entry.Details)
			}

			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")

	return cmd
}

func newAccountGPUCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "gpu <username> <gpu>",
		Short: "Set the GPU class used when the account starts a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.client.SetGPU(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s will start on %s\n", account.Username, account.SelectedGPU)
			return err
		},
	}
}
