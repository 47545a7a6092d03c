package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/adapters/httpapi"
	statusadapter "github.com/bnema/modal-accounts-cli/internal/adapters/render/status"
	"github.com/spf13/cobra"
)

type statusOutput struct {
	Overview httpapi.OverviewView `json:"overview"`
	Watchdog httpapi.WatchdogView `json:"watchdog"`
}

func newStatusCmd(app *app) *cobra.Command {
	var (
		asJSON  bool
		watch   bool
		refresh time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show accounts, balances, the session and pending auto-switches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if watch {
				return watchStatus(cmd, app, refresh)
			}

			overview, err := app.client.Overview(cmd.Context())
			if err != nil {
				return err
			}

			watchdog, err := app.client.Watchdog(cmd.Context())
			if err != nil {
				return err
			}

			return writeStatusOutput(cmd, app, overview, watchdog, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep redrawing until q is pressed")
	cmd.Flags().DurationVar(&refresh, "refresh", statusadapter.DefaultRefresh, "How often --watch asks the daemon again")
	cmd.MarkFlagsMutuallyExclusive("json", "watch")

	return cmd
}

func watchStatus(cmd *cobra.Command, app *app, refresh time.Duration) error {
	if !isTerminal(cmd.OutOrStdout()) {
		return errors.New("--watch needs a terminal; use --json for scripts")
	}

	fetch := func(ctx context.Context) (statusadapter.Snapshot, error) {
		overview, err := app.client.Overview(ctx)
		if err != nil {
			return statusadapter.Snapshot{}, err
		}
		watchdog, err := app.client.Watchdog(ctx)
		if err != nil {
			return statusadapter.Snapshot{}, err
		}

		return statusadapter.Snapshot{Overview: overview.Overview(), Pending: watchdog.PendingSwitches()}, nil
	}

	return statusadapter.Watch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), fetch, statusadapter.WatchOptions{
		Refresh: refresh,
		Now:     app.now,
	})
}

func writeStatusOutput(cmd *cobra.Command, app *app, overview httpapi.OverviewView, watchdog httpapi.WatchdogView, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(statusOutput{Overview: overview, Watchdog: watchdog})
	}

	rendered, err := app.statusRenderer(overview.Overview(), statusadapter.RenderOptions{
		Now:     app.now(),
		Pending: watchdog.PendingSwitches(),
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
