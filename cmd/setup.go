package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSetupCmd(app *app) *cobra.Command {
	var gpu string

	cmd := &cobra.Command{
		Use:   "setup [username]",
		Short: "Run the two-phase setup pipeline on an account (default: the active one)",
		Long:  "Queues the setup pipeline on the daemon and returns. Phase 1 is skipped when the volume is already installed; follow progress with `ma status` or `ma account history`.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := accountArg(cmd.Context(), app, args)
			if err != nil {
				return err
			}

			accepted, err := app.client.RunSetup(cmd.Context(), username, gpu)
			if err != nil {
				return err
			}

			target := accepted.GPU
			if target == "" {
				target = app.cfg.Setup.GPU
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "setup queued for %s on %s\n", accepted.Username, target)
			return err
		},
	}

	cmd.Flags().StringVar(&gpu, "gpu", "", "GPU class for the setup run (default setup.gpu)")

	return cmd
}
