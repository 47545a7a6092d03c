package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/adapters/httpapi"
	"github.com/spf13/cobra"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start, stop and inspect the GPU session",
	}

	cmd.AddCommand(
		newSessionStartCmd(app),
		newSessionStopCmd(app),
		newSessionShowCmd(app),
	)

	return cmd
}

func newSessionStartCmd(app *app) *cobra.Command {
	var gpu string

	cmd := &cobra.Command{
		Use:   "start [username]",
		Short: "Start the session on an account (default: the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := accountArg(cmd.Context(), app, args)
			if err != nil {
				return err
			}

			var deployment httpapi.DeploymentView
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), fmt.Sprintf("Starting session on %s...", username), func(ctx context.Context) error {
				var startErr error
				deployment, startErr = app.client.StartSession(ctx, username, gpu)
				return startErr
			})
			if err != nil {
				return err
			}

			return writeDeployment(cmd, deployment)
		},
	}

	cmd.Flags().StringVar(&gpu, "gpu", "", "GPU class for this run (default: the account's selection)")

	return cmd
}

func newSessionStopCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.client.StopSession(cmd.Context()); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "session stopped")
			return err
		},
	}
}

func newSessionShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.client.Session(cmd.Context())
			if err != nil {
				return err
			}

			if session.Deployment == nil {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "session %s\n", session.State)
				return err
			}

			ready := "not ready"
			if session.Ready {
				ready = "ready"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session %s (%s), up %s\n", session.State, ready, app.now().Sub(session.Deployment.StartedAt).Round(time.Minute))
			return writeDeployment(cmd, *session.Deployment)
		},
	}
}

func writeDeployment(cmd *cobra.Command, deployment httpapi.DeploymentView) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "running %s on %s\n", deployment.Username, deployment.GPU)
	if deployment.ComfyUIURL != "" {
		_, _ = fmt.Fprintf(out, "comfyui: %s\n", deployment.ComfyUIURL)
	}
	if deployment.JupyterURL != "" {
		_, _ = fmt.Fprintf(out, "jupyter: %s\n", deployment.JupyterURL)
	}

	_, err := fmt.Fprintf(out, "deployment: %s\n", deployment.ID)
	return err
}

// accountArg returns the single positional username, or the active account.
func accountArg(ctx context.Context, app *app, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	overview, err := app.client.Overview(ctx)
	if err != nil {
		return "", err
	}
	if overview.Active == "" {
		return "", errors.New("no active account; pass a username or run `ma switch --next`")
	}

	return overview.Active, nil
}
