package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "ma",
		Short:         "Modal Accounts CLI (ma): rotate GPU sessions across prepaid accounts",
		Long:          "ma (Modal Accounts CLI) keeps a pool of Modal accounts, runs the setup pipeline on them, starts and stops the GPU session, and switches to the next funded account when credit runs low. `ma serve` is the daemon; every other command talks to it.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.configFile, "config", "", "Config file (default ~/.config/ma/config.toml)")
	rootCmd.PersistentFlags().StringVar(&app.server, "server", "", "Daemon address (default server.listen from config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(app),
		newAccountCmd(app),
		newStatusCmd(app),
		newSessionCmd(app),
		newSwitchCmd(app),
		newBalanceCmd(app),
		newSetupCmd(app),
	)

	return rootCmd
}
