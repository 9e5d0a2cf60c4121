package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lsync",
		Short:         "Locus session sync: track meeting and call sessions for this device",
		Long:          "lsync keeps a local registry of the meeting and call sessions this device takes part in. It listens to pushed session records, reconciles against the server's active list, and persists a snapshot you can inspect from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newWatchCmd(app),
		newSyncCmd(app),
		newCreateCmd(app),
		newSessionsCmd(app),
		newTokenCmd(app),
	)

	return rootCmd
}
