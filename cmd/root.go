package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the command line. Without a subcommand it runs serve.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	cmd := &cobra.Command{
		Use:          "appointlab",
		Short:        "Appointment notifications and WhatsApp replies",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	cmd.AddCommand(serve)
	cmd.AddCommand(newBridgeCmd())
	cmd.AddCommand(newAppCmd())
	cmd.AddCommand(newScanCmd())
	return cmd
}
