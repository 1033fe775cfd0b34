package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "vendsim",
		Short:        "vendsim: exercise vending machines under concurrent load",
		SilenceUsage: true,
	}

	cmd.AddCommand(raceCmd())
	cmd.AddCommand(fleetCmd())
	return cmd
}
