package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ibrahimkeyboad/govend/internal/core/config"
)

func fleetCmd() *cobra.Command {
	var file string

	c := &cobra.Command{
		Use:   "fleet",
		Short: "Validate and print a fleet definition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, err := config.LoadFleet(file)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTOCK\tUNIT PRICE")
			for _, s := range specs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.Name, s.Stock, s.UnitPrice)
			}
			return tw.Flush()
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "fleet.yaml", "Fleet definition (YAML)")
	return c
}
