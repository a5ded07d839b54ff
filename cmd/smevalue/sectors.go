package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/smevalue/pkg/utils"
)

// --- Sectors Command ---

func (a *app) newSectorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sectors",
		Short: "List the sectors in the valuation table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tCATEGORY\tREVENUE\tEBITDA")
			for _, p := range engine.Catalog().Sectors() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					p.Code, p.Name, p.Category,
					utils.FormatMultiple(p.BaseMultiple.Revenue),
					utils.FormatMultiple(p.BaseMultiple.EBITDA))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <code>",
		Short: "Show one sector's multiples, adjustments and benchmarks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			profile, ok := engine.Catalog().Lookup(args[0])
			if !ok {
				return eris.Errorf("unknown sector %q (run 'smevalue sectors' for the list)", args[0])
			}
			data, err := yaml.Marshal(profile)
			if err != nil {
				return eris.Wrap(err, "encode sector")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return cmd
}
