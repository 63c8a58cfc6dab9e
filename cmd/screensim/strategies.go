package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/screenlab/screensim/internal/screening"
)

func strategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the available representation/model strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := screening.DefaultRegistry()
			strategies := reg.Strategies()

			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), strategies)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "REPRESENTATION\tMODEL\tDESCRIPTION")
			for _, s := range strategies {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Representation, s.Model, reg.Describe(s.Model))
			}
			return w.Flush()
		},
	}
}
