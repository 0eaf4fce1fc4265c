package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProfilesCommand(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List selectable profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(*logLevel)
			if err != nil {
				return err
			}
			defer rt.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tLANGUAGE\tDICTIONARY\tVOICE")
			for _, name := range rt.catalog.Names() {
				p, _ := rt.catalog.Get(name)
				dict := p.Dictionary
				if dict == "" {
					dict = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Language, dict, p.Voice.Name)
			}
			return w.Flush()
		},
	}
}
