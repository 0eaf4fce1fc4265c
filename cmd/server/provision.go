package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProvisionCommand(logLevel *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "provision [profile...]",
		Short:   "Copy profile data files from the bundle into the data directory",
		Example: `synth-session provision ja en`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(*logLevel)
			if err != nil {
				return err
			}
			defer rt.Close()

			names := args
			if all || len(names) == 0 {
				names = rt.catalog.Names()
			}

			for _, name := range names {
				profile, ok := rt.catalog.Get(name)
				if !ok {
					return fmt.Errorf("unknown profile %q", name)
				}
				report, err := rt.provisioner.Ensure(cmd.Context(), profile.AssetSet(), rt.fingerprint)
				if err != nil {
					return err
				}
				if report.Skipped {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: up to date\n", name)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files, %d bytes in %s\n", name, report.Files, report.Bytes, report.Took)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Provision every profile")

	return cmd
}
