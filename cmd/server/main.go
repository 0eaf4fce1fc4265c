package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexiqai/synth-session/internal/observability"
)

func NewRootCommand() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "synth-session",
		Short:         "Speech synthesis session coordinator",
		Version:       observability.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCommand(&logLevel),
		newSpeakCommand(&logLevel),
		newProvisionCommand(&logLevel),
		newProfilesCommand(&logLevel),
	)

	return cmd
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		// Logger may not be initialized yet
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
