package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configFile string
	verbose    bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "interlines",
		Short:         "InterLines turns dense research and policy texts into public briefs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Path to an interlines.yaml settings file")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newPlanCmd(flags))
	cmd.AddCommand(newTracesCmd(flags))
	cmd.AddCommand(newRunsCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
