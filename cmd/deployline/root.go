package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "deployline",
		Short:         "Deployline runs staged deploy hooks contributed by project addons",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newDeployCmd(flags))
	cmd.AddCommand(newPluginsCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
