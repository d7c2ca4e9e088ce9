package cmd

import (
	"github.com/spf13/cobra"

	"github.com/paulasmuth/brokerd/cmd/start"
	"github.com/paulasmuth/brokerd/utils"
	"github.com/paulasmuth/brokerd/utils/log"
)

// flagPrintVersion set flag to show current brokerd version.
var flagPrintVersion bool

// Execute builds the command tree and executes commands.
func Execute() error {
	// c is the root command.
	c := &cobra.Command{
		Use: "brokerd",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Print version if specified.
			if flagPrintVersion {
				log.Info("version: %v", utils.Version)
				return nil
			}
			// Print information regarding usage.
			return cmd.Usage()
		},
	}

	c.AddCommand(start.Cmd)
	c.Flags().BoolVarP(&flagPrintVersion, "version", "v", false, "show the version info and exit")

	return c.Execute()
}
