package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at release time via -ldflags.
var Version = "dev"

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the crosbuild version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "crosbuild", Version)
		},
	}
}
