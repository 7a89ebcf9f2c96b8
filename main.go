package main

import (
	"errors"
	"os"

	"github.com/crosutils/crosbuild/cmd"
	"github.com/crosutils/crosbuild/pkg/phase"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "crosbuild",
		Short:         "Build, master and deploy platform images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cmd.NewBuildCmd())
	rootCmd.AddCommand(cmd.NewStepsCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		// Propagate the subprocess exit status when a phase failed.
		var perr *phase.Error
		if errors.As(err, &perr) && perr.ExitCode > 0 {
			os.Exit(perr.ExitCode)
		}
		os.Exit(1)
	}
}
