package cmd

import (
	"context"

	"github.com/crosutils/crosbuild/pkg/config"
	"github.com/crosutils/crosbuild/pkg/exec"
	"github.com/crosutils/crosbuild/pkg/pipeline"
	"github.com/spf13/cobra"
)

// NewStepsCmd prints the plan a build invocation would run, without
// running anything.
func NewStepsCmd() *cobra.Command {
	stepsCmd := &cobra.Command{
		Use:   "steps",
		Short: "Show which pipeline steps the given flags would run",
		Args:  cobra.NoArgs,
		RunE:  runSteps,
	}
	addBuildFlags(stepsCmd)
	return stepsCmd
}

func runSteps(cmd *cobra.Command, args []string) error {
	opts, err := gatherOptions()
	if err != nil {
		return err
	}
	cfg, err := config.Validate(context.Background(), opts, config.NewOSProbe(&exec.RealExecutor{}))
	if err != nil {
		return err
	}
	printPlan(cmd.OutOrStdout(), cfg, pipeline.Describe(cfg))
	return nil
}
