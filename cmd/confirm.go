package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crosutils/crosbuild/pkg/config"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// printPlan lists the steps the pipeline will run for cfg.
func printPlan(out io.Writer, cfg *config.Config, steps []string) {
	fmt.Fprintf(out, "%s (board %s)\n", color.New(color.Bold).Sprint("Planned steps"), color.CyanString(cfg.Board))
	for i, step := range steps {
		fmt.Fprintf(out, "  %2d. %s\n", i+1, step)
	}
	if len(steps) == 0 {
		fmt.Fprintln(out, "  (nothing to do)")
	}
}

// confirmPlan requires an explicit yes before any state-changing phase
// runs. Answers not starting with y abort. Without a terminal the
// prompt cannot be answered, so --yes is required.
func confirmPlan(in *os.File, out io.Writer, assumeYes bool) error {
	if assumeYes {
		return nil
	}
	if !isatty.IsTerminal(in.Fd()) {
		return errors.New("standard input is not a terminal; pass --yes to proceed")
	}
	return readConfirmation(in, out)
}

func readConfirmation(in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "\n%s (y/N) ", color.New(color.Bold).Sprint("Continue?"))
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading confirmation: %w", err)
	}
	// Only the first character counts, so "yes" works too.
	answer := strings.TrimSpace(line)
	if answer == "" || (answer[0] != 'y' && answer[0] != 'Y') {
		return errors.New("aborted")
	}
	return nil
}
