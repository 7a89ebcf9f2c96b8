package phase

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/crosutils/crosbuild/pkg/exec"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Error reports a phase whose command exited nonzero or failed to run.
type Error struct {
	Phase    string
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("phase %q failed: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ChrootSpec describes the isolated build environment a command should
// run inside.
type ChrootSpec struct {
	Path string
	// ChromeRoot, when set, is mounted into the chroot for local
	// browser builds.
	ChromeRoot string
}

// Runner executes named phases. Any nonzero exit is fatal to the
// pipeline; the runner records the last attempted phase so the failure
// handler can report it.
type Runner struct {
	Exec exec.Executor
	Log  *logrus.Entry

	// Out receives the phase banners. Defaults to stdout.
	Out io.Writer

	// SudoRefresh re-validates the sudo timestamp after each successful
	// phase so long phases do not stall later ones on re-authentication.
	SudoRefresh bool

	// EnterChrootTool wraps chroot-bound commands. Relative to the
	// command's working directory.
	EnterChrootTool string

	lastPhase string
}

// NewRunner returns a Runner over the given executor, logging through
// log. Sudo refresh is on; tests turn it off.
func NewRunner(ex exec.Executor, log *logrus.Entry) *Runner {
	return &Runner{
		Exec:            ex,
		Log:             log,
		Out:             os.Stdout,
		SudoRefresh:     true,
		EnterChrootTool: "./enter_chroot.sh",
	}
}

// LastPhase returns the description of the most recently attempted
// phase, or "" when no phase has run.
func (r *Runner) LastPhase() string { return r.lastPhase }

// Run executes one phase to completion. The description is logged
// before the exact command line; a nonzero exit becomes a fatal *Error
// carrying the subprocess exit status.
func (r *Runner) Run(ctx context.Context, description string, cmd exec.Command) error {
	r.lastPhase = description

	fmt.Fprintf(r.out(), "\n%s\n", color.New(color.Bold, color.FgCyan).Sprintf(">>> %s", description))
	r.Log.WithFields(logrus.Fields{
		"phase":   description,
		"command": cmd.String(),
		"dir":     cmd.Dir,
	}).Info("running phase")

	start := time.Now()
	if err := r.Exec.Run(ctx, cmd); err != nil {
		return &Error{Phase: description, ExitCode: exec.ExitCode(err), Err: err}
	}
	r.Log.WithFields(logrus.Fields{
		"phase":    description,
		"duration": time.Since(start).Round(time.Second).String(),
	}).Info("phase complete")

	if r.SudoRefresh {
		r.refreshSudo(ctx)
	}
	return nil
}

// RunInChroot executes one phase inside the chroot by wrapping the
// command with the chroot-entry tool.
func (r *Runner) RunInChroot(ctx context.Context, description string, chroot ChrootSpec, cmd exec.Command) error {
	args := []string{"--chroot", chroot.Path}
	if chroot.ChromeRoot != "" {
		args = append(args, "--chrome_root", chroot.ChromeRoot)
	}
	args = append(args, "--", cmd.Name)
	args = append(args, cmd.Args...)

	wrapped := cmd
	wrapped.Name = r.EnterChrootTool
	wrapped.Args = args
	return r.Run(ctx, description, wrapped)
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

// refreshSudo keeps the privilege-elevation cache warm between phases.
// A no-op when already elevated; failures only warn.
func (r *Runner) refreshSudo(ctx context.Context) {
	if err := r.Exec.Run(ctx, exec.Command{Name: "sudo", Args: []string{"-v"}}); err != nil {
		r.Log.WithError(err).Warn("could not refresh sudo timestamp")
	}
}
