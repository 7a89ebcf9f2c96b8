package exec

import (
	"context"
	"errors"
	"os"
	osexec "os/exec"
	"strconv"
)

// RealExecutor implements Executor using os/exec. This is the production
// implementation that executes actual system commands.
type RealExecutor struct{}

// LookPath searches for an executable named file in the directories
// named by the PATH environment variable.
func (e *RealExecutor) LookPath(file string) (string, error) {
	return osexec.LookPath(file)
}

// Run executes the command, streaming its output, and waits for it to
// complete. Cancelling the context kills the process.
func (e *RealExecutor) Run(ctx context.Context, cmd Command) error {
	c := osexec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdout = cmd.Stdout
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	c.Stderr = cmd.Stderr
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	return c.Run()
}

// ExitCodeError reports a nonzero exit status without a backing process.
// Mocks return it so callers exercise the same exit-code path as with a
// real *exec.ExitError.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return "exit status " + strconv.Itoa(e.Code)
}

// ExitCode extracts the subprocess exit status from an error returned by
// Run. It returns -1 when the error carries no exit status (startup
// failure, killed process, unrelated error).
func ExitCode(err error) int {
	var ee *osexec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	var ce *ExitCodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return -1
}
