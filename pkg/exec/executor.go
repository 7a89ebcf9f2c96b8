package exec

import (
	"context"
	"io"
	"strings"
)

// Command describes a single external command invocation.
type Command struct {
	// Name is the program to run, resolved against PATH unless absolute.
	Name string

	// Args are the program arguments, not including the program name.
	Args []string

	// Dir is the working directory for the command. Empty means the
	// calling process's working directory.
	Dir string

	// Env holds extra environment entries of the form "KEY=value",
	// appended to the calling process's environment.
	Env []string

	// Stdout and Stderr receive the command's output. Nil writers
	// default to the calling process's stdout/stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command the way it would appear on a shell prompt.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Executor runs external commands. The production implementation shells
// out via os/exec; tests substitute a mock that records invocations.
type Executor interface {
	// LookPath searches for an executable named file in the directories
	// named by the PATH environment variable.
	LookPath(file string) (string, error)

	// Run executes the command and waits for it to complete. A nonzero
	// exit status is returned as an error from which ExitCode can
	// recover the status.
	Run(ctx context.Context, cmd Command) error
}
