package exec

import "context"

// MockExecutor is an Executor for testing. It records every command that
// would run without actually running anything.
type MockExecutor struct {
	// Commands records all commands passed to Run, in order.
	Commands []Command

	// LookPathFunc allows custom behavior for LookPath in tests.
	LookPathFunc func(file string) (string, error)

	// RunFunc allows custom behavior for Run in tests. When nil, Run
	// records the command and reports success.
	RunFunc func(ctx context.Context, cmd Command) error
}

// Strings returns the recorded commands rendered as shell-style strings.
func (m *MockExecutor) Strings() []string {
	out := make([]string, len(m.Commands))
	for i, c := range m.Commands {
		out[i] = c.String()
	}
	return out
}

// LookPath implements Executor. By default every program exists.
func (m *MockExecutor) LookPath(file string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(file)
	}
	return "/usr/bin/" + file, nil
}

// Run implements Executor, recording the command.
func (m *MockExecutor) Run(ctx context.Context, cmd Command) error {
	m.Commands = append(m.Commands, cmd)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, cmd)
	}
	return nil
}
