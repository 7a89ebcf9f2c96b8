package exec

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandString(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "bare program",
			cmd:  Command{Name: "repo"},
			want: "repo",
		},
		{
			name: "program with args",
			cmd:  Command{Name: "repo", Args: []string{"sync", "--jobs=4"}},
			want: "repo sync --jobs=4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.String())
		})
	}
}

func TestRealExecutorRun(t *testing.T) {
	ex := &RealExecutor{}

	var out bytes.Buffer
	err := ex.Run(context.Background(), Command{
		Name:   "sh",
		Args:   []string{"-c", "echo hello"},
		Stdout: &out,
		Stderr: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.String())
}

func TestRealExecutorExitStatus(t *testing.T) {
	ex := &RealExecutor{}

	err := ex.Run(context.Background(), Command{
		Name:   "sh",
		Args:   []string{"-c", "exit 3"},
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	})
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
}

func TestExitCodeUnrelatedError(t *testing.T) {
	assert.Equal(t, -1, ExitCode(assert.AnError))
	assert.Equal(t, 2, ExitCode(&ExitCodeError{Code: 2}))
}

func TestMockExecutorRecords(t *testing.T) {
	mock := &MockExecutor{}

	err := mock.Run(context.Background(), Command{Name: "make_chroot", Args: []string{"--replace"}})
	require.NoError(t, err)
	err = mock.Run(context.Background(), Command{Name: "build_packages"})
	require.NoError(t, err)

	assert.Equal(t, []string{"make_chroot --replace", "build_packages"}, mock.Strings())
}
