package sysutil

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/crosutils/crosbuild/pkg/exec"
)

// boardReleaseKey is the /etc/lsb-release entry naming the target board.
const boardReleaseKey = "CHROMEOS_RELEASE_BOARD"

// RemoteClient talks to a running target over the remote-access helper.
type RemoteClient struct {
	Exec exec.Executor
}

// QueryBoard asks the remote target which board it was built for by
// reading its /etc/lsb-release.
func (r *RemoteClient) QueryBoard(ctx context.Context, host string) (string, error) {
	var out bytes.Buffer
	err := r.Exec.Run(ctx, exec.Command{
		Name:   "ssh",
		Args:   []string{"root@" + host, "cat", "/etc/lsb-release"},
		Stdout: &out,
		Stderr: &bytes.Buffer{},
	})
	if err != nil {
		return "", fmt.Errorf("querying board from %s: %w", host, err)
	}
	for _, line := range strings.Split(out.String(), "\n") {
		if k, v, ok := strings.Cut(strings.TrimSpace(line), "="); ok && k == boardReleaseKey {
			return strings.TrimSpace(v), nil
		}
	}
	return "", fmt.Errorf("no %s entry in lsb-release from %s", boardReleaseKey, host)
}

// ReleaseSession drops any cached remote-access state (control sockets)
// left behind by earlier phases. Best effort; a missing control socket
// is the common case.
func (r *RemoteClient) ReleaseSession(ctx context.Context, host string) {
	_ = r.Exec.Run(ctx, exec.Command{
		Name:   "ssh",
		Args:   []string{"-O", "exit", "root@" + host},
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	})
}
