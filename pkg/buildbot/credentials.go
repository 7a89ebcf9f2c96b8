package buildbot

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Environment variables the downloader tool reads its transfer
// credentials from. They are exported only for the duration of the
// download and cleared immediately afterwards.
const (
	EnvUser     = "BUILDBOT_USER"
	EnvPassword = "BUILDBOT_PASSWORD"
)

// Credentials are transfer credentials for the artifact server.
type Credentials struct {
	User     string
	Password string
}

// Prompter obtains transfer credentials from the user.
type Prompter interface {
	Prompt() (Credentials, error)
}

// TerminalPrompter reads credentials from the terminal, suppressing
// echo for the password when stdin is a real terminal.
type TerminalPrompter struct {
	In  *os.File
	Out *os.File
}

// NewTerminalPrompter prompts on stdin/stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *TerminalPrompter) Prompt() (Credentials, error) {
	reader := bufio.NewReader(p.In)

	fmt.Fprint(p.Out, "Buildbot user: ")
	user, err := reader.ReadString('\n')
	if err != nil {
		return Credentials{}, fmt.Errorf("reading user: %w", err)
	}

	fmt.Fprint(p.Out, "Buildbot password: ")
	var password string
	if isatty.IsTerminal(p.In.Fd()) {
		raw, err := term.ReadPassword(int(p.In.Fd()))
		fmt.Fprintln(p.Out)
		if err != nil {
			return Credentials{}, fmt.Errorf("reading password: %w", err)
		}
		password = string(raw)
	} else {
		line, err := reader.ReadString('\n')
		if err != nil {
			return Credentials{}, fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	return Credentials{
		User:     strings.TrimSpace(user),
		Password: password,
	}, nil
}

// exportCredentials publishes the credentials to the process
// environment for the downloader tool.
func exportCredentials(c Credentials) {
	os.Setenv(EnvUser, c.User)
	os.Setenv(EnvPassword, c.Password)
}

// ClearCredentials removes any exported transfer credentials. The
// failure handler calls it defensively on every error path.
func ClearCredentials() {
	os.Unsetenv(EnvUser)
	os.Unsetenv(EnvPassword)
}
