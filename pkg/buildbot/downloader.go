package buildbot

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/crosutils/crosbuild/pkg/exec"
	"github.com/crosutils/crosbuild/pkg/phase"
)

// ScriptDownloader is the production Downloader, shelling out to curl
// and the unpack tools through the phase runner.
type ScriptDownloader struct {
	Runner *phase.Runner
}

// Download fetches uri into dest. The credentials are expanded by the
// shell from the environment so they never appear on the command line.
func (d *ScriptDownloader) Download(ctx context.Context, uri, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating download directory: %w", err)
	}
	script := `curl --fail --location --silent --show-error ` +
		`--user "${BUILDBOT_USER}:${BUILDBOT_PASSWORD}" --output "$0" "$1"`
	return d.Runner.Run(ctx, "Downloading "+path.Base(uri), exec.Command{
		Name: "sh",
		Args: []string{"-c", script, dest, uri},
	})
}

// Unpack extracts a zip archive into destDir.
func (d *ScriptDownloader) Unpack(ctx context.Context, archive, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating unpack directory: %w", err)
	}
	return d.Runner.Run(ctx, "Unpacking "+filepath.Base(archive), exec.Command{
		Name: "unzip",
		Args: []string{"-o", "-qq", archive, "-d", destDir},
	})
}

// InstallAutotest unpacks a prebuilt autotest bundle into the board
// sysroot inside the chroot.
func (d *ScriptDownloader) InstallAutotest(ctx context.Context, archive, chroot, board string) error {
	sysroot := filepath.Join(chroot, "build", board, "usr", "local")
	return d.Runner.Run(ctx, "Installing prebuilt autotest bundle", exec.Command{
		Name: "sudo",
		Args: []string{"tar", "--bzip2", "--extract", "--file", archive, "--directory", sysroot},
	})
}
