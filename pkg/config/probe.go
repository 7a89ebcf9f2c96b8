package config

import (
	"context"
	"os"

	"github.com/crosutils/crosbuild/pkg/exec"
	"github.com/crosutils/crosbuild/pkg/sysutil"
)

// OSProbe is the production SystemProbe, backed by the real filesystem,
// sysfs and the remote-access helper.
type OSProbe struct {
	Devices *sysutil.BlockDevices
	Remote  *sysutil.RemoteClient
}

// NewOSProbe wires an OSProbe over the given executor.
func NewOSProbe(ex exec.Executor) *OSProbe {
	return &OSProbe{
		Devices: sysutil.NewBlockDevices(),
		Remote:  &sysutil.RemoteClient{Exec: ex},
	}
}

func (p *OSProbe) Getwd() (string, error) { return os.Getwd() }

func (p *OSProbe) Executable() (string, error) { return os.Executable() }

func (p *OSProbe) DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (p *OSProbe) FindCheckoutRoot(start string) (string, bool) {
	return sysutil.FindCheckoutRoot(start)
}

func (p *OSProbe) RemovableDevice(device string) (bool, error) {
	return p.Devices.Removable(device)
}

func (p *OSProbe) QueryBoard(ctx context.Context, host string) (string, error) {
	return p.Remote.QueryBoard(ctx, host)
}
