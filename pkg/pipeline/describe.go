package pipeline

import (
	"fmt"

	"github.com/crosutils/crosbuild/pkg/config"
)

// Describe enumerates, in execution order, the steps Run would perform
// for cfg. Pure reporting; nothing here touches the system.
func Describe(cfg *config.Config) []string {
	var steps []string
	add := func(format string, args ...any) {
		steps = append(steps, fmt.Sprintf(format, args...))
	}

	if cfg.CreateCheckout {
		add("Create source checkout at %s", cfg.Top)
	}
	if cfg.Sync {
		add("Sync sources")
	}
	if cfg.GrabBuildbot != "" {
		add("Install prebuilt image from buildbot (%s)", cfg.GrabBuildbot)
	}
	if cfg.ReplaceChroot {
		add("Create chroot at %s", cfg.Chroot)
	}
	if cfg.Build {
		add("Build packages for board %s", cfg.Board)
		if cfg.AutotestClient {
			add("Cross-build autotest client")
		}
	}
	if cfg.ChromeRoot != "" {
		add("Build Chrome from %s", cfg.ChromeRoot)
	}
	if cfg.Unittest && cfg.Board == config.DefaultBoard {
		add("Run unit tests")
	}
	if cfg.Master {
		add("Master bootable image")
	}
	if cfg.ModImageForTest && cfg.GrabBuildbot == "" {
		add("Modify image for test")
	}
	if cfg.ImageToUSB != "" {
		add("Write image to USB device %s", cfg.ImageToUSB)
	}
	if cfg.ImageToLive {
		add("Live reimage remote target %s", cfg.Remote)
	}
	if cfg.ImageToVM {
		add("Build VM image")
	}
	if cfg.Test != "" {
		if cfg.Remote != "" {
			add("Run tests on remote %s: %s", cfg.Remote, cfg.Test)
		} else {
			add("Run tests in local VM: %s", cfg.Test)
		}
	}
	return steps
}
