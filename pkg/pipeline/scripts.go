package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/crosutils/crosbuild/pkg/config"
	"github.com/crosutils/crosbuild/pkg/exec"
	"github.com/crosutils/crosbuild/pkg/phase"
)

// ScriptTools binds every collaborator to its external script, run
// through the shared phase runner. Commands run from the checkout's
// scripts directory; chroot-bound phases go through the chroot-entry
// tool.
func ScriptTools(cfg *config.Config, runner *phase.Runner) Tools {
	base := &scriptBase{cfg: cfg, runner: runner}
	return Tools{
		Repo:     &repoScripts{base},
		Chroot:   &chrootScripts{base},
		Board:    &boardScripts{base},
		Packages: &packageScripts{base},
		Image:    &imageScripts{base},
		Tests:    &testScripts{base},
	}
}

type scriptBase struct {
	cfg    *config.Config
	runner *phase.Runner
}

func (s *scriptBase) scriptsDir() string {
	return filepath.Join(s.cfg.Top, "src", "scripts")
}

func (s *scriptBase) chroot() phase.ChrootSpec {
	return phase.ChrootSpec{Path: s.cfg.Chroot, ChromeRoot: s.cfg.ChromeRoot}
}

func (s *scriptBase) run(ctx context.Context, desc, name string, args ...string) error {
	return s.runner.Run(ctx, desc, exec.Command{Name: name, Args: args, Dir: s.scriptsDir()})
}

func (s *scriptBase) runInChroot(ctx context.Context, desc, name string, args ...string) error {
	return s.runner.RunInChroot(ctx, desc, s.chroot(), exec.Command{Name: name, Args: args, Dir: s.scriptsDir()})
}

type repoScripts struct{ *scriptBase }

func (s *repoScripts) Init(ctx context.Context) error {
	// Fresh checkouts start from a directory that does not exist yet.
	if err := os.MkdirAll(s.cfg.Top, 0755); err != nil {
		return fmt.Errorf("creating checkout directory: %w", err)
	}
	args := []string{"init", "-u", s.cfg.RepoURI}
	if s.cfg.MiniLayout {
		args = append(args, "--mirror=minilayout")
	}
	return s.runner.Run(ctx, fmt.Sprintf("Creating checkout at %s", s.cfg.Top), exec.Command{
		Name: "repo",
		Args: args,
		Dir:  s.cfg.Top,
	})
}

func (s *repoScripts) Sync(ctx context.Context) error {
	return s.runner.Run(ctx, "Syncing sources", exec.Command{
		Name: "repo",
		Args: []string{"sync", "--jobs", strconv.Itoa(s.cfg.Jobs)},
		Dir:  s.cfg.Top,
	})
}

type chrootScripts struct{ *scriptBase }

func (s *chrootScripts) Make(ctx context.Context, replace bool) error {
	args := []string{"--chroot", s.cfg.Chroot, "--jobs", strconv.Itoa(s.cfg.Jobs)}
	if replace {
		args = append(args, "--replace")
	}
	return s.run(ctx, "Creating chroot", "./make_chroot", args...)
}

type boardScripts struct{ *scriptBase }

func (s *boardScripts) Setup(ctx context.Context) error {
	return s.runInChroot(ctx, fmt.Sprintf("Setting up board %s", s.cfg.Board),
		"./setup_board", "--board="+s.cfg.Board)
}

type packageScripts struct{ *scriptBase }

func (s *packageScripts) EnableLocalAccount(ctx context.Context) error {
	return s.runInChroot(ctx, "Enabling local test account",
		"./enable_localaccount.sh", "chronos")
}

func (s *packageScripts) Build(ctx context.Context) error {
	args := []string{
		"--board=" + s.cfg.Board,
		"--jobs=" + strconv.Itoa(s.cfg.Jobs),
	}
	if s.cfg.WithDev {
		args = append(args, "--withdev")
	} else {
		args = append(args, "--nowithdev")
	}
	if s.cfg.Official {
		args = append(args, "--official")
	}
	return s.runInChroot(ctx, fmt.Sprintf("Building packages for %s", s.cfg.Board),
		"./build_packages", args...)
}

func (s *packageScripts) BuildAutotestClient(ctx context.Context) error {
	return s.runInChroot(ctx, "Cross-building autotest client",
		"./build_autotest.sh", "--board="+s.cfg.Board)
}

func (s *packageScripts) BuildChrome(ctx context.Context) error {
	return s.runInChroot(ctx, fmt.Sprintf("Building Chrome from %s", s.cfg.ChromeRoot),
		"./build_chrome.sh", "--board="+s.cfg.Board)
}

func (s *packageScripts) UnitTests(ctx context.Context) error {
	return s.runInChroot(ctx, "Running unit tests",
		"./run_unit_tests.sh", "--board="+s.cfg.Board)
}

type imageScripts struct{ *scriptBase }

func (s *imageScripts) SetChronosPassword(ctx context.Context) error {
	return s.runInChroot(ctx, "Setting chronos password",
		"./set_shared_user_password.sh", s.cfg.ChronosPasswd)
}

func (s *imageScripts) Build(ctx context.Context) error {
	args := []string{
		"--board=" + s.cfg.Board,
		"--jobs=" + strconv.Itoa(s.cfg.Jobs),
	}
	if s.cfg.Official {
		args = append(args, "--official")
	}
	if s.cfg.EnableRootfsVerification {
		args = append(args, "--enable_rootfs_verification")
	}
	return s.runInChroot(ctx, "Mastering image", "./build_image", args...)
}

func (s *imageScripts) ModForTest(ctx context.Context) error {
	return s.runInChroot(ctx, "Modifying image for test",
		"./mod_image_for_test.sh", "--board="+s.cfg.Board, "--yes")
}

func (s *imageScripts) ToUSB(ctx context.Context) error {
	return s.run(ctx, fmt.Sprintf("Writing image to %s", s.cfg.ImageToUSB),
		"./image_to_usb.sh", "--board="+s.cfg.Board, "--to="+s.cfg.ImageToUSB, "--yes")
}

func (s *imageScripts) ToLive(ctx context.Context) error {
	return s.run(ctx, fmt.Sprintf("Reimaging live target %s", s.cfg.Remote),
		"./image_to_live.sh", "--remote="+s.cfg.Remote)
}

func (s *imageScripts) ToVM(ctx context.Context) error {
	args := []string{"--board=" + s.cfg.Board}
	if s.cfg.ModImageForTest {
		args = append(args, "--test_image")
	}
	return s.runInChroot(ctx, "Building VM image", "./image_to_vm.sh", args...)
}

type testScripts struct{ *scriptBase }

func (s *testScripts) RunLocal(ctx context.Context) error {
	args := []string{"--board=" + s.cfg.Board, "--use_emulator", "--remote=127.0.0.1"}
	if s.cfg.VMOptions != "" {
		args = append(args, strings.Fields(s.cfg.VMOptions)...)
	}
	args = append(args, strings.Fields(s.cfg.Test)...)
	return s.run(ctx, fmt.Sprintf("Running tests in VM: %s", s.cfg.Test),
		"./run_remote_tests.sh", args...)
}

func (s *testScripts) RunRemote(ctx context.Context) error {
	args := []string{"--board=" + s.cfg.Board, "--remote=" + s.cfg.Remote}
	args = append(args, strings.Fields(s.cfg.Test)...)
	return s.run(ctx, fmt.Sprintf("Running tests on %s: %s", s.cfg.Remote, s.cfg.Test),
		"./run_remote_tests.sh", args...)
}
