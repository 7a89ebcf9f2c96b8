package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/crosutils/crosbuild/pkg/buildbot"
	"github.com/crosutils/crosbuild/pkg/config"
	"github.com/crosutils/crosbuild/pkg/phase"
	"github.com/sirupsen/logrus"
)

// Pipeline executes the build/release steps for a validated
// configuration, in strict fixed order. Any failing step aborts the
// remainder; only test failures can be tolerated, and only when the
// configuration asks for it.
type Pipeline struct {
	Config *config.Config
	Tools  Tools
	Runner *phase.Runner
	State  *RunState
	Log    *logrus.Entry
}

// Run executes the pipeline. Whatever happens, the scoped resources are
// released: exported transfer credentials are cleared, the temp
// directory is removed and any remote-access session state is dropped.
// On failure the last attempted phase and the elapsed time are logged
// and the original error is returned unchanged.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	defer func() {
		buildbot.ClearCredentials()
		if p.Config.Remote != "" && p.Tools.Remote != nil {
			// The run's context is already cancelled after an
			// interrupt; the teardown gets its own deadline.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			p.Tools.Remote.ReleaseSession(releaseCtx, p.Config.Remote)
		}
		p.State.Cleanup()
		fields := logrus.Fields{"elapsed": p.State.Elapsed().String()}
		if err != nil {
			fields["last_phase"] = p.Runner.LastPhase()
			p.Log.WithFields(fields).Error("build failed")
			return
		}
		p.Log.WithFields(fields).Info("build succeeded")
	}()

	cfg := p.Config

	if cfg.CreateCheckout {
		if err := p.Tools.Repo.Init(ctx); err != nil {
			return err
		}
	}
	if cfg.Sync {
		if err := p.Tools.Repo.Sync(ctx); err != nil {
			return err
		}
	}
	if cfg.GrabBuildbot != "" {
		if err := p.Tools.Grabber.Grab(ctx, cfg, p.State.TempDir); err != nil {
			return err
		}
	}
	if cfg.ReplaceChroot {
		if err := p.Tools.Chroot.Make(ctx, cfg.ReplaceChroot); err != nil {
			return err
		}
	}
	if cfg.Build {
		if err := p.Tools.Board.Setup(ctx); err != nil {
			return err
		}
		if err := p.Tools.Packages.EnableLocalAccount(ctx); err != nil {
			return err
		}
		if err := p.Tools.Packages.Build(ctx); err != nil {
			return err
		}
		if cfg.AutotestClient {
			if err := p.Tools.Packages.BuildAutotestClient(ctx); err != nil {
				return err
			}
		}
	}
	if cfg.ChromeRoot != "" {
		if err := p.Tools.Packages.BuildChrome(ctx); err != nil {
			return err
		}
	}
	// Unit tests only exist for the reference board.
	if cfg.Unittest && cfg.Board == config.DefaultBoard {
		if err := p.Tools.Packages.UnitTests(ctx); err != nil {
			return err
		}
	}
	if cfg.Master {
		if cfg.ChronosPasswd != "" {
			if err := p.Tools.Image.SetChronosPassword(ctx); err != nil {
				return err
			}
		}
		if err := p.Tools.Image.Build(ctx); err != nil {
			return err
		}
	}
	// A grabbed image was already downloaded in its test variant.
	if cfg.ModImageForTest && cfg.GrabBuildbot == "" {
		if err := p.Tools.Image.ModForTest(ctx); err != nil {
			return err
		}
	}
	if cfg.ImageToUSB != "" {
		if err := p.Tools.Image.ToUSB(ctx); err != nil {
			return err
		}
	}
	if cfg.ImageToLive {
		if err := p.Tools.Image.ToLive(ctx); err != nil {
			return err
		}
	}
	if cfg.ImageToVM {
		if err := p.Tools.Image.ToVM(ctx); err != nil {
			return err
		}
	}
	if cfg.Test != "" {
		if err := p.runTests(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runTests(ctx context.Context) error {
	var err error
	if p.Config.Remote != "" {
		err = p.Tools.Tests.RunRemote(ctx)
	} else {
		err = p.Tools.Tests.RunLocal(ctx)
	}
	if err == nil {
		return nil
	}
	if p.Config.IgnoreTestFailures {
		p.Log.WithError(err).Warn("ignoring test failures")
		return nil
	}
	return fmt.Errorf("tests failed: %w", err)
}
