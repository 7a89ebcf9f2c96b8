package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/crosutils/crosbuild/pkg/config"
	"github.com/crosutils/crosbuild/pkg/exec"
	"github.com/crosutils/crosbuild/pkg/phase"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// fakeTools records every collaborator call in order and can be told to
// fail at a named step.
type fakeTools struct {
	calls  []string
	failAt string
}

func (f *fakeTools) call(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failAt {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeTools) Init(context.Context) error                { return f.call("repo.init") }
func (f *fakeTools) Sync(context.Context) error                { return f.call("repo.sync") }
func (f *fakeTools) Make(context.Context, bool) error          { return f.call("chroot.make") }
func (f *fakeTools) Setup(context.Context) error               { return f.call("board.setup") }
func (f *fakeTools) EnableLocalAccount(context.Context) error  { return f.call("packages.localaccount") }
func (f *fakeTools) Build(context.Context) error               { return f.call("packages.build") }
func (f *fakeTools) BuildAutotestClient(context.Context) error { return f.call("packages.autotest") }
func (f *fakeTools) BuildChrome(context.Context) error         { return f.call("packages.chrome") }
func (f *fakeTools) UnitTests(context.Context) error           { return f.call("packages.unittests") }
func (f *fakeTools) RunLocal(context.Context) error            { return f.call("tests.local") }
func (f *fakeTools) RunRemote(context.Context) error           { return f.call("tests.remote") }

func (f *fakeTools) Grab(_ context.Context, _ *config.Config, _ string) error {
	return f.call("grabber.grab")
}

// fakeImage keeps image steps apart from the package steps since both
// interfaces have a Build method.
type fakeImage struct{ f *fakeTools }

func (i *fakeImage) SetChronosPassword(context.Context) error { return i.f.call("image.passwd") }
func (i *fakeImage) Build(context.Context) error              { return i.f.call("image.build") }
func (i *fakeImage) ModForTest(context.Context) error         { return i.f.call("image.modfortest") }
func (i *fakeImage) ToUSB(context.Context) error              { return i.f.call("image.usb") }
func (i *fakeImage) ToLive(context.Context) error             { return i.f.call("image.live") }
func (i *fakeImage) ToVM(context.Context) error               { return i.f.call("image.vm") }

type fakeRemote struct {
	released []string
	ctxErr   error
}

func (r *fakeRemote) ReleaseSession(ctx context.Context, host string) {
	r.ctxErr = ctx.Err()
	r.released = append(r.released, host)
}

func newTestPipeline(t *testing.T, cfg *config.Config) (*Pipeline, *fakeTools) {
	t.Helper()
	f := &fakeTools{}
	runner := phase.NewRunner(&exec.MockExecutor{}, testLog())
	runner.Out = io.Discard
	runner.SudoRefresh = false
	state := &RunState{ID: "test1234", Start: time.Now(), TempDir: t.TempDir()}
	p := &Pipeline{
		Config: cfg,
		Tools: Tools{
			Repo:     f,
			Chroot:   f,
			Board:    f,
			Packages: f,
			Image:    &fakeImage{f},
			Tests:    f,
			Grabber:  f,
		},
		Runner: runner,
		State:  state,
		Log:    testLog(),
	}
	return p, f
}

func TestRunFullLocalBuild(t *testing.T) {
	cfg := &config.Config{
		Board:    config.DefaultBoard,
		Sync:     true,
		Build:    true,
		Unittest: true,
		Master:   true,
	}
	p, f := newTestPipeline(t, cfg)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []string{
		"repo.sync",
		"board.setup",
		"packages.localaccount",
		"packages.build",
		"packages.unittests",
		"image.build",
	}, f.calls)
}

func TestRunRemoteTestScenario(t *testing.T) {
	// --test=smoke --remote=192.168.1.2 after validation.
	cfg := &config.Config{
		Board:           "arm-generic",
		Sync:            true,
		Build:           true,
		Unittest:        true,
		Master:          true,
		Test:            "smoke",
		Remote:          "192.168.1.2",
		ImageToLive:     true,
		ModImageForTest: true,
		ChronosPasswd:   config.TestChronosPasswd,
		WithDev:         true,
	}
	p, f := newTestPipeline(t, cfg)
	remote := &fakeRemote{}
	p.Tools.Remote = remote

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []string{
		"repo.sync",
		"board.setup",
		"packages.localaccount",
		"packages.build",
		"image.passwd",
		"image.build",
		"image.modfortest",
		"image.live",
		"tests.remote",
	}, f.calls)
	assert.Equal(t, []string{"192.168.1.2"}, remote.released)
}

func TestRunVMTestScenario(t *testing.T) {
	cfg := &config.Config{
		Board:           config.DefaultBoard,
		Master:          true,
		Test:            "smoke",
		ImageToVM:       true,
		ModImageForTest: true,
		ChronosPasswd:   config.TestChronosPasswd,
	}
	p, f := newTestPipeline(t, cfg)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []string{
		"image.passwd",
		"image.build",
		"image.modfortest",
		"image.vm",
		"tests.local",
	}, f.calls)
}

func TestRunGrabBuildbotSkipsBuilding(t *testing.T) {
	cfg := &config.Config{
		Board:        config.DefaultBoard,
		GrabBuildbot: "https://buildbot/builds/0.9.100.0",
	}
	p, f := newTestPipeline(t, cfg)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []string{"grabber.grab"}, f.calls)
}

func TestRunFreshCheckout(t *testing.T) {
	cfg := &config.Config{
		Board:          config.DefaultBoard,
		CreateCheckout: true,
		ReplaceChroot:  true,
		Sync:           true,
		Build:          true,
		Master:         true,
	}
	p, f := newTestPipeline(t, cfg)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []string{
		"repo.init",
		"repo.sync",
		"chroot.make",
		"board.setup",
		"packages.localaccount",
		"packages.build",
		"image.build",
	}, f.calls)
}

func TestRunFailureAbortsPipeline(t *testing.T) {
	cfg := &config.Config{
		Board:  config.DefaultBoard,
		Sync:   true,
		Build:  true,
		Master: true,
	}
	p, f := newTestPipeline(t, cfg)
	f.failAt = "packages.build"
	tempDir := p.State.TempDir

	err := p.Run(context.Background())
	require.Error(t, err)
	// Nothing after the failing step ran.
	assert.Equal(t, []string{
		"repo.sync",
		"board.setup",
		"packages.localaccount",
		"packages.build",
	}, f.calls)
	// Scoped temp directory is gone.
	_, statErr := os.Stat(tempDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunReleasesRemoteSessionAfterInterrupt(t *testing.T) {
	cfg := &config.Config{
		Board:       "arm-generic",
		Sync:        true,
		Remote:      "192.168.1.2",
		ImageToLive: true,
	}
	p, f := newTestPipeline(t, cfg)
	remote := &fakeRemote{}
	p.Tools.Remote = remote
	f.failAt = "repo.sync"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, p.Run(ctx))

	// Session teardown still ran, and on a context of its own rather
	// than the cancelled run context.
	require.Equal(t, []string{"192.168.1.2"}, remote.released)
	assert.NoError(t, remote.ctxErr)
}

func TestRunTestFailures(t *testing.T) {
	t.Run("fatal by default", func(t *testing.T) {
		cfg := &config.Config{Board: config.DefaultBoard, Test: "smoke", ImageToVM: true, ModImageForTest: true}
		p, f := newTestPipeline(t, cfg)
		f.failAt = "tests.local"

		err := p.Run(context.Background())
		require.Error(t, err)
	})

	t.Run("tolerated with ignore flag", func(t *testing.T) {
		cfg := &config.Config{
			Board:              config.DefaultBoard,
			Test:               "smoke",
			ImageToVM:          true,
			ModImageForTest:    true,
			IgnoreTestFailures: true,
		}
		p, f := newTestPipeline(t, cfg)
		f.failAt = "tests.local"

		require.NoError(t, p.Run(context.Background()))
	})
}

func TestRunChromeBuild(t *testing.T) {
	cfg := &config.Config{
		Board:      config.DefaultBoard,
		ChromeRoot: "/src/chrome",
		Master:     true,
	}
	p, f := newTestPipeline(t, cfg)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []string{"packages.chrome", "image.build"}, f.calls)
}

func TestRunSkipsUnitTestsOnOtherBoards(t *testing.T) {
	cfg := &config.Config{
		Board:    "arm-generic",
		Build:    true,
		Unittest: true,
	}
	p, f := newTestPipeline(t, cfg)

	require.NoError(t, p.Run(context.Background()))
	assert.NotContains(t, f.calls, "packages.unittests")
}
