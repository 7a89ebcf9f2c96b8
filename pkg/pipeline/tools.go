package pipeline

import (
	"context"

	"github.com/crosutils/crosbuild/pkg/config"
)

// Each external collaborator gets a narrow interface so the pipeline
// sequencing can be tested against fakes. Production implementations
// live in scripts.go and shell out through the phase runner.

// RepoTool creates and synchronizes the source checkout.
type RepoTool interface {
	// Init creates a fresh checkout at the configured top directory.
	Init(ctx context.Context) error
	// Sync brings the checkout up to date.
	Sync(ctx context.Context) error
}

// ChrootTool manages the isolated build environment.
type ChrootTool interface {
	// Make creates the chroot, replacing any existing one when replace
	// is set.
	Make(ctx context.Context, replace bool) error
}

// BoardTool prepares the board sysroot inside the chroot.
type BoardTool interface {
	Setup(ctx context.Context) error
}

// PackageTool builds packages and runs unit tests inside the chroot.
type PackageTool interface {
	EnableLocalAccount(ctx context.Context) error
	Build(ctx context.Context) error
	BuildAutotestClient(ctx context.Context) error
	BuildChrome(ctx context.Context) error
	UnitTests(ctx context.Context) error
}

// ImageTool masters, modifies and deploys disk images.
type ImageTool interface {
	SetChronosPassword(ctx context.Context) error
	Build(ctx context.Context) error
	ModForTest(ctx context.Context) error
	ToUSB(ctx context.Context) error
	ToLive(ctx context.Context) error
	ToVM(ctx context.Context) error
}

// TestTool runs automated test suites against a deployed image.
type TestTool interface {
	// RunLocal runs the suites in a local VM.
	RunLocal(ctx context.Context) error
	// RunRemote runs the suites against the configured remote target.
	RunRemote(ctx context.Context) error
}

// ImageGrabber installs a prebuilt image from the artifact server.
type ImageGrabber interface {
	Grab(ctx context.Context, cfg *config.Config, tempDir string) error
}

// RemoteReleaser drops cached remote-access session state on exit.
type RemoteReleaser interface {
	ReleaseSession(ctx context.Context, host string)
}

// Tools bundles one implementation per collaborator.
type Tools struct {
	Repo     RepoTool
	Chroot   ChrootTool
	Board    BoardTool
	Packages PackageTool
	Image    ImageTool
	Tests    TestTool
	Grabber  ImageGrabber
	Remote   RemoteReleaser
}
