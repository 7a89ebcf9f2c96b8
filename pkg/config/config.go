package config

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
)

const (
	// DefaultBoard is the reference board used when none can be inferred.
	// Unit tests only run for this board.
	DefaultBoard = "x86-generic"

	// TestChronosPasswd is the fixed account password baked into images
	// that are modified for automated testing.
	TestChronosPasswd = "test0000"

	// LatestMarker asks the buildbot grabber to resolve the newest build.
	LatestMarker = "LATEST"
)

// Config is the validated, internally consistent orchestrator
// configuration. It is built once by Validate and never mutated.
type Config struct {
	Board  string
	Top    string
	Chroot string

	Sync     bool
	Build    bool
	Unittest bool
	Master   bool

	// CreateCheckout is set when Top does not exist yet and a fresh
	// checkout must be created first.
	CreateCheckout bool
	// ReplaceChroot forces (re)creation of the chroot. Implied when the
	// chroot directory is missing.
	ReplaceChroot bool

	Test   string
	Remote string

	ImageToUSB  string
	ImageToLive bool
	ImageToVM   bool

	GrabBuildbot string
	BuildbotURI  string
	RepoURI      string

	ChronosPasswd   string
	ModImageForTest bool
	WithDev         bool

	Official                 bool
	MiniLayout               bool
	EnableRootfsVerification bool

	ChromeRoot string
	VMOptions  string

	AutotestClient     bool
	IgnoreTestFailures bool

	AssumeYes bool
	Jobs      int
}

// Options are the raw, unvalidated inputs gathered from flags, the
// environment and the defaults file. Zero values mean "unset".
type Options struct {
	Board  string
	Top    string
	Chroot string

	Sync     bool
	Build    bool
	Unittest bool
	Master   bool

	ReplaceChroot bool

	Test   string
	Remote string

	ImageToUSB  string
	ImageToLive bool
	ImageToVM   bool

	GrabBuildbot string
	BuildbotURI  string
	RepoURI      string

	ChronosPasswd   string
	ModImageForTest bool
	WithDev         bool

	Official                 bool
	MiniLayout               bool
	EnableRootfsVerification bool

	ChromeRoot string
	VMOptions  string

	AutotestClient     bool
	IgnoreTestFailures bool

	AssumeYes bool
	Jobs      int
}

// ValidationError reports a contradictory or invalid option combination.
type ValidationError struct {
	Option string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid --%s: %s", e.Option, e.Reason)
}

// SystemProbe answers the environment questions validation needs,
// keeping Validate itself pure and testable against fakes.
type SystemProbe interface {
	// Getwd returns the current working directory.
	Getwd() (string, error)
	// Executable returns the path of the running binary.
	Executable() (string, error)
	// DirExists reports whether path exists and is a directory.
	DirExists(path string) bool
	// FindCheckoutRoot searches upward from start for a checkout root.
	FindCheckoutRoot(start string) (string, bool)
	// RemovableDevice reports whether device is a removable block device.
	RemovableDevice(device string) (bool, error)
	// QueryBoard asks a remote target for its board identity.
	QueryBoard(ctx context.Context, host string) (string, error)
}

// Validate cross-checks the raw options, fills in derived defaults and
// returns an internally consistent Config, or a ValidationError. It
// performs no network access beyond the optional remote board query and
// never mutates its inputs.
func Validate(ctx context.Context, opts Options, probe SystemProbe) (*Config, error) {
	cfg := &Config{
		Board:                    opts.Board,
		Top:                      opts.Top,
		Chroot:                   opts.Chroot,
		Sync:                     opts.Sync,
		Build:                    opts.Build,
		Unittest:                 opts.Unittest,
		Master:                   opts.Master,
		ReplaceChroot:            opts.ReplaceChroot,
		Test:                     opts.Test,
		Remote:                   opts.Remote,
		ImageToUSB:               opts.ImageToUSB,
		ImageToLive:              opts.ImageToLive,
		ImageToVM:                opts.ImageToVM,
		GrabBuildbot:             opts.GrabBuildbot,
		BuildbotURI:              opts.BuildbotURI,
		RepoURI:                  opts.RepoURI,
		ChronosPasswd:            opts.ChronosPasswd,
		ModImageForTest:          opts.ModImageForTest,
		WithDev:                  opts.WithDev,
		Official:                 opts.Official,
		MiniLayout:               opts.MiniLayout,
		EnableRootfsVerification: opts.EnableRootfsVerification,
		ChromeRoot:               opts.ChromeRoot,
		VMOptions:                opts.VMOptions,
		AutotestClient:           opts.AutotestClient,
		IgnoreTestFailures:       opts.IgnoreTestFailures,
		AssumeYes:                opts.AssumeYes,
		Jobs:                     opts.Jobs,
	}

	if cfg.Top == "" {
		wd, err := probe.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining working directory: %w", err)
		}
		if root, ok := probe.FindCheckoutRoot(wd); ok {
			cfg.Top = root
		} else {
			exe, err := probe.Executable()
			if err != nil {
				return nil, &ValidationError{Option: "top", Reason: "cannot locate a checkout; pass --top"}
			}
			cfg.Top = filepath.Dir(filepath.Dir(exe))
		}
	}
	cfg.Top = filepath.Clean(cfg.Top)
	cfg.CreateCheckout = !probe.DirExists(cfg.Top)

	if cfg.Chroot == "" {
		cfg.Chroot = filepath.Join(cfg.Top, "chroot")
	}
	if !probe.DirExists(cfg.Chroot) {
		cfg.ReplaceChroot = true
	}

	// A prebuilt image replaces everything we would otherwise build.
	if cfg.GrabBuildbot != "" {
		cfg.Sync = false
		cfg.Build = false
		cfg.Unittest = false
		cfg.Master = false
		if cfg.GrabBuildbot == LatestMarker && cfg.BuildbotURI == "" {
			return nil, &ValidationError{
				Option: "grab_buildbot",
				Reason: "LATEST requires --buildbot_uri or a BUILDBOT_URI environment value",
			}
		}
	}

	// A remote target always gets reimaged before anything runs on it.
	if cfg.Remote != "" {
		cfg.ImageToLive = true
	}
	if cfg.Test != "" {
		if cfg.Remote == "" {
			cfg.ImageToVM = true
		} else {
			cfg.ImageToLive = true
		}
		// Tests need a test-capable image.
		cfg.ModImageForTest = true
	}
	if cfg.ImageToLive && cfg.Remote == "" {
		return nil, &ValidationError{
			Option: "image_to_live",
			Reason: "requires --remote to name the target",
		}
	}

	if cfg.ModImageForTest {
		cfg.ChronosPasswd = TestChronosPasswd
		cfg.WithDev = true
	}

	if cfg.ImageToUSB != "" {
		removable, err := probe.RemovableDevice(cfg.ImageToUSB)
		if err != nil {
			return nil, &ValidationError{Option: "image_to_usb", Reason: err.Error()}
		}
		if !removable {
			return nil, &ValidationError{
				Option: "image_to_usb",
				Reason: fmt.Sprintf("%s is not a removable device", cfg.ImageToUSB),
			}
		}
	}

	if cfg.Board == "" {
		if cfg.Remote != "" {
			if board, err := probe.QueryBoard(ctx, cfg.Remote); err == nil && board != "" {
				cfg.Board = board
			}
		}
		if cfg.Board == "" {
			cfg.Board = DefaultBoard
		}
	}

	if cfg.Jobs <= 0 {
		cfg.Jobs = runtime.NumCPU()
	}

	return cfg, nil
}
