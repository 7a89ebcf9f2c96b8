package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/crosutils/crosbuild/pkg/buildbot"
	"github.com/crosutils/crosbuild/pkg/config"
	"github.com/crosutils/crosbuild/pkg/exec"
	"github.com/crosutils/crosbuild/pkg/phase"
	"github.com/crosutils/crosbuild/pkg/pipeline"
	"github.com/crosutils/crosbuild/pkg/sysutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	buildBoard                    string
	buildTop                      string
	buildChroot                   string
	buildSync                     bool
	buildBuild                    bool
	buildUnittest                 bool
	buildMaster                   bool
	buildReplaceChroot            bool
	buildTest                     string
	buildRemote                   string
	buildImageToUSB               string
	buildImageToLive              bool
	buildImageToVM                bool
	buildGrabBuildbot             string
	buildBuildbotURI              string
	buildRepoURI                  string
	buildChronosPasswd            string
	buildModImageForTest          bool
	buildWithDev                  bool
	buildOfficial                 bool
	buildMiniLayout               bool
	buildEnableRootfsVerification bool
	buildChromeRoot               string
	buildVMOptions                string
	buildAutotestClient           bool
	buildIgnoreTestFailures       bool
	buildYes                      bool
	buildJobs                     int
)

func NewBuildCmd() *cobra.Command {
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Run the build/release pipeline",
		Long: `Validate the requested configuration, show the resulting plan and,
after confirmation, execute the pipeline: sync sources, create the
chroot, build packages, master an image and deploy it to USB, VM or a
live remote target, optionally running tests afterwards.

Examples:
  # Full local build for the default board
  crosbuild build

  # Reimage a live device and run the smoke suite against it
  crosbuild build --test=smoke --remote=192.168.1.2

  # Install the newest prebuilt image instead of building
  crosbuild build --grab_buildbot=LATEST --buildbot_uri=https://buildbot/builds`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}
	addBuildFlags(buildCmd)
	return buildCmd
}

func addBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&buildBoard, "board", "", "Target board (default: queried from --remote, else "+config.DefaultBoard+")")
	f.StringVar(&buildTop, "top", "", "Checkout root (default: discovered from the working directory)")
	f.StringVar(&buildChroot, "chroot", "", "Chroot location (default: <top>/chroot)")
	f.BoolVar(&buildSync, "sync", true, "Sync sources before building")
	f.BoolVar(&buildBuild, "build", true, "Build packages")
	f.BoolVar(&buildUnittest, "unittest", true, "Run unit tests (reference board only)")
	f.BoolVar(&buildMaster, "master", true, "Master a bootable image")
	f.BoolVar(&buildReplaceChroot, "replace_chroot", false, "Recreate the chroot even if it exists")
	f.StringVar(&buildTest, "test", "", "Test suites to run after deployment")
	f.StringVar(&buildRemote, "remote", "", "Remote target for live update and remote tests")
	f.StringVar(&buildImageToUSB, "image_to_usb", "", "Write the image to this removable device")
	f.BoolVar(&buildImageToLive, "image_to_live", false, "Push the image to the remote target")
	f.BoolVar(&buildImageToVM, "image_to_vm", false, "Build a VM image variant")
	f.StringVar(&buildGrabBuildbot, "grab_buildbot", "", "Install a prebuilt image from this buildbot URI (or LATEST)")
	f.StringVar(&buildBuildbotURI, "buildbot_uri", "", "Base URI for resolving LATEST (default: $"+config.EnvBuildbotURI+")")
	f.StringVar(&buildRepoURI, "repo_uri", "", "Manifest URI for fresh checkouts (default: $"+config.EnvRepoURI+")")
	f.StringVar(&buildChronosPasswd, "chronos_passwd", "", "Account password baked into the image (default: $"+config.EnvChronosPasswd+")")
	f.BoolVar(&buildModImageForTest, "mod_image_for_test", false, "Modify the image to permit automated testing")
	f.BoolVar(&buildWithDev, "withdev", true, "Include developer packages")
	f.BoolVar(&buildOfficial, "official", false, "Official build variant")
	f.BoolVar(&buildMiniLayout, "minilayout", false, "Minimal layout for fresh checkouts")
	f.BoolVar(&buildEnableRootfsVerification, "enable_rootfs_verification", false, "Enable rootfs verification on the mastered image")
	f.StringVar(&buildChromeRoot, "chrome_root", "", "Build Chrome from this local source root")
	f.StringVar(&buildVMOptions, "vm_options", "", "Extra options for the VM test runner")
	f.BoolVar(&buildAutotestClient, "autotest_client", false, "Cross-build the autotest client")
	f.BoolVar(&buildIgnoreTestFailures, "ignore_test_failures", false, "Keep going when tests fail")
	f.BoolVarP(&buildYes, "yes", "y", false, "Skip the confirmation prompt")
	f.IntVar(&buildJobs, "jobs", 0, "Parallel jobs for build tools (default: number of CPUs)")
}

// gatherOptions assembles the raw options from flags, the environment
// and the optional defaults file at the checkout root.
func gatherOptions() (config.Options, error) {
	opts := config.Options{
		Board:                    buildBoard,
		Top:                      buildTop,
		Chroot:                   buildChroot,
		Sync:                     buildSync,
		Build:                    buildBuild,
		Unittest:                 buildUnittest,
		Master:                   buildMaster,
		ReplaceChroot:            buildReplaceChroot,
		Test:                     buildTest,
		Remote:                   buildRemote,
		ImageToUSB:               buildImageToUSB,
		ImageToLive:              buildImageToLive,
		ImageToVM:                buildImageToVM,
		GrabBuildbot:             buildGrabBuildbot,
		BuildbotURI:              buildBuildbotURI,
		RepoURI:                  buildRepoURI,
		ChronosPasswd:            buildChronosPasswd,
		ModImageForTest:          buildModImageForTest,
		WithDev:                  buildWithDev,
		Official:                 buildOfficial,
		MiniLayout:               buildMiniLayout,
		EnableRootfsVerification: buildEnableRootfsVerification,
		ChromeRoot:               buildChromeRoot,
		VMOptions:                buildVMOptions,
		AutotestClient:           buildAutotestClient,
		IgnoreTestFailures:       buildIgnoreTestFailures,
		AssumeYes:                buildYes,
		Jobs:                     buildJobs,
	}

	fileDefaults, err := loadDefaultsFile(opts.Top)
	if err != nil {
		return opts, err
	}
	return config.ApplyDefaults(opts, fileDefaults, os.Getenv), nil
}

// loadDefaultsFile reads .crosbuild.yaml from the checkout root, when
// one can already be located.
func loadDefaultsFile(top string) (config.FileDefaults, error) {
	root := top
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return config.FileDefaults{}, err
		}
		found, ok := sysutil.FindCheckoutRoot(wd)
		if !ok {
			return config.FileDefaults{}, nil
		}
		root = found
	}
	return config.LoadFileDefaults(filepath.Join(root, config.DefaultsFileName))
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	opts, err := gatherOptions()
	if err != nil {
		return err
	}

	ex := &exec.RealExecutor{}
	cfg, err := config.Validate(ctx, opts, config.NewOSProbe(ex))
	if err != nil {
		return err
	}

	steps := pipeline.Describe(cfg)
	printPlan(cmd.OutOrStdout(), cfg, steps)
	if err := confirmPlan(os.Stdin, cmd.OutOrStdout(), cfg.AssumeYes); err != nil {
		return err
	}

	state, err := pipeline.NewRunState()
	if err != nil {
		return err
	}
	log := logrus.WithField("run_id", state.ID)

	runner := phase.NewRunner(ex, log)
	tools := pipeline.ScriptTools(cfg, runner)
	tools.Grabber = &buildbot.Grabber{
		Fetch:    &buildbot.ScriptDownloader{Runner: runner},
		Prompter: buildbot.NewTerminalPrompter(),
		Log:      log,
	}
	tools.Remote = &sysutil.RemoteClient{Exec: ex}

	p := &pipeline.Pipeline{
		Config: cfg,
		Tools:  tools,
		Runner: runner,
		State:  state,
		Log:    log,
	}
	return p.Run(ctx)
}
