package buildbot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/crosutils/crosbuild/pkg/config"
	"github.com/sirupsen/logrus"
)

// Archive names inside a buildbot build directory.
const (
	imageArchive    = "image.zip"
	autotestArchive = "autotest.tar.bz2"

	baseImageName = "chromiumos_image.bin"
	testImageName = "chromiumos_test_image.bin"
)

// Downloader fetches and unpacks artifacts. The production
// implementation shells out to the download and unpack tools; tests use
// a fake.
type Downloader interface {
	// Download fetches uri into dest. Transfer credentials, when
	// required, arrive via the BUILDBOT_USER/BUILDBOT_PASSWORD
	// environment.
	Download(ctx context.Context, uri, dest string) error
	// Unpack extracts a zip archive into destDir.
	Unpack(ctx context.Context, archive, destDir string) error
	// InstallAutotest unpacks a prebuilt autotest bundle into the
	// board sysroot inside the chroot.
	InstallAutotest(ctx context.Context, archive, chroot, board string) error
}

// Grabber installs a prebuilt image from the buildbot archive server
// instead of building one locally.
type Grabber struct {
	HTTP     *http.Client
	Fetch    Downloader
	Prompter Prompter
	Log      *logrus.Entry

	// creds caches the prompted credentials so a grab that downloads
	// several artifacts asks the user only once.
	creds *Credentials
}

// Grab downloads the requested build into tempDir, selects the image
// variant the configuration asks for and installs it into the
// checkout's image directory. tempDir is owned by the caller and
// removed by the run's scoped cleanup.
func (g *Grabber) Grab(ctx context.Context, cfg *config.Config, tempDir string) error {
	uri := cfg.GrabBuildbot
	if uri == config.LatestMarker {
		version, err := g.ResolveLatest(ctx, cfg.BuildbotURI)
		if err != nil {
			return err
		}
		uri = strings.TrimRight(cfg.BuildbotURI, "/") + "/" + version
	}
	version := path.Base(uri)
	g.Log.WithFields(logrus.Fields{"uri": uri, "version": version}).Info("grabbing prebuilt image")

	if err := g.withCredentials(func() error {
		return g.Fetch.Download(ctx, uri+"/"+imageArchive, filepath.Join(tempDir, imageArchive))
	}); err != nil {
		return fmt.Errorf("downloading %s: %w", imageArchive, err)
	}

	unpackDir := filepath.Join(tempDir, "image")
	if err := g.Fetch.Unpack(ctx, filepath.Join(tempDir, imageArchive), unpackDir); err != nil {
		return fmt.Errorf("unpacking %s: %w", imageArchive, err)
	}

	variant := baseImageName
	if cfg.ModImageForTest {
		variant = testImageName
	}
	src := filepath.Join(unpackDir, variant)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("archive has no %s: %w", variant, err)
	}

	destDir := filepath.Join(cfg.Top, "src", "build", "images", cfg.Board, version)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating image directory: %w", err)
	}
	if err := moveFile(src, filepath.Join(destDir, baseImageName)); err != nil {
		return fmt.Errorf("installing image: %w", err)
	}
	if err := updateLatestLink(filepath.Dir(destDir), version); err != nil {
		return err
	}

	if cfg.AutotestClient {
		archive := filepath.Join(tempDir, autotestArchive)
		if err := g.withCredentials(func() error {
			return g.Fetch.Download(ctx, uri+"/"+autotestArchive, archive)
		}); err != nil {
			return fmt.Errorf("downloading %s: %w", autotestArchive, err)
		}
		if err := g.Fetch.InstallAutotest(ctx, archive, cfg.Chroot, cfg.Board); err != nil {
			return fmt.Errorf("installing autotest bundle: %w", err)
		}
	}

	g.Log.WithField("dest", destDir).Info("prebuilt image installed")
	return nil
}

// ResolveLatest fetches the LATEST pointer file beneath baseURI and
// returns the version it names.
func (g *Grabber) ResolveLatest(ctx context.Context, baseURI string) (string, error) {
	uri := strings.TrimRight(baseURI, "/") + "/" + config.LatestMarker
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("resolving LATEST: %w", err)
	}
	resp, err := g.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("resolving LATEST from %s: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("resolving LATEST from %s: unexpected status %s", uri, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("resolving LATEST from %s: %w", uri, err)
	}
	version, _, _ := strings.Cut(strings.TrimSpace(string(body)), "\n")
	version = strings.TrimSpace(version)
	if version == "" {
		return "", fmt.Errorf("LATEST pointer at %s is empty", uri)
	}
	return version, nil
}

// withCredentials exports transfer credentials around fn and clears
// them no matter how fn returns. The user is prompted at most once per
// grab; later downloads reuse the cached answer.
func (g *Grabber) withCredentials(fn func() error) error {
	if os.Getenv(EnvUser) == "" || os.Getenv(EnvPassword) == "" {
		if g.creds == nil {
			creds, err := g.Prompter.Prompt()
			if err != nil {
				return fmt.Errorf("reading credentials: %w", err)
			}
			g.creds = &creds
		}
		exportCredentials(*g.creds)
	}
	defer ClearCredentials()
	return fn()
}

func (g *Grabber) httpClient() *http.Client {
	if g.HTTP != nil {
		return g.HTTP
	}
	return http.DefaultClient
}

// moveFile renames src to dest, copying when they sit on different
// filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// updateLatestLink points imagesDir/latest at version.
func updateLatestLink(imagesDir, version string) error {
	link := filepath.Join(imagesDir, "latest")
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replacing latest link: %w", err)
	}
	if err := os.Symlink(version, link); err != nil {
		return fmt.Errorf("updating latest link: %w", err)
	}
	return nil
}
