package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted when the corresponding flag is unset.
const (
	EnvBuildbotURI   = "BUILDBOT_URI"
	EnvRepoURI       = "REPO_URI"
	EnvChronosPasswd = "CHRONOS_PASSWD"
)

// DefaultsFileName is the optional per-checkout defaults file, looked up
// at the checkout root.
const DefaultsFileName = ".crosbuild.yaml"

// FileDefaults are the values an optional defaults file may supply.
type FileDefaults struct {
	Board         string `yaml:"board"`
	BuildbotURI   string `yaml:"buildbot_uri"`
	RepoURI       string `yaml:"repo_uri"`
	ChronosPasswd string `yaml:"chronos_passwd"`
}

// LoadFileDefaults reads the defaults file at path. A missing file is
// not an error and yields zero defaults.
func LoadFileDefaults(path string) (FileDefaults, error) {
	var d FileDefaults
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return d, nil
		}
		return d, fmt.Errorf("reading defaults file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parsing defaults file %s: %w", path, err)
	}
	return d, nil
}

// ApplyDefaults fills unset options from the environment, then from the
// defaults file. Precedence: flag > environment > file.
func ApplyDefaults(opts Options, file FileDefaults, getenv func(string) string) Options {
	fallback := func(current string, env string, fromFile string) string {
		if current != "" {
			return current
		}
		if v := getenv(env); v != "" {
			return v
		}
		return fromFile
	}
	opts.BuildbotURI = fallback(opts.BuildbotURI, EnvBuildbotURI, file.BuildbotURI)
	opts.RepoURI = fallback(opts.RepoURI, EnvRepoURI, file.RepoURI)
	opts.ChronosPasswd = fallback(opts.ChronosPasswd, EnvChronosPasswd, file.ChronosPasswd)
	if opts.Board == "" {
		opts.Board = file.Board
	}
	return opts
}
