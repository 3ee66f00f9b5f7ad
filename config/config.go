// Package config loads the per-model build and run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config describes how to rebuild the source tree and how to launch the
// model problem. Fields absent from the file keep the defaults below, which
// match a stock BOUT++ checkout.
type Config struct {
	// Clean holds the commands of the clean stage, run in order in the
	// source root. A non-zero exit of any command fails the stage.
	Clean []string `yaml:"clean"`
	// Configure is the configure stage command.
	Configure string `yaml:"configure"`
	// Build is the build stage command.
	Build string `yaml:"build"`
	// Prepare runs in the model directory before the first repeat, typically
	// rebuilding the model against the freshly built library. Empty disables
	// the step.
	Prepare string `yaml:"prepare"`
	// Launcher starts the model executable, mpirun style. It only applies
	// when NProcs is positive; otherwise the executable runs directly.
	Launcher string `yaml:"launcher"`
	// NProcs is the process count handed to the launcher via -n.
	NProcs int `yaml:"nprocs"`
	// ModelArgs are extra arguments appended to every model invocation.
	ModelArgs []string `yaml:"model_args"`
	// DataDir is the directory the simulation writes its own output to,
	// relative to the model directory.
	DataDir string `yaml:"data_dir"`
	// LogGlob selects the simulation's own log files to collect after each
	// repeat. The lexicographically first match is the one parsed for
	// per-RHS metrics, which for rank-suffixed names is rank zero.
	LogGlob string `yaml:"log_glob"`
	// DumpGlob selects the simulation's data dumps.
	DumpGlob string `yaml:"dump_glob"`
	// CollectDumps also copies the dump files into the artifact store.
	CollectDumps bool `yaml:"collect_dumps"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Clean: []string{
			// distclean legitimately fails on a tree that was never
			// configured, so its exit status is not checked
			"make distclean || true",
			`find src -type f -name "*.o" -delete`,
			"rm -rf googletest externalpackages/googletest externalpackages/mpark.variant",
			"git submodule update --init --recursive",
		},
		Configure: "./configure -C CXXFLAGS='-std=c++11 -fdiagnostics-color=always' " +
			"--with-netcdf --enable-optimize=3 --enable-checks=no --disable-backtrace",
		Build:        "make -j8",
		Prepare:      "make",
		Launcher:     "mpirun",
		NProcs:       4,
		DataDir:      "data",
		LogGlob:      "BOUT.log.*",
		DumpGlob:     "BOUT.dmp.*",
		CollectDumps: true,
	}
}

// searchNames are tried in order inside the model directory when no config
// file is named explicitly.
var searchNames = []string{"simbisect.yaml", ".simbisect.yaml"}

// Load reads the configuration. An explicit path must exist; without one the
// model directory is searched for the well-known names and the defaults are
// returned when nothing is found.
func Load(path, modelDir string) (*Config, error) {
	if path != "" {
		return loadFile(path)
	}

	for _, name := range searchNames {
		candidate := filepath.Join(modelDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return loadFile(candidate)
		}
	}

	return Default(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.NProcs < 0 {
		return fmt.Errorf("nprocs must not be negative, got %d", c.NProcs)
	}
	if c.NProcs > 0 && c.Launcher == "" {
		return fmt.Errorf("nprocs %d needs a launcher", c.NProcs)
	}
	return nil
}
