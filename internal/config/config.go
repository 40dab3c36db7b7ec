// Package config loads the elcc settings file.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the settings file looked up in the working directory.
const DefaultPath = ".elc.yaml"

// Config describes how to reach the compiler through the build tool.
type Config struct {
	Build BuildConfig `yaml:"build"`

	// Compiler is the base name of the compiler binary in the build trace.
	Compiler string `yaml:"compiler"`

	// SourceExt marks source file arguments, which are dropped from the
	// captured invocation.
	SourceExt string `yaml:"source_ext"`

	// Settings is the captured invocation file, relative to the module root.
	Settings string `yaml:"settings"`
}

// BuildConfig is the build tool command line.
type BuildConfig struct {
	Command   string   `yaml:"command"`
	CheckArgs []string `yaml:"check_args"`
	TraceArgs []string `yaml:"trace_args"`
}

// DefaultConfig returns the settings for the go command.
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			Command: "go",
			// Compiles the dependencies into the build cache without writing
			// anything to the module. -e keeps the contract blocks of the
			// module's own packages, which gc cannot compile, from failing the
			// check. Dependency errors are printed here and fail the trace.
			CheckArgs: []string{"list", "-e", "-export", "-deps",
				"-f", "{{if .DepOnly}}{{with .Error}}{{.}}{{end}}{{end}}", "./..."},
			// -gcflags keeps the module's packages out of the build cache so
			// that the dry run prints their compile lines, and nothing else.
			TraceArgs: []string{"build", "-n", "-gcflags=-e", "./..."},
		},
		Compiler:  "compile",
		SourceExt: ".go",
		Settings:  filepath.Join(".elc", "compile-settings"),
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "failed to read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks that the required fields are set.
func (c *Config) Validate() error {
	switch {
	case c.Build.Command == "":
		return errors.New("build.command is empty")
	case c.Compiler == "":
		return errors.New("compiler is empty")
	case c.Settings == "":
		return errors.New("settings is empty")
	}
	return nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "failed to create config directory")
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	return nil
}
