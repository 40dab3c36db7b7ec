package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_loadMissingUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultPath))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func Test_loadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(`
build:
  command: cargo
  trace_args: [check, -vv]
compiler: rustc
source_ext: .rs
`), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cargo", cfg.Build.Command)
	assert.Equal(t, []string{"check", "-vv"}, cfg.Build.TraceArgs)
	// keys absent from the file keep their defaults
	assert.Equal(t, DefaultConfig().Build.CheckArgs, cfg.Build.CheckArgs)
	assert.Equal(t, "rustc", cfg.Compiler)
	assert.Equal(t, ".rs", cfg.SourceExt)
	assert.Equal(t, DefaultConfig().Settings, cfg.Settings)
}

func Test_defaultsCoverWholeModule(t *testing.T) {
	cfg := DefaultConfig()
	// the module root need not hold a package
	assert.Equal(t, "./...", cfg.Build.CheckArgs[len(cfg.Build.CheckArgs)-1])
	assert.Equal(t, "./...", cfg.Build.TraceArgs[len(cfg.Build.TraceArgs)-1])
	// the check must tolerate contract blocks and write no binary
	assert.Equal(t, "list", cfg.Build.CheckArgs[0])
	assert.Contains(t, cfg.Build.CheckArgs, "-e")
}

func Test_loadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte("compiler: \"\"\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("build: [\n"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func Test_saveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", DefaultPath)
	want := DefaultConfig()
	want.Compiler = "gccgo"
	require.NoError(t, want.Save(path))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
