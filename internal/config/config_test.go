package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/dcn/internal/dcn"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

func newFlagBinder(defaults Config) *fakeBinder {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)
	return &fakeBinder{fs: fs}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{Cmd: newFlagBinder(defaults), Defaults: defaults})
	require.NoError(t, err)
	assert.Equal(t, defaults, cfg)
}

func TestLoad_FlagsOverrideDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)
	require.NoError(t, binder.fs.Parse([]string{"--kernel=5", "--modulated", "--threads=2", "--dtype=float64"}))

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Problem.Kernel)
	assert.True(t, cfg.Problem.Modulated)
	assert.Equal(t, 2, cfg.Runtime.Threads)
	assert.Equal(t, "float64", cfg.Problem.DType)
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DCN_PROBLEM_GROUPS", "4")
	t.Setenv("DCN_LOG_LEVEL", "debug")
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{Cmd: newFlagBinder(defaults), Defaults: defaults})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Problem.Groups)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dcn.yaml")
	content := "problem:\n  batch: 8\n  im2col_step: 2\nruntime:\n  max_scratch_bytes: 1048576\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{ConfigFile: path, Defaults: defaults})
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Problem.Batch)
	assert.Equal(t, 2, cfg.Problem.Im2ColStep)
	assert.Equal(t, int64(1048576), cfg.Runtime.MaxScratchBytes)
	assert.Equal(t, defaults.Problem.Channels, cfg.Problem.Channels)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml"), Defaults: DefaultConfig()})
	assert.Error(t, err)
}

func TestConfig_Operator(t *testing.T) {
	c := DefaultConfig()
	c.Problem.Kernel = 5
	c.Problem.Stride = 2
	c.Problem.Groups = 2
	c.Runtime.Threads = 1

	cfg, err := c.Operator()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.KernelH)
	assert.Equal(t, 2, cfg.StrideW)
	assert.Equal(t, 2, cfg.DeformableGroups)
	assert.True(t, cfg.WithBias)
	assert.False(t, cfg.Parallel.Enabled)

	c.Problem.Stride = 0
	_, err = c.Operator()
	assert.ErrorIs(t, err, dcn.ErrConfig)
}

func TestConfig_Size(t *testing.T) {
	c := DefaultConfig()
	c.Problem.Modulated = true
	size := c.Size()
	assert.Equal(t, c.Problem.Batch, size.Batch)
	assert.Equal(t, c.Problem.OutChannels, size.OutChannels)
	assert.True(t, size.Modulated)
}
