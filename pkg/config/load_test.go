package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.Equal(t, 256, s.MaxCallDepth)
	assert.Equal(t, int64(0), s.MaxSteps)
	assert.Equal(t, 255, s.MaxFileHandles)
	assert.Equal(t, 80, s.ConsoleWidth)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qbi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_call_depth: 16\nconsole_width: 40\n"), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, s.MaxCallDepth)
	assert.Equal(t, 40, s.ConsoleWidth)
	assert.Equal(t, DefaultFileHandles, s.MaxFileHandles)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("QBI_MAX_CALL_DEPTH", "8")
	t.Setenv("QBI_CONSOLE_WIDTH", "132")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, s.MaxCallDepth)
	assert.Equal(t, 132, s.ConsoleWidth)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qbi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_call_depth: 16\n"), 0644))
	t.Setenv("QBI_MAX_CALL_DEPTH", "4")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, s.MaxCallDepth)
}
