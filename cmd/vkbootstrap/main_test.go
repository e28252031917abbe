package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/bootstrap/config"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, opts, err := parseArgs(nil)
	require.NoError(t, err)
	assert.False(t, opts.info)
	assert.Equal(t, config.Default(), cfg)
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: none\npreferred_device: FromFile\nwindow:\n  width: 320\n"), 0o600))

	cfg, opts, err := parseArgs([]string{"-device", "FromFlag", "-config", path, "-info"})
	require.NoError(t, err)

	assert.True(t, opts.info)
	assert.Equal(t, path, opts.configPath)
	assert.Equal(t, config.BackendNone, cfg.Backend)
	assert.Equal(t, "FromFlag", cfg.PreferredDevice)
	assert.Equal(t, 320, cfg.Window.Width)
}

func TestParseArgsErrors(t *testing.T) {
	_, _, err := parseArgs([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)

	_, _, err = parseArgs([]string{"-present-mode", "vsync"})
	require.Error(t, err)
}
