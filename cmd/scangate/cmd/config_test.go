package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/scangate/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigShowCommand(t *testing.T) {
	t.Setenv("SCANGATE_SERVER_PORT", "9090")

	output, err := executeCommandAndCaptureOutput(t, "config", "show")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(output), &cfg))
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "pixel", cfg.Scanner.Convention)
	assert.InDelta(t, 134.0, cfg.Scanner.OverlayHeightDP, 1e-9)
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scangate.yaml")

	output, err := executeCommandAndCaptureOutput(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, output, path)

	loaded, err := config.NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Server.Port, loaded.Server.Port)

	_, err = executeCommandAndCaptureOutput(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o600))
	_, err = executeCommandAndCaptureOutput(t, "config", "init", path, "--force")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "log_level: info")
}
