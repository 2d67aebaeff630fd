package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag of c and its subcommands to its default.
// rootCmd is shared between tests and cobra keeps parsed values around.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommandAndCaptureOutput runs rootCmd with args and returns its output.
func executeCommandAndCaptureOutput(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := GetRootCommand()
	resetFlags(cmd)
	t.Cleanup(func() { resetFlags(cmd) })

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return strings.TrimSpace(buf.String()), err
}

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "scangate", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommandAndCaptureOutput(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "decides which barcode detections")
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	output, err := executeCommandAndCaptureOutput(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "scangate version dev (commit: unknown, built: unknown)", output)
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"evaluate", "scan", "formats", "serve", "config"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	output, err := executeCommandAndCaptureOutput(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, output, "unknown flag")
}

func TestRootCommandNoArgs(t *testing.T) {
	output, err := executeCommandAndCaptureOutput(t)
	require.NoError(t, err)
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandConfiguration(t *testing.T) {
	assert.True(t, rootCmd.HasSubCommands())
	for _, name := range []string{"config", "verbose", "log-level", "version"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestGetConfig_Defaults(t *testing.T) {
	t.Setenv("SCANGATE_SCANNER_DENSITY", "2.5")
	_, err := executeCommandAndCaptureOutput(t, "--version")
	require.NoError(t, err)

	cfg := GetConfig()
	require.NotNil(t, cfg)
	assert.InDelta(t, 2.5, cfg.Scanner.Density, 1e-9)
	assert.InDelta(t, 148.0, cfg.Scanner.OverlayTopDP, 1e-9)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestRootCommand_InvalidConfigurationReturnsError(t *testing.T) {
	t.Setenv("SCANGATE_LOG_LEVEL", "loud")
	_, err := executeCommandAndCaptureOutput(t, "formats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	// The next run loads a valid configuration again.
	t.Setenv("SCANGATE_LOG_LEVEL", "info")
	output, err := executeCommandAndCaptureOutput(t, "formats")
	require.NoError(t, err)
	assert.Contains(t, output, "qrCode")
}
