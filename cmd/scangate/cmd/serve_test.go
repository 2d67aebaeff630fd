package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommandFlags(t *testing.T) {
	for _, name := range []string{
		"host", "port", "cors-origin", "max-upload-size", "timeout", "shutdown-timeout",
		"formats", "density", "try-harder", "max-image-side",
	} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "H", serveCmd.Flags().Lookup("host").Shorthand)
	assert.Equal(t, "8080", serveCmd.Flags().Lookup("port").DefValue)
}

func TestServeCommand_InvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"port too large", []string{"--port", "70000"}, "invalid port"},
		{"zero upload size", []string{"--max-upload-size", "0"}, "invalid max upload size"},
		{"zero timeout", []string{"--timeout", "0"}, "invalid timeout"},
		{"zero density", []string{"--density", "0"}, "invalid density"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommandAndCaptureOutput(t, append([]string{"serve"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
