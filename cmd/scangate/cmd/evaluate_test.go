package cmd

import (
	"encoding/json"
	"testing"

	"github.com/MeKo-Tech/scangate/internal/gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// With the default layout at density 1 and a 1:1 preview the scan window
// spans rows 148..282 of a 720x1280 frame.
func TestEvaluateCommand(t *testing.T) {
	frame := []string{"evaluate", "--image-size", "720x1280"}

	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{
			name:     "accepted",
			args:     []string{"--format", "qrCode", "--payload", "abc", "--box", "100,200,300,240"},
			expected: "accept\tqrCode\tabc",
		},
		{
			name:     "empty payload is still decoded",
			args:     []string{"--format", "ean13", "--payload", "", "--box", "100,200,300,240"},
			expected: "accept\tean13",
		},
		{
			name:     "missing payload",
			args:     []string{"--format", "qrCode", "--box", "100,200,300,240"},
			expected: "reject_no_payload\tqrCode",
		},
		{
			name:     "format not allowed",
			args:     []string{"--format", "qrCode", "--payload", "abc", "--box", "100,200,300,240", "--formats", "ean13,upca"},
			expected: "reject_format\tqrCode",
		},
		{
			name:     "unrecognized allow-list entries are ignored",
			args:     []string{"--format", "qrCode", "--payload", "abc", "--box", "100,200,300,240", "--formats", "bogus"},
			expected: "accept\tqrCode\tabc",
		},
		{
			name:     "below the scan window",
			args:     []string{"--format", "qrCode", "--payload", "abc", "--box", "100,500,300,540"},
			expected: "reject_out_of_viewport\tqrCode",
		},
		{
			name:     "no box",
			args:     []string{"--format", "qrCode", "--payload", "abc"},
			expected: "reject_out_of_viewport\tqrCode",
		},
		{
			name:     "normalized box",
			args:     []string{"--format", "qrCode", "--payload", "abc", "--box", "0.1,0.15,0.6,0.19", "--normalized"},
			expected: "accept\tqrCode\tabc",
		},
		{
			name:     "density moves the window",
			args:     []string{"--format", "qrCode", "--payload", "abc", "--box", "100,200,300,240", "--density", "2"},
			expected: "reject_out_of_viewport\tqrCode",
		},
		{
			name:     "explicit overlay",
			args:     []string{"--format", "qrCode", "--payload", "abc", "--box", "100,500,300,540", "--overlay-top", "500", "--overlay-height", "100"},
			expected: "accept\tqrCode\tabc",
		},
		{
			name:     "vendor id",
			args:     []string{"--vendor", "mlkit", "--format", "256", "--payload", "abc", "--box", "100,200,300,240"},
			expected: "accept\tqrCode\tabc",
		},
		{
			name:     "unknown symbology under a restricted filter",
			args:     []string{"--format", "bogus", "--payload", "abc", "--box", "100,200,300,240", "--formats", "qrCode"},
			expected: "reject_format\tunknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := executeCommandAndCaptureOutput(t, append(append([]string{}, frame...), tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, output)
		})
	}
}

func TestEvaluateCommand_RotatedFrame(t *testing.T) {
	// A landscape buffer rotated by 90 degrees is 1280 rows tall upright; the
	// 2560-pixel preview halves the overlay to rows 450..600.
	output, err := executeCommandAndCaptureOutput(t, "evaluate",
		"--format", "ean13", "--payload", "4006381333931",
		"--box", "0,500,100,540",
		"--image-size", "1280x720", "--rotation", "90", "--view-height", "2560",
		"--overlay-top", "900", "--overlay-height", "300",
		"--output", "json")
	require.NoError(t, err)

	var res evaluateResult
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	assert.Equal(t, gate.Accept, res.Decision.Outcome)
	assert.Equal(t, map[string]string{"value": "4006381333931", "type": "ean13"}, res.Event)
	assert.Equal(t, 1280, res.Viewport.EffectiveHeight())
	assert.InDelta(t, 2560.0, res.Viewport.ViewHeight, 1e-9)
}

func TestEvaluateCommand_YAML(t *testing.T) {
	output, err := executeCommandAndCaptureOutput(t, "evaluate",
		"--format", "qrCode", "--box", "100,200,300,240", "--image-size", "720x1280", "--output", "yaml")
	require.NoError(t, err)

	var res evaluateResult
	require.NoError(t, yaml.Unmarshal([]byte(output), &res))
	assert.Equal(t, gate.RejectNoPayload, res.Decision.Outcome)
	assert.Nil(t, res.Event)
	assert.InDelta(t, 148.0, res.Viewport.OverlayTop, 1e-9)
	assert.InDelta(t, 134.0, res.Viewport.OverlayHeight, 1e-9)
}

func TestEvaluateCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing format", []string{"--image-size", "720x1280"}, "--format is required"},
		{"missing image size", []string{"--format", "qrCode"}, "--image-size is required"},
		{"bad image size", []string{"--format", "qrCode", "--image-size", "720"}, "invalid image size"},
		{"zero image height", []string{"--format", "qrCode", "--image-size", "720x0"}, "invalid image height"},
		{"bad box", []string{"--format", "qrCode", "--image-size", "720x1280", "--box", "1,2,3"}, "invalid --box"},
		{"bad density", []string{"--format", "qrCode", "--image-size", "720x1280", "--density", "0"}, "invalid density"},
		{"csv output", []string{"--format", "qrCode", "--image-size", "720x1280", "--output", "csv"}, "only supported by scan"},
		{"unknown output", []string{"--format", "qrCode", "--image-size", "720x1280", "--output", "xml"}, "invalid output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommandAndCaptureOutput(t, append([]string{"evaluate"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseImageSize(t *testing.T) {
	w, h, err := parseImageSize(" 1280X720 ")
	require.NoError(t, err)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)

	_, _, err = parseImageSize("axb")
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"qrCode", "ean13"}, splitList(" qrCode, ,ean13,"))
	assert.Nil(t, splitList(""))
}
