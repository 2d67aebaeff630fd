package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/scangate/internal/gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *ScanImageResult {
	res := &ScanImageResult{
		Path:   "frame.png",
		Width:  320,
		Height: 480,
		Barcodes: []BarcodeResult{
			{
				Type:     "qrCode",
				Value:    "hello",
				Box:      &gate.Box{Left: 10, Top: 200, Right: 50, Bottom: 240.5},
				Decision: gate.Decision{Outcome: gate.Accept, Name: "qrCode", Payload: "hello"},
			},
			{
				Type:     "ean13",
				Value:    "4006381333931",
				Decision: gate.Decision{Outcome: gate.RejectFormat, Name: "ean13"},
			},
		},
		Event: map[string]string{"value": "hello", "type": "qrCode"},
	}
	return res
}

func TestToJSONImage(t *testing.T) {
	s, err := ToJSONImage(sampleResult())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &decoded))
	barcodes := decoded["barcodes"].([]any)
	first := barcodes[0].(map[string]any)
	assert.Equal(t, "accept", first["decision"].(map[string]any)["outcome"])
	second := barcodes[1].(map[string]any)
	assert.Equal(t, "reject_format", second["decision"].(map[string]any)["outcome"])
	assert.NotContains(t, second["decision"], "value")

	_, err = ToJSONImage(nil)
	assert.Error(t, err)
}

func TestToJSONImages(t *testing.T) {
	s, err := ToJSONImages([]*ScanImageResult{sampleResult(), {Path: "bad.png", Error: "boom"}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "["))
	assert.Contains(t, s, `"error": "boom"`)
}

func TestToYAMLImages(t *testing.T) {
	s, err := ToYAMLImages([]*ScanImageResult{sampleResult()})
	require.NoError(t, err)
	assert.Contains(t, s, "outcome: accept")
	assert.Contains(t, s, "outcome: reject_format")

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(s), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "frame.png", decoded[0]["path"])
}

func TestToPlainText(t *testing.T) {
	s, err := ToPlainTextImage(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, "accept\tqrCode\thello\nreject_format\tean13\t4006381333931", s)

	s, err = ToPlainTextImage(&ScanImageResult{})
	require.NoError(t, err)
	assert.Equal(t, "no barcodes", s)

	_, err = ToPlainTextImage(nil)
	assert.Error(t, err)

	many, err := ToPlainTextImages([]*ScanImageResult{sampleResult(), {Path: "b.png", Error: "boom"}})
	require.NoError(t, err)
	assert.Contains(t, many, "# frame.png\n")
	assert.Contains(t, many, "# b.png\nerror: boom")
}

func TestToCSVImages(t *testing.T) {
	s, err := ToCSVImages([]*ScanImageResult{sampleResult()})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(s), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "path,type,value,outcome,left,top,right,bottom", lines[0])
	assert.Equal(t, "frame.png,qrCode,hello,accept,10,200,50,240.5", lines[1])
	assert.Equal(t, "frame.png,ean13,4006381333931,reject_format,,,,", lines[2])

	_, err = ToCSVImages([]*ScanImageResult{nil})
	assert.Error(t, err)
}

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "scan ").WithUpdateInterval(time.Hour)
	cb.OnStart(3)
	cb.OnProgress(1, 3)
	cb.OnProgress(2, 3) // within the update interval
	cb.OnProgress(3, 3)
	cb.OnError(2, errors.New("boom"))
	cb.OnComplete()

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "scan 0/3"))
	assert.Contains(t, out, "\rscan 1/3")
	assert.NotContains(t, out, "2/3")
	assert.Contains(t, out, "\rscan 3/3")
	assert.Contains(t, out, "Error at item 2: boom")
	assert.Contains(t, out, "Completed in")
}

func TestLogProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cb := NewLogProgressCallback(logger, "")
	cb.OnStart(2)
	cb.OnProgress(1, 2)
	cb.OnError(1, errors.New("boom"))
	cb.OnComplete()

	out := buf.String()
	assert.Contains(t, out, `"msg":"Starting scan"`)
	assert.Contains(t, out, `"msg":"Scan failed"`)
	assert.Contains(t, out, `"msg":"Scan completed"`)

	var noop ProgressCallback = NoOpProgressCallback{}
	noop.OnStart(1)
	noop.OnComplete()
}
