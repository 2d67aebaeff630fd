package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/MeKo-Tech/scangate/internal/barcode"
	"github.com/MeKo-Tech/scangate/internal/gate"
)

// mockBackend is a barcode.Backend returning canned results.
type mockBackend struct {
	mu      sync.Mutex
	results []barcode.Result
	err     error
	calls   int
}

func (m *mockBackend) Decode(_ context.Context, _ image.Image, _ barcode.Options) ([]barcode.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.results) == 0 {
		return nil, barcode.ErrNoBarcode
	}
	return m.results, nil
}

// mockResult returns a decoded result whose box spans rows top..bottom.
func mockResult(s barcode.Symbology, value string, top, bottom int) barcode.Result {
	return barcode.Result{
		Symbology: s,
		Value:     value,
		Points:    []barcode.Point{{X: 20, Y: float64(top)}, {X: 120, Y: float64(bottom)}},
		BBox:      image.Rect(20, top, 120, bottom),
	}
}

// newTestServer builds a server with the default layout at density 1 and
// the given backend. The overlay spans image rows 148..282 for a frame whose
// height equals the view height.
func newTestServer(backend barcode.Backend, formats ...string) (*Server, error) {
	return NewServer(Config{
		CORSOrigin:  "*",
		MaxUploadMB: 1,
		TimeoutSec:  5,
		Formats:     formats,
		Layout:      gate.DefaultOverlayLayout(),
		Density:     1,
		Backend:     backend,
		Version:     "test",
	})
}

// createTestImage creates a blank test image.
func createTestImage(width, height int) image.Image {
	return image.NewGray(image.Rect(0, 0, width, height))
}

// createMultipartFormRequest creates a multipart form request with an image.
func createMultipartFormRequest(
	imageData []byte,
	filename string,
	extraFields map[string]string,
) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, err
	}

	for key, value := range extraFields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, "/scan/image", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

// createJSONRequest creates a request with v encoded as the JSON body.
func createJSONRequest(method, target string, v any) (*http.Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// portraitViewport is a 720x1280 upright frame shown on a 1280-pixel preview
// with the overlay at 500..700.
func portraitViewport() ViewportPayload {
	top, height := 500.0, 200.0
	return ViewportPayload{
		ImageWidth:    720,
		ImageHeight:   1280,
		ViewHeight:    1280,
		OverlayTop:    &top,
		OverlayHeight: &height,
	}
}

// pixelDetection returns a decoded pixel-convention detection centered on centerY.
func pixelDetection(format, payload string, centerY float64) DetectionPayload {
	p := payload
	return DetectionPayload{
		Format:  format,
		Box:     &gate.Box{Left: 100, Top: centerY - 20, Right: 300, Bottom: centerY + 20},
		Payload: &p,
	}
}
