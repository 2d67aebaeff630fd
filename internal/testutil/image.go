package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/require"
)

// ImageSize represents image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common camera analysis resolutions (portrait).
	PortraitHD = ImageSize{720, 1280}
	SmallSize  = ImageSize{320, 480}
)

// BarcodeImageConfig describes a synthetic frame containing one barcode.
type BarcodeImageConfig struct {
	Content string
	Format  gozxing.BarcodeFormat // QR_CODE or CODE_128
	Symbol  ImageSize             // rendered symbol size
	Canvas  ImageSize
	Offset  image.Point // top-left of the symbol on the canvas
}

// DefaultBarcodeImageConfig returns a QR code centered on a small portrait canvas.
func DefaultBarcodeImageConfig() BarcodeImageConfig {
	return BarcodeImageConfig{
		Content: "scangate",
		Format:  gozxing.BarcodeFormat_QR_CODE,
		Symbol:  ImageSize{160, 160},
		Canvas:  SmallSize,
		Offset:  image.Pt(80, 160),
	}
}

// GenerateBarcodeImage renders the configured barcode onto a white canvas.
func GenerateBarcodeImage(cfg BarcodeImageConfig) (*image.NRGBA, error) {
	var (
		symbol image.Image
		err    error
	)
	switch cfg.Format {
	case gozxing.BarcodeFormat_QR_CODE:
		symbol, err = qrcode.NewQRCodeWriter().Encode(cfg.Content, cfg.Format, cfg.Symbol.Width, cfg.Symbol.Height, nil)
	case gozxing.BarcodeFormat_CODE_128:
		symbol, err = oned.NewCode128Writer().Encode(cfg.Content, cfg.Format, cfg.Symbol.Width, cfg.Symbol.Height, nil)
	default:
		return nil, fmt.Errorf("unsupported fixture format: %v", cfg.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", cfg.Content, err)
	}

	canvas := imaging.New(cfg.Canvas.Width, cfg.Canvas.Height, color.White)
	return imaging.Paste(canvas, symbol, cfg.Offset), nil
}

// MustBarcodeImage is GenerateBarcodeImage for tests.
func MustBarcodeImage(t *testing.T, cfg BarcodeImageConfig) *image.NRGBA {
	t.Helper()
	img, err := GenerateBarcodeImage(cfg)
	require.NoError(t, err)
	return img
}

// SaveImage saves an image as PNG, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// EncodePNG returns img as PNG bytes.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
