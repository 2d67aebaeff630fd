package pipeline

import "github.com/MeKo-Tech/scangate/internal/gate"

// Frame describes how an image was captured and how the scan window sat
// over the preview. Zero values fall back to the pipeline defaults.
type Frame struct {
	// Rotation is the clockwise rotation needed to display the image upright.
	Rotation int
	// ViewHeight is the preview height in screen pixels; 0 uses the
	// upright image height.
	ViewHeight float64
	// OverlayTop and OverlayHeight override the configured layout, in
	// screen pixels.
	OverlayTop    *float64
	OverlayHeight *float64
	// Density overrides the configured display density.
	Density float64
}

// BarcodeResult is one decoded barcode and the gate's verdict on it.
type BarcodeResult struct {
	Type     string        `json:"type" yaml:"type"`
	Value    string        `json:"value" yaml:"value"`
	Box      *gate.Box     `json:"box,omitempty" yaml:"box,omitempty"`
	Points   []Point       `json:"points,omitempty" yaml:"points,omitempty"`
	Decision gate.Decision `json:"decision" yaml:"decision"`
}

// Point is a decoder-reported finder or end point in upright coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// ScanImageResult is the per-image scan output.
type ScanImageResult struct {
	Path     string            `json:"path,omitempty" yaml:"path,omitempty"`
	Format   string            `json:"format,omitempty" yaml:"format,omitempty"`
	Width    int               `json:"width" yaml:"width"`
	Height   int               `json:"height" yaml:"height"`
	Viewport gate.Viewport     `json:"viewport" yaml:"viewport"`
	Barcodes []BarcodeResult   `json:"barcodes" yaml:"barcodes"`
	Event    map[string]string `json:"event,omitempty" yaml:"event,omitempty"`
	// Error is set by batch processing when this file failed.
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	Processing struct {
		DecodeNs int64 `json:"decode_ns" yaml:"decode_ns"`
		TotalNs  int64 `json:"total_ns" yaml:"total_ns"`
	} `json:"processing" yaml:"processing"`
}

// Decisions returns the decisions in decode order.
func (r *ScanImageResult) Decisions() []gate.Decision {
	out := make([]gate.Decision, len(r.Barcodes))
	for i, b := range r.Barcodes {
		out[i] = b.Decision
	}
	return out
}
