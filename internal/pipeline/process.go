package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/scangate/internal/barcode"
	"github.com/MeKo-Tech/scangate/internal/gate"
	"github.com/MeKo-Tech/scangate/internal/utils"
)

// ProcessImage decodes img and evaluates every barcode found in it.
// An image without barcodes yields an empty result, not an error.
func (p *Pipeline) ProcessImage(ctx context.Context, img image.Image, frame Frame) (*ScanImageResult, error) {
	if p == nil || p.Backend == nil || p.Engine == nil {
		return nil, errors.New("pipeline not initialized")
	}
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	img = utils.ConstrainSize(img, p.cfg.MaxImageSide)
	upright, err := utils.Upright(img, frame.Rotation)
	if err != nil {
		return nil, err
	}

	decodeStart := time.Now()
	decoded, err := p.Backend.Decode(ctx, upright, barcode.Options{TryHarder: p.cfg.TryHarder})
	decodeNs := time.Since(decodeStart).Nanoseconds()
	if err != nil && !errors.Is(err, barcode.ErrNoBarcode) {
		return nil, fmt.Errorf("decode barcodes: %w", err)
	}

	b := img.Bounds()
	vp := p.viewport(b.Dx(), b.Dy(), upright.Bounds().Dy(), frame)

	detections := make([]gate.Detection, len(decoded))
	for i, r := range decoded {
		detections[i] = toDetection(r)
	}
	decisions := p.Engine.EvaluateAll(detections, vp)

	res := &ScanImageResult{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Viewport: vp,
		Barcodes: make([]BarcodeResult, len(decoded)),
	}
	for i, r := range decoded {
		res.Barcodes[i] = BarcodeResult{
			Type:     barcode.SymbologyToName(r.Symbology),
			Value:    r.Value,
			Box:      detections[i].Box,
			Points:   toPoints(r.Points),
			Decision: decisions[i],
		}
	}
	if first, ok := gate.FirstAccepted(decisions); ok {
		res.Event = first.Event()
	}
	res.Processing.DecodeNs = decodeNs
	res.Processing.TotalNs = time.Since(start).Nanoseconds()

	slog.Debug("Scanned image",
		"width", res.Width,
		"height", res.Height,
		"rotation", frame.Rotation,
		"barcodes", len(res.Barcodes),
		"accepted", res.Event != nil,
		"duration", time.Duration(res.Processing.TotalNs))
	return res, nil
}

// ProcessFile loads the image at path and scans it.
func (p *Pipeline) ProcessFile(ctx context.Context, path string, frame Frame) (*ScanImageResult, error) {
	img, meta, err := utils.LoadImage(path)
	if err != nil {
		return nil, err
	}
	res, err := p.ProcessImage(ctx, img, frame)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.Path = meta.Path
	res.Format = meta.Format
	return res, nil
}

// viewport resolves the frame against the configured layout. w and h are
// the dimensions of the image as decoded, before rotation.
func (p *Pipeline) viewport(w, h, uprightHeight int, frame Frame) gate.Viewport {
	density := frame.Density
	if !(density > 0) {
		density = p.cfg.Density
	}
	viewHeight := frame.ViewHeight
	if !(viewHeight > 0) {
		viewHeight = float64(uprightHeight)
	}
	vp := p.cfg.Layout.Viewport(w, h, frame.Rotation, viewHeight, density)
	if frame.OverlayTop != nil {
		vp.OverlayTop = *frame.OverlayTop
	}
	if frame.OverlayHeight != nil {
		vp.OverlayHeight = *frame.OverlayHeight
	}
	return vp
}

// toDetection converts a decoder result to a pixel-convention detection.
// Results without points carry no box and never pass the viewport check.
func toDetection(r barcode.Result) gate.Detection {
	value := r.Value
	d := gate.Detection{Symbology: r.Symbology, Convention: gate.Pixel, Payload: &value}
	if len(r.Points) > 0 {
		d.Box = &gate.Box{
			Left:   float64(r.BBox.Min.X),
			Top:    float64(r.BBox.Min.Y),
			Right:  float64(r.BBox.Max.X),
			Bottom: float64(r.BBox.Max.Y),
		}
	}
	return d
}

func toPoints(pts []barcode.Point) []Point {
	if len(pts) == 0 {
		return nil
	}
	out := make([]Point, len(pts))
	for i, pt := range pts {
		out[i] = Point{X: pt.X, Y: pt.Y}
	}
	return out
}
