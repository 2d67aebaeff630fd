package gate

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Engine evaluates detections against the current FormatFilter.
type Engine struct {
	filter atomic.Pointer[FormatFilter]
}

// NewEngine returns an engine configured with f.
func NewEngine(f FormatFilter) *Engine {
	e := &Engine{}
	e.filter.Store(&f)
	return e
}

// Filter returns the current filter.
func (e *Engine) Filter() FormatFilter {
	if f := e.filter.Load(); f != nil {
		return *f
	}
	return FormatFilter{}
}

// Reconfigure atomically replaces the filter. Evaluations already running
// keep the filter they loaded.
func (e *Engine) Reconfigure(f FormatFilter) {
	e.filter.Store(&f)
}

// Evaluate evaluates d with the current filter.
func (e *Engine) Evaluate(d Detection, v Viewport) Decision {
	return Evaluate(d, v, e.Filter())
}

// EvaluateAll evaluates every detection of one frame with a single filter snapshot.
func (e *Engine) EvaluateAll(ds []Detection, v Viewport) []Decision {
	f := e.Filter()
	out := make([]Decision, len(ds))
	for i, d := range ds {
		out[i] = Evaluate(d, v, f)
	}
	return out
}

// Supply is the entry point for camera integrations: it evaluates d and
// traces the viewport calculation at debug level.
func (e *Engine) Supply(d Detection, v Viewport) Decision {
	dec := e.Evaluate(d, v)

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		top, bottom, ok := v.Bounds()
		attrs := []any{
			"outcome", dec.Outcome.String(),
			"type", dec.Name,
			"rotation", v.RotationDegrees,
			"image", [2]int{v.ImageWidth, v.ImageHeight},
			"effective_height", v.EffectiveHeight(),
			"view_height", v.ViewHeight,
			"viewport_ok", ok,
			"viewport_top", top,
			"viewport_bottom", bottom,
		}
		if d.Box != nil {
			attrs = append(attrs, "center_y", d.Box.CenterY(), "convention", d.Convention.String())
		}
		slog.Debug("Barcode evaluated", attrs...)
	}
	return dec
}
