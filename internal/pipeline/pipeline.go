package pipeline

import (
	"errors"

	"github.com/MeKo-Tech/scangate/internal/barcode"
	"github.com/MeKo-Tech/scangate/internal/gate"
)

// Config holds configuration for the still-image scan pipeline.
type Config struct {
	Layout    gate.OverlayLayout
	Density   float64 // display density used to resolve Layout
	TryHarder bool

	// MaxImageSide downscales larger images before decoding (0 = no limit).
	MaxImageSide int

	Parallel ParallelConfig
}

// DefaultConfig returns a default pipeline config.
func DefaultConfig() Config {
	return Config{
		Layout:       gate.DefaultOverlayLayout(),
		Density:      1,
		MaxImageSide: 0,
		Parallel:     DefaultParallelConfig(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg     Config
	backend barcode.Backend
	engine  *gate.Engine
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithBackend sets the barcode decoder. Defaults to the gozxing backend.
func (b *Builder) WithBackend(backend barcode.Backend) *Builder {
	b.backend = backend
	return b
}

// WithEngine shares an acceptance engine with the pipeline so that
// reconfiguring the engine affects subsequent scans.
func (b *Builder) WithEngine(engine *gate.Engine) *Builder {
	b.engine = engine
	return b
}

// WithFormats creates a private engine restricted to the named formats.
// Unrecognized names are ignored.
func (b *Builder) WithFormats(names ...string) *Builder {
	f, _ := gate.NewFormatFilter(names...)
	b.engine = gate.NewEngine(f)
	return b
}

func (b *Builder) WithTryHarder(enabled bool) *Builder {
	b.cfg.TryHarder = enabled
	return b
}

// WithLayout sets the overlay position in density-independent pixels.
func (b *Builder) WithLayout(layout gate.OverlayLayout) *Builder {
	b.cfg.Layout = layout
	return b
}

func (b *Builder) WithDensity(density float64) *Builder {
	if density > 0 {
		b.cfg.Density = density
	}
	return b
}

// WithMaxImageSide bounds the longest image side fed to the decoder.
func (b *Builder) WithMaxImageSide(side int) *Builder {
	if side >= 0 {
		b.cfg.MaxImageSide = side
	}
	return b
}

// WithParallelWorkers sets the number of parallel workers for file batches.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback sets a progress reporter for file batches.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = callback
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks that the configuration looks sane.
func (b *Builder) Validate() error {
	if !(b.cfg.Density > 0) {
		return errors.New("density must be > 0")
	}
	if b.cfg.Layout.TopDP < 0 || b.cfg.Layout.HeightDP < 0 {
		return errors.New("overlay layout must not be negative")
	}
	return nil
}

// Pipeline decodes still images and runs every decoded barcode through
// the acceptance gate.
type Pipeline struct {
	cfg     Config
	Backend barcode.Backend
	Engine  *gate.Engine
}

// Build initializes the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	backend := b.backend
	if backend == nil {
		backend = barcode.NewBackend()
	}
	engine := b.engine
	if engine == nil {
		engine = gate.NewEngine(gate.AllFormats())
	}
	return &Pipeline{cfg: b.cfg, Backend: backend, Engine: engine}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Info returns a map with key pipeline properties.
func (p *Pipeline) Info() map[string]interface{} {
	top, height := p.cfg.Layout.Resolve(p.cfg.Density)
	f := p.Engine.Filter()
	return map[string]interface{}{
		"overlay_top_px":    top,
		"overlay_height_px": height,
		"density":           p.cfg.Density,
		"try_harder":        p.cfg.TryHarder,
		"max_image_side":    p.cfg.MaxImageSide,
		"formats":           f.Names(),
		"unrestricted":      f.Unrestricted(),
	}
}
