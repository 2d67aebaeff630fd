package gate

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/scangate/internal/barcode"
)

// ErrInvalidBox is returned when a textual bounding box cannot be parsed.
var ErrInvalidBox = errors.New("invalid bounding box")

// Convention tells how a Box is expressed.
type Convention int

const (
	// Pixel boxes are in image pixels (ML Kit).
	Pixel Convention = iota
	// Normalized boxes are fractions of the image in [0,1] (Apple Vision).
	Normalized
)

func (c Convention) String() string {
	if c == Normalized {
		return "normalized"
	}
	return "pixel"
}

// ParseConvention accepts "pixel" or "normalized"; empty means pixel.
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pixel", "pixels":
		return Pixel, nil
	case "normalized", "normalised":
		return Normalized, nil
	default:
		return Pixel, fmt.Errorf("unknown coordinate convention %q (must be pixel or normalized)", s)
	}
}

// Box is an axis-aligned rectangle with a top-left origin.
type Box struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
}

// CenterY returns the vertical center of the box.
func (b Box) CenterY() float64 { return (b.Top + b.Bottom) / 2 }

// Valid reports whether the box is finite with 0 <= left <= right and 0 <= top <= bottom.
func (b Box) Valid() bool {
	for _, v := range []float64{b.Left, b.Top, b.Right, b.Bottom} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Left >= 0 && b.Left <= b.Right && b.Top >= 0 && b.Top <= b.Bottom
}

// ParseBox parses "left,top,right,bottom".
func ParseBox(s string) (Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Box{}, fmt.Errorf("%w: %q (want left,top,right,bottom)", ErrInvalidBox, s)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Box{}, fmt.Errorf("%w: %q: %v", ErrInvalidBox, s, err)
		}
		vals[i] = v
	}
	b := Box{Left: vals[0], Top: vals[1], Right: vals[2], Bottom: vals[3]}
	if !b.Valid() {
		return Box{}, fmt.Errorf("%w: %q", ErrInvalidBox, s)
	}
	return b, nil
}

// Detection is one barcode reported by a detector for one frame.
type Detection struct {
	Symbology  barcode.Symbology
	Box        *Box // nil when the detector reported no bounding box
	Convention Convention
	Payload    *string // nil when the payload could not be decoded
}

// NewDetection returns a decoded detection with a pixel bounding box.
func NewDetection(s barcode.Symbology, box Box, payload string) Detection {
	return Detection{Symbology: s, Box: &box, Payload: &payload}
}

// centerY returns the box center in image pixels.
func (d Detection) centerY(imageHeight int) (float64, bool) {
	if d.Box == nil || !d.Box.Valid() {
		return 0, false
	}
	c := d.Box.CenterY()
	if d.Convention == Normalized {
		c *= float64(imageHeight)
	}
	return c, true
}
