package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/scangate/internal/barcode"
	"github.com/MeKo-Tech/scangate/internal/gate"
)

var errNoDetections = errors.New("no detections provided")

// DetectionPayload is a detection as posted by a camera host. The symbology
// is given either by canonical name in Format or by a vendor-native value.
type DetectionPayload struct {
	Format string `json:"format,omitempty"`
	Vendor string `json:"vendor,omitempty"`
	// VendorFormat is an ML Kit integer or a Vision/ZXing string.
	VendorFormat json.RawMessage `json:"vendor_format,omitempty"`
	Box          *gate.Box       `json:"box,omitempty"`
	Convention   string          `json:"convention,omitempty"`
	// Payload is null or absent when the barcode could not be decoded.
	Payload *string `json:"payload,omitempty"`
}

// ViewportPayload carries the per-frame sizing. Overlay offsets default to
// the configured layout resolved at Density.
type ViewportPayload struct {
	ImageWidth      int      `json:"image_width"`
	ImageHeight     int      `json:"image_height"`
	RotationDegrees int      `json:"rotation_degrees"`
	ViewHeight      float64  `json:"view_height,omitempty"`
	OverlayTop      *float64 `json:"overlay_top,omitempty"`
	OverlayHeight   *float64 `json:"overlay_height,omitempty"`
	Density         float64  `json:"density,omitempty"`
}

// symbology resolves the payload's symbology; unresolvable values are unknown.
func (p DetectionPayload) symbology() barcode.Symbology {
	if p.Vendor != "" {
		return barcode.ParseVendorFormat(p.Vendor, rawString(p.VendorFormat))
	}
	s, _ := barcode.NameToSymbology(p.Format)
	return s
}

// rawString returns a JSON string's contents or a bare literal's text.
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// toDetection converts the payload, using def when no convention is given.
func (p DetectionPayload) toDetection(def gate.Convention) (gate.Detection, error) {
	conv := def
	if p.Convention != "" {
		c, err := gate.ParseConvention(p.Convention)
		if err != nil {
			return gate.Detection{}, err
		}
		conv = c
	}
	return gate.Detection{
		Symbology:  p.symbology(),
		Box:        p.Box,
		Convention: conv,
		Payload:    p.Payload,
	}, nil
}

// viewport resolves p against the server's overlay layout. An omitted
// view height defaults to the upright image height.
func (s *Server) viewport(p ViewportPayload) gate.Viewport {
	density := p.Density
	if !(density > 0) {
		density = s.density
	}
	v := s.layout.Viewport(p.ImageWidth, p.ImageHeight, p.RotationDegrees, p.ViewHeight, density)
	if p.ViewHeight == 0 {
		v.ViewHeight = float64(v.EffectiveHeight())
	}
	if p.OverlayTop != nil {
		v.OverlayTop = *p.OverlayTop
	}
	if p.OverlayHeight != nil {
		v.OverlayHeight = *p.OverlayHeight
	}
	return v
}

// detections converts a request's detections, reporting the first bad index.
func (s *Server) detections(single *DetectionPayload, many []DetectionPayload) ([]gate.Detection, error) {
	if single != nil {
		many = append([]DetectionPayload{*single}, many...)
	}
	if len(many) == 0 {
		return nil, errNoDetections
	}
	out := make([]gate.Detection, len(many))
	for i, p := range many {
		d, err := p.toDetection(s.convention)
		if err != nil {
			return nil, fmt.Errorf("detection %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}
