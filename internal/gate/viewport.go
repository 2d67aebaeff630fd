package gate

import "math"

// Viewport carries the per-frame sizing and orientation parameters supplied
// by the camera/layout layer. Overlay values are on-screen pixels measured
// from the top of the preview surface.
type Viewport struct {
	ImageWidth      int     `json:"image_width" yaml:"image_width"`
	ImageHeight     int     `json:"image_height" yaml:"image_height"`
	RotationDegrees int     `json:"rotation_degrees" yaml:"rotation_degrees"`
	ViewHeight      float64 `json:"view_height" yaml:"view_height"`
	OverlayTop      float64 `json:"overlay_top" yaml:"overlay_top"`
	OverlayHeight   float64 `json:"overlay_height" yaml:"overlay_height"`
}

// normalizeRotation folds degrees into [0,360). ok is false for anything
// other than a right angle.
func normalizeRotation(deg int) (int, bool) {
	r := deg % 360
	if r < 0 {
		r += 360
	}
	return r, r%90 == 0
}

// EffectiveHeight is the image axis that is vertical on screen: the sensor
// width when the frame is rotated by 90 or 270 degrees, the height otherwise.
// It returns 0 for rotations that are not right angles.
func (v Viewport) EffectiveHeight() int {
	r, ok := normalizeRotation(v.RotationDegrees)
	if !ok {
		return 0
	}
	if r == 90 || r == 270 {
		return v.ImageWidth
	}
	return v.ImageHeight
}

// Bounds returns the overlay's vertical extent in image coordinates.
// ok is false when the geometry is undefined (zero view or image height,
// non-finite values, odd rotation).
func (v Viewport) Bounds() (top, bottom float64, ok bool) {
	eff := float64(v.EffectiveHeight())
	if eff <= 0 || !(v.ViewHeight > 0) || math.IsInf(v.ViewHeight, 0) {
		return 0, 0, false
	}
	scale := eff / v.ViewHeight
	top = v.OverlayTop * scale
	bottom = top + v.OverlayHeight*scale
	if math.IsNaN(top) || math.IsNaN(bottom) || math.IsInf(top, 0) || math.IsInf(bottom, 0) {
		return 0, 0, false
	}
	return top, bottom, true
}

// InViewport reports whether the detection's vertical center lies within
// the overlay. Detections without a usable bounding box never do.
func InViewport(d Detection, v Viewport) bool {
	top, bottom, ok := v.Bounds()
	if !ok {
		return false
	}
	c, ok := d.centerY(v.ImageHeight)
	if !ok || math.IsNaN(c) || math.IsInf(c, 0) {
		return false
	}
	return top <= c && c <= bottom
}

// OverlayLayout positions the scan window in density-independent pixels.
type OverlayLayout struct {
	TopDP    float64 `json:"top_dp" yaml:"top_dp"`
	HeightDP float64 `json:"height_dp" yaml:"height_dp"`
}

// DefaultOverlayLayout is the scan window drawn by the reference UI:
// 134dp tall, 148dp below the top of the preview.
func DefaultOverlayLayout() OverlayLayout {
	return OverlayLayout{TopDP: 148, HeightDP: 134}
}

// Resolve converts the layout to on-screen pixels for a display density.
// Non-positive densities are treated as 1.
func (l OverlayLayout) Resolve(density float64) (top, height float64) {
	if !(density > 0) {
		density = 1
	}
	return l.TopDP * density, l.HeightDP * density
}

// Viewport builds a Viewport from frame parameters and this layout.
func (l OverlayLayout) Viewport(imageWidth, imageHeight, rotation int, viewHeight, density float64) Viewport {
	top, height := l.Resolve(density)
	return Viewport{
		ImageWidth:      imageWidth,
		ImageHeight:     imageHeight,
		RotationDegrees: rotation,
		ViewHeight:      viewHeight,
		OverlayTop:      top,
		OverlayHeight:   height,
	}
}
