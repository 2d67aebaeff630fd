package barcode

import (
	"context"
	"image"
)

// Symbology represents a barcode encoding standard.
type Symbology int

const (
	SymbologyUnknown Symbology = iota
	SymbologyAztec
	SymbologyCodabar
	SymbologyCode128
	SymbologyCode39
	SymbologyCode93
	SymbologyDataMatrix
	SymbologyEAN13
	SymbologyEAN8
	SymbologyITF
	SymbologyPDF417
	SymbologyQRCode
	SymbologyUPCA
	SymbologyUPCE
)

// String returns the canonical name of the symbology.
func (s Symbology) String() string { return SymbologyToName(s) }

// Known reports whether s is one of the concrete symbologies.
func (s Symbology) Known() bool { return s > SymbologyUnknown && s <= SymbologyUPCE }

// Options controls backend decoding behavior.
type Options struct {
	// Symbologies constrains the set of symbologies to search. Empty means all.
	Symbologies []Symbology

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool
}

// Point is a point in image coordinates.
type Point struct {
	X float64
	Y float64
}

// Result represents a barcode decoded from a still image.
type Result struct {
	Symbology Symbology
	Value     string
	Points    []Point         // Finder or end points reported by the decoder
	BBox      image.Rectangle // Bounding box derived from Points; empty if none
}

// Backend is a pluggable barcode decoder implementation.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// NewBackend returns the default backend implementation.
func NewBackend() Backend { return newZXingBackend() }
