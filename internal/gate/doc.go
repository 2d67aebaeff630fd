// Package gate decides whether a barcode detection reported by a camera
// pipeline is surfaced to the application.
//
// A detection passes when its payload was decoded, its symbology satisfies
// the configured FormatFilter, and the vertical center of its bounding box
// lies inside the on-screen scan-window overlay once that overlay has been
// mapped into image coordinates (accounting for sensor rotation).
//
// Evaluation never fails: every malformed input maps to a rejecting
// Decision. The Engine is safe for concurrent use; its only state is the
// current FormatFilter, swapped atomically by Reconfigure.
package gate
