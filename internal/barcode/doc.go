// Package barcode defines the barcode symbologies understood by scangate,
// the tables that translate them to user-facing names and to the native
// format identifiers of the detector SDKs (ML Kit, Apple Vision, ZXing),
// and a still-image decoder backend built on gozxing.
//
// Name lookups are partial: an unrecognized name is reported with a false
// second return value and must be treated as "do not restrict". Symbology to
// name is total and falls back to "unknown".
package barcode
