package barcode

import (
	"strconv"
	"strings"
)

// ML Kit barcode format constants (com.google.mlkit.vision.barcode.common.Barcode).
const (
	MLKitUnknown    = -1
	MLKitAllFormats = 0
	MLKitCode128    = 1
	MLKitCode39     = 2
	MLKitCode93     = 4
	MLKitCodabar    = 8
	MLKitDataMatrix = 16
	MLKitEAN13      = 32
	MLKitEAN8       = 64
	MLKitITF        = 128
	MLKitQRCode     = 256
	MLKitUPCA       = 512
	MLKitUPCE       = 1024
	MLKitPDF417     = 2048
	MLKitAztec      = 4096
)

var mlkitFormats = map[Symbology]int{
	SymbologyAztec:      MLKitAztec,
	SymbologyCodabar:    MLKitCodabar,
	SymbologyCode128:    MLKitCode128,
	SymbologyCode39:     MLKitCode39,
	SymbologyCode93:     MLKitCode93,
	SymbologyDataMatrix: MLKitDataMatrix,
	SymbologyEAN13:      MLKitEAN13,
	SymbologyEAN8:       MLKitEAN8,
	SymbologyITF:        MLKitITF,
	SymbologyPDF417:     MLKitPDF417,
	SymbologyQRCode:     MLKitQRCode,
	SymbologyUPCA:       MLKitUPCA,
	SymbologyUPCE:       MLKitUPCE,
}

// MLKitFormat returns the ML Kit format constant for s.
func MLKitFormat(s Symbology) (int, bool) {
	f, ok := mlkitFormats[s]
	return f, ok
}

// FromMLKit maps an ML Kit format constant to a symbology.
func FromMLKit(format int) Symbology {
	for s, f := range mlkitFormats {
		if f == format {
			return s
		}
	}
	return SymbologyUnknown
}

// MLKitMask ORs the ML Kit constants of the given symbologies. An empty or
// fully unmappable list yields MLKitAllFormats.
func MLKitMask(symbologies []Symbology) int {
	mask := 0
	for _, s := range symbologies {
		if f, ok := mlkitFormats[s]; ok {
			mask |= f
		}
	}
	if mask == 0 {
		return MLKitAllFormats
	}
	return mask
}

// visionPrefix is the common prefix of VNBarcodeSymbology raw values.
const visionPrefix = "VNBarcodeSymbology"

// Vision reports UPC-A symbols as EAN-13, so upca has no entry.
var visionSymbologies = map[Symbology]string{
	SymbologyAztec:      visionPrefix + "Aztec",
	SymbologyCodabar:    visionPrefix + "Codabar",
	SymbologyCode128:    visionPrefix + "Code128",
	SymbologyCode39:     visionPrefix + "Code39",
	SymbologyCode93:     visionPrefix + "Code93",
	SymbologyDataMatrix: visionPrefix + "DataMatrix",
	SymbologyEAN13:      visionPrefix + "EAN13",
	SymbologyEAN8:       visionPrefix + "EAN8",
	SymbologyITF:        visionPrefix + "ITF14",
	SymbologyPDF417:     visionPrefix + "PDF417",
	SymbologyQRCode:     visionPrefix + "QR",
	SymbologyUPCE:       visionPrefix + "UPCE",
}

// VisionSymbology returns the VNBarcodeSymbology raw value for s.
func VisionSymbology(s Symbology) (string, bool) {
	v, ok := visionSymbologies[s]
	return v, ok
}

// FromVision maps a VNBarcodeSymbology raw value to a symbology. The
// "VNBarcodeSymbology" prefix is optional and case is ignored, so both
// "VNBarcodeSymbologyQR" and "qr" resolve.
func FromVision(symbology string) Symbology {
	want := fold(strings.TrimPrefix(strings.TrimSpace(symbology), visionPrefix))
	for s, v := range visionSymbologies {
		if fold(strings.TrimPrefix(v, visionPrefix)) == want {
			return s
		}
	}
	return SymbologyUnknown
}

// Vendor identifiers accepted by ParseVendorFormat.
const (
	VendorName   = "name"
	VendorMLKit  = "mlkit"
	VendorVision = "vision"
	VendorZXing  = "zxing"
)

// ParseVendorFormat resolves a vendor-native format value. Unrecognized
// vendors or values yield SymbologyUnknown.
func ParseVendorFormat(vendor, value string) Symbology {
	switch fold(vendor) {
	case VendorMLKit:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return SymbologyUnknown
		}
		return FromMLKit(n)
	case VendorVision:
		return FromVision(value)
	case VendorZXing:
		return fromZXingName(value)
	case VendorName, "":
		s, _ := NameToSymbology(value)
		return s
	default:
		return SymbologyUnknown
	}
}
