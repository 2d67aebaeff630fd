package barcode

import (
	"strings"

	"golang.org/x/text/cases"
)

// AllFormats is the sentinel name that requests every symbology.
const AllFormats = "allFormats"

// UnknownName is reported for symbologies outside the defined set.
const UnknownName = "unknown"

// symbologyNames is indexed by Symbology.
var symbologyNames = [...]string{
	SymbologyUnknown:    UnknownName,
	SymbologyAztec:      "aztec",
	SymbologyCodabar:    "codabar",
	SymbologyCode128:    "code128",
	SymbologyCode39:     "code39",
	SymbologyCode93:     "code93",
	SymbologyDataMatrix: "dataMatrix",
	SymbologyEAN13:      "ean13",
	SymbologyEAN8:       "ean8",
	SymbologyITF:        "itf",
	SymbologyPDF417:     "pdf417",
	SymbologyQRCode:     "qrCode",
	SymbologyUPCA:       "upca",
	SymbologyUPCE:       "upce",
}

// nameAliases are spellings accepted in addition to the canonical names.
var nameAliases = map[string]Symbology{
	"qr":              SymbologyQRCode,
	"qr-code":         SymbologyQRCode,
	"data-matrix":     SymbologyDataMatrix,
	"code-128":        SymbologyCode128,
	"code-39":         SymbologyCode39,
	"code-93":         SymbologyCode93,
	"ean-8":           SymbologyEAN8,
	"ean-13":          SymbologyEAN13,
	"upc-a":           SymbologyUPCA,
	"upc-e":           SymbologyUPCE,
	"pdf-417":         SymbologyPDF417,
	"interleaved2of5": SymbologyITF,
	"i2/5":            SymbologyITF,
}

// byFoldedName maps case-folded canonical names and aliases to symbologies.
var byFoldedName = func() map[string]Symbology {
	m := make(map[string]Symbology, len(symbologyNames)+len(nameAliases))
	for s, name := range symbologyNames {
		if Symbology(s) == SymbologyUnknown {
			continue
		}
		m[fold(name)] = Symbology(s)
	}
	for alias, s := range nameAliases {
		m[fold(alias)] = s
	}
	return m
}()

// fold normalizes a name for case-insensitive comparison.
// A Caser is stateful, so a fresh one is used per call.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// NameToSymbology resolves a user-facing format name. Unknown names,
// including "unknown" and the "allFormats" sentinel, return false.
func NameToSymbology(name string) (Symbology, bool) {
	s, ok := byFoldedName[fold(name)]
	return s, ok
}

// SymbologyToName returns the canonical name of s, or "unknown".
func SymbologyToName(s Symbology) string {
	if !s.Known() {
		return UnknownName
	}
	return symbologyNames[s]
}

// IsAllFormats reports whether name is the "allFormats" sentinel.
func IsAllFormats(name string) bool {
	return fold(name) == fold(AllFormats)
}

// AllSymbologies lists the concrete symbologies in table order.
func AllSymbologies() []Symbology {
	out := make([]Symbology, 0, len(symbologyNames)-1)
	for s := SymbologyAztec; s <= SymbologyUPCE; s++ {
		out = append(out, s)
	}
	return out
}

// CanonicalNames returns the canonical names of AllSymbologies.
func CanonicalNames() []string {
	all := AllSymbologies()
	out := make([]string, len(all))
	for i, s := range all {
		out[i] = SymbologyToName(s)
	}
	return out
}
