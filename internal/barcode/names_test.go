package barcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameToSymbology_CanonicalRoundTrip(t *testing.T) {
	for _, name := range CanonicalNames() {
		t.Run(name, func(t *testing.T) {
			s, ok := NameToSymbology(name)
			require.True(t, ok)
			assert.Equal(t, name, SymbologyToName(s))
		})
	}
}

func TestNameToSymbology(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Symbology
		wantOK bool
	}{
		{"canonical qr", "qrCode", SymbologyQRCode, true},
		{"case folded", "QRCODE", SymbologyQRCode, true},
		{"surrounding spaces", "  ean13 ", SymbologyEAN13, true},
		{"alias qr", "qr", SymbologyQRCode, true},
		{"alias upc-a", "UPC-A", SymbologyUPCA, true},
		{"alias upc-e", "upc-e", SymbologyUPCE, true},
		{"alias data-matrix", "data-matrix", SymbologyDataMatrix, true},
		{"alias interleaved", "interleaved2of5", SymbologyITF, true},
		{"unknown is not requestable", "unknown", SymbologyUnknown, false},
		{"sentinel is not a symbology", "allFormats", SymbologyUnknown, false},
		{"future format", "maxicode", SymbologyUnknown, false},
		{"empty", "", SymbologyUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NameToSymbology(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSymbologyToName_Total(t *testing.T) {
	assert.Equal(t, "unknown", SymbologyToName(SymbologyUnknown))
	assert.Equal(t, "unknown", SymbologyToName(Symbology(-3)))
	assert.Equal(t, "unknown", SymbologyToName(Symbology(999)))
	assert.Equal(t, "upca", SymbologyUPCA.String())
	assert.Equal(t, "upce", SymbologyUPCE.String())
	assert.Equal(t, "dataMatrix", SymbologyDataMatrix.String())
}

func TestAllSymbologies(t *testing.T) {
	all := AllSymbologies()
	assert.Len(t, all, 13)
	assert.NotContains(t, all, SymbologyUnknown)
	assert.Equal(t, []string{
		"aztec", "codabar", "code128", "code39", "code93", "dataMatrix",
		"ean13", "ean8", "itf", "pdf417", "qrCode", "upca", "upce",
	}, CanonicalNames())
}

func TestIsAllFormats(t *testing.T) {
	assert.True(t, IsAllFormats("allFormats"))
	assert.True(t, IsAllFormats("ALLFORMATS"))
	assert.False(t, IsAllFormats("all"))
	assert.False(t, IsAllFormats("qrCode"))
}
