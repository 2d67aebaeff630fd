package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoBarcode is returned when no reader finds a barcode in the image.
var ErrNoBarcode = errors.New("barcode: no barcode found")

type zxingBackend struct{}

func newZXingBackend() Backend { return &zxingBackend{} }

// readerFactories lists the gozxing readers per symbology. Readers are not
// safe for concurrent use, so each Decode builds its own.
var readerFactories = []struct {
	symbology Symbology
	newReader func() gozxing.Reader
}{
	{SymbologyQRCode, func() gozxing.Reader { return qrcode.NewQRCodeReader() }},
	{SymbologyDataMatrix, func() gozxing.Reader { return datamatrix.NewDataMatrixReader() }},
	{SymbologyAztec, func() gozxing.Reader { return aztec.NewAztecReader() }},
	{SymbologyCode128, func() gozxing.Reader { return oned.NewCode128Reader() }},
	{SymbologyCode39, func() gozxing.Reader { return oned.NewCode39Reader() }},
	{SymbologyCode93, func() gozxing.Reader { return oned.NewCode93Reader() }},
	{SymbologyCodabar, func() gozxing.Reader { return oned.NewCodaBarReader() }},
	{SymbologyEAN13, func() gozxing.Reader { return oned.NewEAN13Reader() }},
	{SymbologyEAN8, func() gozxing.Reader { return oned.NewEAN8Reader() }},
	{SymbologyUPCA, func() gozxing.Reader { return oned.NewUPCAReader() }},
	{SymbologyUPCE, func() gozxing.Reader { return oned.NewUPCEReader() }},
	{SymbologyITF, func() gozxing.Reader { return oned.NewITFReader() }},
}

func (b *zxingBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("decode: %w", ErrNoBarcode)
	}

	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("binarize image: %w", err)
	}

	hints := make(map[gozxing.DecodeHintType]interface{})
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	wanted := make(map[Symbology]bool, len(opts.Symbologies))
	for _, s := range opts.Symbologies {
		wanted[s] = true
	}

	var selected []Symbology
	for _, rf := range readerFactories {
		if len(wanted) == 0 || wanted[rf.symbology] {
			selected = append(selected, rf.symbology)
		}
	}
	if formats := possibleFormats(selected); len(formats) > 0 {
		hints[gozxing.DecodeHintType_POSSIBLE_FORMATS] = formats
	}

	seen := make(map[string]bool)
	var out []Result
	for _, rf := range readerFactories {
		if len(wanted) > 0 && !wanted[rf.symbology] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r, err := rf.newReader().Decode(bitmap, hints)
		if err != nil || r == nil {
			continue
		}

		res := toResult(r)
		key := SymbologyToName(res.Symbology) + "\x00" + res.Value
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, res)
	}

	if len(out) == 0 {
		return nil, ErrNoBarcode
	}
	return out, nil
}

// possibleFormats lists the gozxing formats of symbologies, skipping those
// gozxing has no format for.
func possibleFormats(symbologies []Symbology) []gozxing.BarcodeFormat {
	var out []gozxing.BarcodeFormat
	for _, s := range symbologies {
		if f, ok := ZXingFormat(s); ok {
			out = append(out, f)
		}
	}
	return out
}

func toResult(r *gozxing.Result) Result {
	pts := r.GetResultPoints()
	points := make([]Point, 0, len(pts))
	for _, p := range pts {
		if p == nil {
			continue
		}
		points = append(points, Point{X: p.GetX(), Y: p.GetY()})
	}
	return Result{
		Symbology: FromZXing(r.GetBarcodeFormat()),
		Value:     r.GetText(),
		Points:    points,
		BBox:      rectFromPoints(points),
	}
}

// rectFromPoints returns the integer bounding rectangle of pts. One-dimensional
// symbols report only two end points on the scan line, which yields a
// zero-height rectangle.
func rectFromPoints(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(int(minX), int(minY), int(maxX)+1, int(maxY)+1)
}

var zxingFormats = map[gozxing.BarcodeFormat]Symbology{
	gozxing.BarcodeFormat_AZTEC:       SymbologyAztec,
	gozxing.BarcodeFormat_CODABAR:     SymbologyCodabar,
	gozxing.BarcodeFormat_CODE_128:    SymbologyCode128,
	gozxing.BarcodeFormat_CODE_39:     SymbologyCode39,
	gozxing.BarcodeFormat_CODE_93:     SymbologyCode93,
	gozxing.BarcodeFormat_DATA_MATRIX: SymbologyDataMatrix,
	gozxing.BarcodeFormat_EAN_13:      SymbologyEAN13,
	gozxing.BarcodeFormat_EAN_8:       SymbologyEAN8,
	gozxing.BarcodeFormat_ITF:         SymbologyITF,
	gozxing.BarcodeFormat_PDF_417:     SymbologyPDF417,
	gozxing.BarcodeFormat_QR_CODE:     SymbologyQRCode,
	gozxing.BarcodeFormat_UPC_A:       SymbologyUPCA,
	gozxing.BarcodeFormat_UPC_E:       SymbologyUPCE,
}

// zxingNames are the ZXing BarcodeFormat enum names.
var zxingNames = map[string]Symbology{
	"AZTEC":       SymbologyAztec,
	"CODABAR":     SymbologyCodabar,
	"CODE_128":    SymbologyCode128,
	"CODE_39":     SymbologyCode39,
	"CODE_93":     SymbologyCode93,
	"DATA_MATRIX": SymbologyDataMatrix,
	"EAN_13":      SymbologyEAN13,
	"EAN_8":       SymbologyEAN8,
	"ITF":         SymbologyITF,
	"PDF_417":     SymbologyPDF417,
	"QR_CODE":     SymbologyQRCode,
	"UPC_A":       SymbologyUPCA,
	"UPC_E":       SymbologyUPCE,
}

// FromZXing maps a gozxing format to a symbology.
func FromZXing(f gozxing.BarcodeFormat) Symbology {
	if s, ok := zxingFormats[f]; ok {
		return s
	}
	return SymbologyUnknown
}

// ZXingFormat returns the gozxing format for s.
func ZXingFormat(s Symbology) (gozxing.BarcodeFormat, bool) {
	for f, sym := range zxingFormats {
		if sym == s {
			return f, true
		}
	}
	return 0, false
}

func fromZXingName(name string) Symbology {
	if s, ok := zxingNames[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return s
	}
	return SymbologyUnknown
}

// ZXingName returns the ZXing enum name for s, e.g. "QR_CODE".
func ZXingName(s Symbology) (string, bool) {
	for name, sym := range zxingNames {
		if sym == s {
			return name, true
		}
	}
	return "", false
}
