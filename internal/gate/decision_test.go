package gate

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/MeKo-Tech/scangate/internal/barcode"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFormatFilter(t *testing.T) {
	t.Run("zero value is unrestricted", func(t *testing.T) {
		var f FormatFilter
		assert.True(t, f.Unrestricted())
		assert.True(t, f.Allows(barcode.SymbologyUnknown))
		assert.Equal(t, []string{"allFormats"}, f.Names())
	})

	t.Run("sentinel wins over concrete names", func(t *testing.T) {
		f, bad := NewFormatFilter("qrCode", "allFormats")
		assert.Empty(t, bad)
		assert.True(t, f.Allows(barcode.SymbologyEAN13))
		assert.True(t, f.Allows(barcode.SymbologyUnknown))
	})

	t.Run("allow-list", func(t *testing.T) {
		f, bad := NewFormatFilter("ean13", "upc-a", "nonsense")
		assert.Equal(t, []string{"nonsense"}, bad)
		assert.False(t, f.Unrestricted())
		assert.True(t, f.Allows(barcode.SymbologyEAN13))
		assert.True(t, f.Allows(barcode.SymbologyUPCA))
		assert.False(t, f.Allows(barcode.SymbologyUPCE))
		assert.False(t, f.Allows(barcode.SymbologyQRCode))
		assert.False(t, f.Allows(barcode.SymbologyUnknown))
		assert.Equal(t, []string{"ean13", "upca"}, f.Names())
	})

	t.Run("only unrecognized names stay unrestricted", func(t *testing.T) {
		f, bad := NewFormatFilter("maxicode", "unknown")
		assert.Len(t, bad, 2)
		assert.True(t, f.Unrestricted())
	})

	t.Run("unknown symbology never joins the list", func(t *testing.T) {
		f := FilterOf(barcode.SymbologyUnknown, barcode.SymbologyQRCode)
		assert.Equal(t, []barcode.Symbology{barcode.SymbologyQRCode}, f.Symbologies())
		assert.False(t, f.Allows(barcode.SymbologyUnknown))
	})

	t.Run("QR is not special-cased", func(t *testing.T) {
		f, _ := NewFormatFilter("ean8")
		assert.False(t, f.Allows(barcode.SymbologyQRCode))
		var all FormatFilter
		assert.True(t, all.Allows(barcode.SymbologyQRCode))
	})
}

func TestEvaluate_Order(t *testing.T) {
	qrOnly, _ := NewFormatFilter("qrCode")
	outside := NewDetection(barcode.SymbologyEAN13, boxAround(100), "4006381333931")

	// Format is checked before the viewport.
	assert.Equal(t, RejectFormat, Evaluate(outside, portrait(), qrOnly).Outcome)

	// Payload is checked before format and viewport.
	undecoded := outside
	undecoded.Payload = nil
	d := Evaluate(undecoded, portrait(), qrOnly)
	assert.Equal(t, RejectNoPayload, d.Outcome)
	assert.Equal(t, "ean13", d.Name)
	assert.Empty(t, d.Payload)
	assert.Nil(t, d.Event())
}

func TestEvaluate_EmptyPayloadIsDecoded(t *testing.T) {
	d := Evaluate(NewDetection(barcode.SymbologyCode128, boxAround(600), ""), portrait(), FormatFilter{})
	assert.Equal(t, Accept, d.Outcome)
	assert.Equal(t, map[string]string{"value": "", "type": "code128"}, d.Event())
}

func TestEngine_EvaluateAll(t *testing.T) {
	e := NewEngine(FilterOf(barcode.SymbologyQRCode, barcode.SymbologyEAN13))
	frame := []Detection{
		NewDetection(barcode.SymbologyEAN13, boxAround(50), "outside"),
		{Symbology: barcode.SymbologyQRCode, Box: &Box{Top: 590, Bottom: 610}},
		NewDetection(barcode.SymbologyPDF417, boxAround(600), "wrong format"),
		NewDetection(barcode.SymbologyQRCode, boxAround(600), "hit"),
		NewDetection(barcode.SymbologyEAN13, boxAround(650), "second hit"),
	}

	got := e.EvaluateAll(frame, portrait())
	want := []Decision{
		{Outcome: RejectOutOfViewport, Name: "ean13"},
		{Outcome: RejectNoPayload, Name: "qrCode"},
		{Outcome: RejectFormat, Name: "pdf417"},
		{Outcome: Accept, Name: "qrCode", Payload: "hit"},
		{Outcome: Accept, Name: "ean13", Payload: "second hit"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EvaluateAll mismatch (-want +got):\n%s", diff)
	}

	first, ok := FirstAccepted(got)
	require.True(t, ok)
	assert.Equal(t, "hit", first.Payload)

	_, ok = FirstAccepted(got[:3])
	assert.False(t, ok)
}

func TestEngine_Reconfigure(t *testing.T) {
	e := NewEngine(FormatFilter{})
	det := NewDetection(barcode.SymbologyEAN8, boxAround(600), "96385074")

	assert.True(t, e.Evaluate(det, portrait()).Accepted())

	e.Reconfigure(FilterOf(barcode.SymbologyQRCode))
	assert.Equal(t, RejectFormat, e.Supply(det, portrait()).Outcome)
	assert.Equal(t, []string{"qrCode"}, e.Filter().Names())

	e.Reconfigure(AllFormats())
	assert.True(t, e.Supply(det, portrait()).Accepted())
}

func TestEngine_ConcurrentReconfigure(t *testing.T) {
	e := NewEngine(FormatFilter{})
	det := NewDetection(barcode.SymbologyQRCode, boxAround(600), "x")
	filters := []FormatFilter{FilterOf(barcode.SymbologyQRCode), AllFormats(), FilterOf(barcode.SymbologyEAN13)}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if i == 0 {
					e.Reconfigure(filters[j%len(filters)])
					continue
				}
				d := e.Evaluate(det, portrait())
				if d.Outcome != Accept && d.Outcome != RejectFormat {
					t.Errorf("unexpected outcome %v", d.Outcome)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestOutcome_JSON(t *testing.T) {
	d := Decision{Outcome: Accept, Name: "qrCode", Payload: "abc"}
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"outcome":"accept","type":"qrCode","value":"abc"}`, string(data))

	// An empty payload is still a decoded value.
	data, err = json.Marshal(Decision{Outcome: Accept, Name: "qrCode"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"outcome":"accept","type":"qrCode","value":""}`, string(data))

	data, err = yaml.Marshal(Decision{Outcome: Accept, Name: "ean13"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `value: ""`)

	data, err = json.Marshal(Decision{Outcome: RejectFormat, Name: "ean13", Payload: "ignored"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"outcome":"reject_format","type":"ean13"}`, string(data))

	var back Decision
	require.NoError(t, json.Unmarshal([]byte(`{"outcome":"reject_out_of_viewport","type":"ean8"}`), &back))
	assert.Equal(t, Decision{Outcome: RejectOutOfViewport, Name: "ean8"}, back)

	assert.Error(t, json.Unmarshal([]byte(`{"outcome":"maybe"}`), &back))
	_, err = json.Marshal(Decision{})
	assert.Error(t, err)
	assert.Equal(t, "outcome(0)", Outcome(0).String())
}
