package gate

import (
	"encoding/json"
	"fmt"

	"github.com/MeKo-Tech/scangate/internal/barcode"
)

// Outcome classifies a Decision.
type Outcome int

const (
	Accept Outcome = iota + 1
	RejectNoPayload
	RejectFormat
	RejectOutOfViewport
)

var outcomeNames = map[Outcome]string{
	Accept:              "accept",
	RejectNoPayload:     "reject_no_payload",
	RejectFormat:        "reject_format",
	RejectOutOfViewport: "reject_out_of_viewport",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	if _, ok := outcomeNames[o]; !ok {
		return nil, fmt.Errorf("invalid outcome %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(b []byte) error {
	for k, v := range outcomeNames {
		if v == string(b) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("invalid outcome %q", string(b))
}

// Decision is the result of evaluating one detection.
type Decision struct {
	Outcome Outcome `json:"outcome" yaml:"outcome"`
	// Name is the canonical symbology name, set for every outcome.
	Name string `json:"type" yaml:"type"`
	// Payload is the decoded value; only set when accepted.
	Payload string `json:"value,omitempty" yaml:"value,omitempty"`
}

// decisionWire is the serialized Decision. Value is present exactly when the
// decision is accepted, even for an empty payload.
type decisionWire struct {
	Outcome Outcome `json:"outcome" yaml:"outcome"`
	Name    string  `json:"type" yaml:"type"`
	Value   *string `json:"value,omitempty" yaml:"value,omitempty"`
}

func (d Decision) wire() decisionWire {
	w := decisionWire{Outcome: d.Outcome, Name: d.Name}
	if d.Accepted() {
		value := d.Payload
		w.Value = &value
	}
	return w
}

// MarshalJSON implements json.Marshaler.
func (d Decision) MarshalJSON() ([]byte, error) { return json.Marshal(d.wire()) }

// MarshalYAML implements yaml.Marshaler.
func (d Decision) MarshalYAML() (interface{}, error) { return d.wire(), nil }

// Accepted reports whether the detection should be surfaced.
func (d Decision) Accepted() bool { return d.Outcome == Accept }

// Event returns the application-facing payload {"value", "type"} of an
// accepted decision, or nil.
func (d Decision) Event() map[string]string {
	if !d.Accepted() {
		return nil
	}
	return map[string]string{"value": d.Payload, "type": d.Name}
}

// Evaluate checks payload presence, then the format policy, then the
// viewport. It never fails: every input maps to a Decision.
func Evaluate(d Detection, v Viewport, f FormatFilter) Decision {
	name := barcode.SymbologyToName(d.Symbology)
	switch {
	case d.Payload == nil:
		return Decision{Outcome: RejectNoPayload, Name: name}
	case !f.Allows(d.Symbology):
		return Decision{Outcome: RejectFormat, Name: name}
	case !InViewport(d, v):
		return Decision{Outcome: RejectOutOfViewport, Name: name}
	}
	return Decision{Outcome: Accept, Name: name, Payload: *d.Payload}
}

// FirstAccepted returns the first accepted decision.
func FirstAccepted(ds []Decision) (Decision, bool) {
	for _, d := range ds {
		if d.Accepted() {
			return d, true
		}
	}
	return Decision{}, false
}
