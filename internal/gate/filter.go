package gate

import "github.com/MeKo-Tech/scangate/internal/barcode"

// FormatFilter is an immutable allow-list of symbologies. The zero value is
// unrestricted and accepts every symbology, including unknown ones.
type FormatFilter struct {
	all bool
	set map[barcode.Symbology]struct{}
}

// AllFormats returns an unrestricted filter.
func AllFormats() FormatFilter { return FormatFilter{all: true} }

// NewFormatFilter builds a filter from user-facing names. The "allFormats"
// sentinel makes the filter unrestricted. Names that do not resolve are
// returned in unrecognized and never restrict the filter, so a list made only
// of unrecognized names is unrestricted.
func NewFormatFilter(names ...string) (f FormatFilter, unrecognized []string) {
	var syms []barcode.Symbology
	all := false
	for _, n := range names {
		if barcode.IsAllFormats(n) {
			all = true
			continue
		}
		s, ok := barcode.NameToSymbology(n)
		if !ok {
			unrecognized = append(unrecognized, n)
			continue
		}
		syms = append(syms, s)
	}
	if all {
		return AllFormats(), unrecognized
	}
	return FilterOf(syms...), unrecognized
}

// FilterOf builds a filter from symbologies. SymbologyUnknown is ignored:
// an unrecognized format never satisfies a concrete allow-list.
func FilterOf(symbologies ...barcode.Symbology) FormatFilter {
	set := make(map[barcode.Symbology]struct{}, len(symbologies))
	for _, s := range symbologies {
		if s.Known() {
			set[s] = struct{}{}
		}
	}
	if len(set) == 0 {
		return FormatFilter{}
	}
	return FormatFilter{set: set}
}

// Unrestricted reports whether every symbology is accepted.
func (f FormatFilter) Unrestricted() bool { return f.all || len(f.set) == 0 }

// Allows reports whether detections of symbology s may be reported.
func (f FormatFilter) Allows(s barcode.Symbology) bool {
	if f.Unrestricted() {
		return true
	}
	_, ok := f.set[s]
	return ok
}

// Symbologies returns the allowed symbologies in table order, or nil when
// the filter is unrestricted.
func (f FormatFilter) Symbologies() []barcode.Symbology {
	if f.Unrestricted() {
		return nil
	}
	var out []barcode.Symbology
	for _, s := range barcode.AllSymbologies() {
		if _, ok := f.set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Names returns the canonical names of the allowed symbologies, or
// ["allFormats"] when the filter is unrestricted.
func (f FormatFilter) Names() []string {
	if f.Unrestricted() {
		return []string{barcode.AllFormats}
	}
	syms := f.Symbologies()
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = barcode.SymbologyToName(s)
	}
	return out
}
