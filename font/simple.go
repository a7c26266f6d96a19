package font

import (
	"fmt"

	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/model"
)

// loadSimple reads a Type1, MMType1, TrueType or Type3 font dictionary.
func (d *Descriptor) loadSimple(dict core.Dict, r core.ReferenceResolver) error {
	switch d.Subtype {
	case "Type1", "MMType1", "TrueType", "Type3", "":
	default:
		return fmt.Errorf("unsupported font subtype %q", d.Subtype)
	}

	d.loadDescriptor(resolveDict(dict.Get("FontDescriptor"), r), r)
	if err := d.parseWidths(dict, r); err != nil {
		return err
	}
	if d.Subtype == "Type3" {
		if m, ok := resolve(dict.Get("FontMatrix"), r).(core.Array); ok {
			if vals, ok := m.Numbers(); ok && len(vals) == 6 {
				d.FontMatrix = model.Matrix{vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]}
			}
		}
	}

	d.Encoding = parseEncoding(dict.Get("Encoding"), d.Symbolic(), r)
	if !d.Embedded() && len(d.Widths) == 0 {
		d.standard = standardWidths(d.BaseFont)
	}
	return nil
}

// parseWidths reads /FirstChar and /Widths. A malformed entry is an error
// since glyph positions depend on it.
func (d *Descriptor) parseWidths(dict core.Dict, r core.ReferenceResolver) error {
	if fc, ok := core.Number(resolve(dict.Get("FirstChar"), r)); ok {
		d.FirstChar = int(fc)
	}
	obj := dict.Get("Widths")
	if obj == nil {
		return nil
	}
	arr, ok := resolve(obj, r).(core.Array)
	if !ok {
		return fmt.Errorf("widths is not an array: %T", resolve(obj, r))
	}
	d.Widths = make([]float64, len(arr))
	for i, w := range arr {
		v, ok := core.Number(resolve(w, r))
		if !ok {
			return fmt.Errorf("invalid width type at index %d: %T", i, w)
		}
		d.Widths[i] = v
	}
	return nil
}
