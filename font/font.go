package font

import (
	"fmt"

	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/fontfile"
	"github.com/tsawler/pdfhtml/model"
)

// Kind distinguishes simple fonts (one-byte codes) from composite Type0
// fonts.
type Kind int

const (
	Simple Kind = iota
	Composite
)

func (k Kind) String() string {
	if k == Composite {
		return "composite"
	}
	return "simple"
}

// ProgramKind is the kind of embedded font program, from the descriptor key
// that holds it and the stream's /Subtype.
type ProgramKind int

const (
	NoProgram ProgramKind = iota
	Type1Program          // FontFile
	TrueTypeProgram       // FontFile2
	CFFProgram            // FontFile3 /Type1C or /CIDFontType0C
	OpenTypeProgram       // FontFile3 /OpenType
)

func (k ProgramKind) String() string {
	switch k {
	case Type1Program:
		return "Type1"
	case TrueTypeProgram:
		return "TrueType"
	case CFFProgram:
		return "CFF"
	case OpenTypeProgram:
		return "OpenType"
	}
	return "none"
}

// Font descriptor flags.
const (
	FlagFixedPitch  = 1 << 0
	FlagSerif       = 1 << 1
	FlagSymbolic    = 1 << 2
	FlagNonsymbolic = 1 << 5
	FlagItalic      = 1 << 6
)

// Defaults for a missing /Ascent or /Descent, in em.
const (
	DefaultAscent  = 0.8
	DefaultDescent = -0.2
)

// Descriptor is everything the pipeline needs from a PDF font dictionary:
// how to split show-strings into codes, code widths, the code to GID path
// and the Unicode sources.
type Descriptor struct {
	Ref      model.FontRef
	Subtype  string
	BaseFont string
	Kind     Kind

	// Encoding is the simple-font encoding; nil for composite fonts.
	Encoding *Encoding
	// CMapName is the /Encoding name of a composite font, e.g. Identity-H.
	CMapName string
	// EncodingCMap is an embedded encoding CMap stream.
	EncodingCMap *CMap
	Vertical     bool

	// ToUnicode is the parsed ToUnicode CMap. ToUnicodeErr keeps the reason
	// a present stream was rejected.
	ToUnicode    *CMap
	ToUnicodeErr error

	CIDSystemInfo CIDSystemInfo
	// CIDToGID is the decoded CIDToGIDMap stream; nil means identity.
	CIDToGID []model.GID

	Flags           int
	Ascent, Descent float64 // in em
	FontBBox        [4]float64
	FontMatrix      model.Matrix // Type3 only

	FirstChar    int
	Widths       []float64
	MissingWidth float64
	W            []WidthRange
	DW           float64
	standard     map[rune]float64

	Program     []byte
	ProgramKind ProgramKind
	// ProgramErr is a *diag.FontExtractionError when an embedded program
	// could not be decoded or parsed.
	ProgramErr error
	Font       *fontfile.Font
}

// Load reads the font dictionary dict. It fails only when dict is not a
// usable font dictionary; problems with the embedded program are recorded in
// ProgramErr and a malformed ToUnicode in ToUnicodeErr.
func Load(dict core.Dict, ref model.FontRef, r core.ReferenceResolver) (*Descriptor, error) {
	if dict == nil {
		return nil, fmt.Errorf("font %s: not a dictionary", ref)
	}
	d := &Descriptor{
		Ref:        ref,
		Ascent:     DefaultAscent,
		Descent:    DefaultDescent,
		DW:         1000,
		FontMatrix: model.Matrix{0.001, 0, 0, 0.001, 0, 0},
	}
	if st, ok := dict.GetName("Subtype"); ok {
		d.Subtype = string(st)
	}
	d.BaseFont = extractName(resolve(dict.Get("BaseFont"), r))

	var err error
	if d.Subtype == "Type0" {
		d.Kind = Composite
		err = d.loadComposite(dict, r)
	} else {
		err = d.loadSimple(dict, r)
	}
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", ref, err)
	}

	if obj := dict.Get("ToUnicode"); obj != nil {
		if stream, ok := resolve(obj, r).(*core.Stream); ok {
			d.ToUnicode, d.ToUnicodeErr = ParseToUnicodeCMap(stream)
		}
	}
	return d, nil
}

// loadDescriptor reads a /FontDescriptor dictionary and its program.
func (d *Descriptor) loadDescriptor(fd core.Dict, r core.ReferenceResolver) {
	if fd == nil {
		return
	}
	if flags, ok := fd.GetInt("Flags"); ok {
		d.Flags = int(flags)
	}
	if v, ok := core.Number(resolve(fd.Get("Ascent"), r)); ok && v > 0 {
		d.Ascent = v / 1000
	}
	if v, ok := core.Number(resolve(fd.Get("Descent"), r)); ok && v != 0 {
		if v > 0 {
			v = -v
		}
		d.Descent = v / 1000
	}
	if box, ok := resolve(fd.Get("FontBBox"), r).(core.Array); ok {
		if vals, ok := box.Numbers(); ok && len(vals) == 4 {
			copy(d.FontBBox[:], vals)
		}
	}
	if v, ok := core.Number(resolve(fd.Get("MissingWidth"), r)); ok {
		d.MissingWidth = v
	}
	d.loadProgram(fd, r)
}

// Symbolic reports whether the descriptor marks the font symbolic.
func (d *Descriptor) Symbolic() bool {
	return d.Flags&FlagSymbolic != 0 && d.Flags&FlagNonsymbolic == 0
}

// Embedded reports whether the font carries a font program.
func (d *Descriptor) Embedded() bool { return d.ProgramKind != NoProgram }

// Usable reports whether the embedded program parsed.
func (d *Descriptor) Usable() bool {
	return d.Font != nil && d.ProgramErr == nil
}

// Codes splits a show-string into character codes: one byte for simple
// fonts, the encoding CMap's codespace for composite fonts with an embedded
// CMap, and two bytes otherwise.
func (d *Descriptor) Codes(b []byte) []Code {
	if d.Kind == Simple {
		return splitFixed(b, 1)
	}
	if d.EncodingCMap != nil {
		return d.EncodingCMap.Split(b, 2)
	}
	return splitFixed(b, 2)
}

// CID returns the CID selected by code. Identity and predefined CMaps map a
// code to the CID of the same value.
func (d *Descriptor) CID(code uint32) uint32 {
	if d.EncodingCMap != nil {
		if cid, ok := d.EncodingCMap.CID(code); ok {
			return cid
		}
	}
	return code
}

// Width returns the horizontal displacement of code in thousandths of text
// space units.
func (d *Descriptor) Width(code uint32) float64 {
	if d.Kind == Composite {
		return d.cidWidth(d.CID(code))
	}
	if i := int(code) - d.FirstChar; i >= 0 && i < len(d.Widths) {
		w := d.Widths[i]
		if d.Subtype == "Type3" {
			w *= d.FontMatrix[0] * 1000
		}
		return w
	}
	if d.standard != nil {
		if s, _, _ := d.Encoding.Text(code); s != "" {
			if w, ok := d.standard[[]rune(s)[0]]; ok {
				return w
			}
		}
	}
	if d.MissingWidth > 0 {
		return d.MissingWidth
	}
	if d.Font != nil {
		if gid, ok := d.GID(code); ok && d.Font.UnitsPerEm > 0 {
			return float64(d.Font.Advance(gid)) * 1000 / float64(d.Font.UnitsPerEm)
		}
	}
	return 0
}

// IsSpace reports whether code is the single-byte code 32 that word spacing
// applies to.
func IsSpace(c Code) bool { return c.Len == 1 && c.Value == 32 }

// GlyphName returns the encoding's glyph name for a simple-font code.
func (d *Descriptor) GlyphName(code uint32) string {
	if d.Kind == Composite {
		return ""
	}
	return d.Encoding.Name(code)
}

// extractionError wraps err as the font's extraction failure.
func (d *Descriptor) extractionError(err error) error {
	return &diag.FontExtractionError{Font: d.Ref, Err: err}
}

func resolve(obj core.Object, r core.ReferenceResolver) core.Object {
	for i := 0; i < 8; i++ {
		ref, ok := obj.(core.IndirectRef)
		if !ok || r == nil {
			return obj
		}
		next, err := r.ResolveReference(ref)
		if err != nil {
			return nil
		}
		obj = next
	}
	return obj
}

func resolveDict(obj core.Object, r core.ReferenceResolver) core.Dict {
	switch v := resolve(obj, r).(type) {
	case core.Dict:
		return v
	case *core.Stream:
		return v.Dict
	}
	return nil
}

// extractName extracts a name from a PDF object
func extractName(obj core.Object) string {
	switch v := obj.(type) {
	case core.Name:
		return string(v)
	case core.String:
		return string(v)
	}
	return ""
}

// getNumber extracts a numeric value from a PDF object
func getNumber(obj core.Object) float64 {
	v, _ := core.Number(obj)
	return v
}
