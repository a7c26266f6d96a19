package font

import (
	"unicode"

	"golang.org/x/text/encoding/charmap"

	"github.com/tsawler/pdfhtml/core"
)

// Encoding maps the 256 codes of a simple font to glyph names.
type Encoding struct {
	// Base is the base encoding name, or "" when the font's built-in
	// encoding applies.
	Base  string
	Names [256]string
	// Explicit marks codes whose name comes from an explicit /Encoding name
	// or /Differences rather than the implicit StandardEncoding fallback.
	Explicit [256]bool
}

// NewEncoding returns the named base encoding. Unknown names give an empty
// encoding.
func NewEncoding(base string) *Encoding {
	e := &Encoding{Base: base}
	switch base {
	case "StandardEncoding":
		e.Names = standardEncoding
	case "WinAnsiEncoding":
		e.fromCharmap(charmap.Windows1252)
	case "MacRomanEncoding":
		e.fromCharmap(charmap.Macintosh)
	}
	return e
}

func (e *Encoding) fromCharmap(cm *charmap.Charmap) {
	for c := 32; c < 256; c++ {
		r := cm.DecodeByte(byte(c))
		if r == unicode.ReplacementChar || unicode.IsControl(r) {
			continue
		}
		e.Names[c] = RuneName(r)
	}
}

// parseEncoding builds the encoding of a simple font from its /Encoding
// entry. A missing entry or missing /BaseEncoding falls back to
// StandardEncoding for non-symbolic fonts, marked implicit.
func parseEncoding(obj core.Object, symbolic bool, r core.ReferenceResolver) *Encoding {
	obj = resolve(obj, r)
	implicit := func() *Encoding {
		if symbolic {
			return &Encoding{}
		}
		e := NewEncoding("StandardEncoding")
		e.Base = ""
		return e
	}

	switch v := obj.(type) {
	case core.Name:
		e := NewEncoding(string(v))
		e.markExplicit()
		return e
	case core.Dict:
		var e *Encoding
		if base, ok := resolve(v.Get("BaseEncoding"), r).(core.Name); ok {
			e = NewEncoding(string(base))
			e.markExplicit()
		} else {
			e = implicit()
		}
		if diffs, ok := resolve(v.Get("Differences"), r).(core.Array); ok {
			e.applyDifferences(diffs)
		}
		return e
	}
	return implicit()
}

func (e *Encoding) markExplicit() {
	for c, n := range e.Names {
		e.Explicit[c] = n != ""
	}
}

// applyDifferences applies a /Differences array: a number sets the next
// code, and each following name fills one code.
func (e *Encoding) applyDifferences(diffs core.Array) {
	code := -1
	for _, item := range diffs {
		switch v := item.(type) {
		case core.Int:
			code = int(v)
		case core.Name:
			if code >= 0 && code < 256 {
				e.Names[code] = string(v)
				e.Explicit[code] = true
			}
			code++
		}
	}
}

// Name returns the glyph name for code.
func (e *Encoding) Name(code uint32) string {
	if e == nil || code > 255 {
		return ""
	}
	return e.Names[code]
}

// Text resolves code to text through its glyph name. The source is
// NameUnknown when the code has no usable name.
func (e *Encoding) Text(code uint32) (string, NameSource, bool) {
	name := e.Name(code)
	if name == "" {
		return "", NameUnknown, false
	}
	s, src := LookupGlyphName(name)
	return s, src, e.Explicit[code]
}

// standardEncoding is Adobe StandardEncoding.
var standardEncoding = func() [256]string {
	var n [256]string
	ascii := []string{
		"space", "exclam", "quotedbl", "numbersign", "dollar", "percent", "ampersand", "quoteright",
		"parenleft", "parenright", "asterisk", "plus", "comma", "hyphen", "period", "slash",
		"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
		"colon", "semicolon", "less", "equal", "greater", "question", "at",
	}
	copy(n[32:], ascii)
	for c := 'A'; c <= 'Z'; c++ {
		n[c] = string(c)
	}
	copy(n[91:], []string{"bracketleft", "backslash", "bracketright", "asciicircum", "underscore", "quoteleft"})
	for c := 'a'; c <= 'z'; c++ {
		n[c] = string(c)
	}
	copy(n[123:], []string{"braceleft", "bar", "braceright", "asciitilde"})
	high := map[int]string{
		161: "exclamdown", 162: "cent", 163: "sterling", 164: "fraction", 165: "yen",
		166: "florin", 167: "section", 168: "currency", 169: "quotesingle",
		170: "quotedblleft", 171: "guillemotleft", 172: "guilsinglleft",
		173: "guilsinglright", 174: "fi", 175: "fl", 177: "endash", 178: "dagger",
		179: "daggerdbl", 180: "periodcentered", 182: "paragraph", 183: "bullet",
		184: "quotesinglbase", 185: "quotedblbase", 186: "quotedblright",
		187: "guillemotright", 188: "ellipsis", 189: "perthousand", 191: "questiondown",
		193: "grave", 194: "acute", 195: "circumflex", 196: "tilde", 197: "macron",
		198: "breve", 199: "dotaccent", 200: "dieresis", 202: "ring", 203: "cedilla",
		205: "hungarumlaut", 206: "ogonek", 207: "caron", 208: "emdash", 225: "AE",
		227: "ordfeminine", 232: "Lslash", 233: "Oslash", 234: "OE", 235: "ordmasculine",
		241: "ae", 245: "dotlessi", 248: "lslash", 249: "oslash", 250: "oe", 251: "germandbls",
	}
	for c, name := range high {
		n[c] = name
	}
	return n
}()
