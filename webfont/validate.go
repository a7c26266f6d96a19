package webfont

import (
	"bytes"
	"fmt"
	"unicode"

	"github.com/go-text/typesetting/font"

	"github.com/tsawler/pdfhtml/diag"
)

// Validate checks that a browser can map text to the program: it must parse
// as an sfnt and carry a Unicode cmap with at least one printable code point.
// It returns the number of printable code points mapped.
func Validate(program []byte) (int, error) {
	face, err := font.ParseTTF(bytes.NewReader(program))
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	if face.Cmap == nil {
		return 0, diag.ErrNoUnicodeCmap
	}
	n := 0
	it := face.Cmap.Iter()
	for it.Next() {
		r, gid := it.Char()
		if gid == 0 || unicode.IsControl(r) || r == unicode.ReplacementChar {
			continue
		}
		n++
	}
	if n == 0 {
		return 0, diag.ErrNoUnicodeCmap
	}
	return n, nil
}
