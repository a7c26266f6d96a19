package fontfile

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/tsawler/pdfhtml/model"
)

func (f *Font) parseHead(b []byte) error {
	if len(b) < 54 {
		return fmt.Errorf("head table is %d bytes: %w", len(b), ErrTruncated)
	}
	f.UnitsPerEm = binary.BigEndian.Uint16(b[18:])
	if f.UnitsPerEm == 0 {
		f.UnitsPerEm = 1000
	}
	for i := range f.BBox {
		f.BBox[i] = int16(binary.BigEndian.Uint16(b[36+2*i:]))
	}
	f.IndexToLocFormat = int16(binary.BigEndian.Uint16(b[50:]))
	return nil
}

func (f *Font) parseHhea(b []byte) error {
	if len(b) < 36 {
		return fmt.Errorf("hhea table is %d bytes: %w", len(b), ErrTruncated)
	}
	f.Ascent = int16(binary.BigEndian.Uint16(b[4:]))
	f.Descent = int16(binary.BigEndian.Uint16(b[6:]))
	f.LineGap = int16(binary.BigEndian.Uint16(b[8:]))
	f.NumHMetrics = binary.BigEndian.Uint16(b[34:])
	return nil
}

// parseHmtx expands the table to one metric per glyph. Trailing lsb values
// that some producers omit are treated as zero.
func (f *Font) parseHmtx(b []byte) error {
	n := int(f.NumHMetrics)
	if n == 0 {
		return nil
	}
	if n > f.NumGlyphs || len(b) < 4*n {
		return fmt.Errorf("hmtx has %d bytes for %d metrics: %w", len(b), n, ErrBadOffsets)
	}
	f.Metrics = make([]HMetric, f.NumGlyphs)
	for i := 0; i < n; i++ {
		f.Metrics[i] = HMetric{
			Advance: binary.BigEndian.Uint16(b[4*i:]),
			LSB:     int16(binary.BigEndian.Uint16(b[4*i+2:])),
		}
	}
	last := f.Metrics[n-1].Advance
	for i := n; i < f.NumGlyphs; i++ {
		f.Metrics[i].Advance = last
		if off := 4*n + 2*(i-n); off+2 <= len(b) {
			f.Metrics[i].LSB = int16(binary.BigEndian.Uint16(b[off:]))
		}
	}
	return nil
}

// parseGlyf reads loca and records each glyph's range. A range outside glyf
// marks that glyph missing; a loca table too short for numGlyphs is an
// error.
func (f *Font) parseGlyf() error {
	loca, hasLoca := f.Table("loca")
	glyf, hasGlyf := f.Table("glyf")
	if !hasLoca || !hasGlyf {
		return fmt.Errorf("TrueType outlines need loca and glyf: %w", ErrBadOffsets)
	}
	size := 2
	if f.IndexToLocFormat != 0 {
		size = 4
	}
	if len(loca) < size*(f.NumGlyphs+1) {
		return fmt.Errorf("loca has %d bytes for %d glyphs: %w", len(loca), f.NumGlyphs, ErrTruncated)
	}
	at := func(i int) int {
		if size == 2 {
			return 2 * int(binary.BigEndian.Uint16(loca[2*i:]))
		}
		return int(binary.BigEndian.Uint32(loca[4*i:]))
	}

	f.Glyphs = make([]GlyphData, f.NumGlyphs)
	for gid := range f.Glyphs {
		start, end := at(gid), at(gid+1)
		g := &f.Glyphs[gid]
		if start > end || end > len(glyf) {
			g.Missing = true
			continue
		}
		g.Offset, g.Length = start, end-start
		if g.Length < 10 {
			continue
		}
		if int16(binary.BigEndian.Uint16(glyf[start:])) < 0 {
			g.Composite = true
			g.Components = compositeComponents(glyf[start:end])
		}
	}
	return nil
}

// Composite glyph flags.
const (
	argsAreWords    = 0x0001
	haveScale       = 0x0008
	moreComponents  = 0x0020
	haveXYScale     = 0x0040
	haveTwoByTwo    = 0x0080
	compositeHeader = 10
)

func compositeComponents(g []byte) []model.GID {
	var out []model.GID
	p := compositeHeader
	for p+4 <= len(g) {
		flags := binary.BigEndian.Uint16(g[p:])
		out = append(out, model.GID(binary.BigEndian.Uint16(g[p+2:])))
		p += 4
		if flags&argsAreWords != 0 {
			p += 4
		} else {
			p += 2
		}
		switch {
		case flags&haveScale != 0:
			p += 2
		case flags&haveXYScale != 0:
			p += 4
		case flags&haveTwoByTwo != 0:
			p += 8
		}
		if flags&moreComponents == 0 {
			break
		}
	}
	return out
}

// parsePostNames decodes format 2 glyph names. Other formats carry no names
// and yield nil.
func parsePostNames(b []byte, numGlyphs int) []string {
	if len(b) < 34 || binary.BigEndian.Uint32(b) != 0x00020000 {
		return nil
	}
	n := int(binary.BigEndian.Uint16(b[32:]))
	if len(b) < 34+2*n {
		return nil
	}
	var custom []string
	for p := 34 + 2*n; p < len(b); {
		l := int(b[p])
		if p+1+l > len(b) {
			break
		}
		custom = append(custom, string(b[p+1:p+1+l]))
		p += 1 + l
	}
	names := make([]string, numGlyphs)
	for gid := 0; gid < n && gid < numGlyphs; gid++ {
		idx := int(binary.BigEndian.Uint16(b[34+2*gid:]))
		switch {
		case idx < len(macGlyphNames):
			names[gid] = macGlyphNames[idx]
		case idx-len(macGlyphNames) < len(custom):
			names[gid] = custom[idx-len(macGlyphNames)]
		}
	}
	return names
}

// parseName picks the family (id 1) and PostScript (id 6) names, preferring
// Windows Unicode records over Macintosh Roman ones.
func (f *Font) parseName(b []byte) {
	if len(b) < 6 {
		return
	}
	count := int(binary.BigEndian.Uint16(b[2:]))
	storage := int(binary.BigEndian.Uint16(b[4:]))
	utf16 := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	rank := map[uint16]int{}
	for i := 0; i < count; i++ {
		rec := 6 + 12*i
		if rec+12 > len(b) {
			return
		}
		platform := binary.BigEndian.Uint16(b[rec:])
		encoding := binary.BigEndian.Uint16(b[rec+2:])
		id := binary.BigEndian.Uint16(b[rec+6:])
		length := int(binary.BigEndian.Uint16(b[rec+8:]))
		off := storage + int(binary.BigEndian.Uint16(b[rec+10:]))
		if id != 1 && id != 6 || off+length > len(b) {
			continue
		}
		raw := b[off : off+length]

		var s string
		r := 0
		switch {
		case platform == 3 && (encoding == 1 || encoding == 10), platform == 0:
			out, err := utf16.Bytes(raw)
			if err != nil {
				continue
			}
			s, r = string(out), 2
		case platform == 1 && encoding == 0:
			out, err := charmap.Macintosh.NewDecoder().Bytes(raw)
			if err != nil {
				continue
			}
			s, r = string(out), 1
		default:
			continue
		}
		if r <= rank[id] || s == "" {
			continue
		}
		rank[id] = r
		if id == 1 {
			f.Family = s
		} else {
			f.PostScriptName = s
		}
	}
}
