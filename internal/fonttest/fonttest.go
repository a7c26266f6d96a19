// Package fonttest builds small TrueType programs for tests. Every glyph is
// a rectangle or a composite of other glyphs, so outlines and ink are easy to
// predict.
package fonttest

import (
	"encoding/binary"
	"sort"

	"github.com/tsawler/pdfhtml/fontfile"
	"github.com/tsawler/pdfhtml/model"
)

// Glyph describes one glyph. A zero Box gives an empty outline (like a
// space); Components makes a composite glyph.
type Glyph struct {
	Name       string
	Rune       rune // 0 leaves the glyph out of the cmap
	Advance    uint16
	Box        [4]int16 // xMin, yMin, xMax, yMax
	Components []Component
}

// Component places another glyph inside a composite.
type Component struct {
	GID    model.GID
	DX, DY int16
}

// Font is a TrueType program under construction. Glyph index is GID.
type Font struct {
	Family     string
	UnitsPerEm uint16
	Ascent     int16
	Descent    int16
	Glyphs     []Glyph

	NoCmap bool
	NoPost bool
	// Missing lists glyphs whose loca range is made invalid.
	Missing []model.GID
}

// DefaultBox is the ink box of every rectangle glyph New creates.
var DefaultBox = [4]int16{50, 0, 550, 700}

// New returns a font with .notdef, space, and one rectangle glyph per
// distinct rune of text in first-seen order.
func New(family, text string) *Font {
	f := &Font{
		Family:     family,
		UnitsPerEm: 1000,
		Ascent:     800,
		Descent:    -200,
		Glyphs: []Glyph{
			{Name: ".notdef", Advance: 500, Box: [4]int16{50, 0, 450, 700}},
			{Name: "space", Rune: ' ', Advance: 250},
		},
	}
	for _, r := range text {
		if f.GID(r) == 0 {
			f.Glyphs = append(f.Glyphs, Rect(glyphName(r), r))
		}
	}
	return f
}

// Rect returns a rectangle glyph of width 600 mapped from r.
func Rect(name string, r rune) Glyph {
	return Glyph{Name: name, Rune: r, Advance: 600, Box: DefaultBox}
}

func glyphName(r rune) string {
	if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' {
		return string(r)
	}
	const hex = "0123456789ABCDEF"
	b := []byte("uni0000")
	for i := 0; i < 4; i++ {
		b[6-i] = hex[(r>>(4*i))&0xF]
	}
	return string(b)
}

// GID returns the glyph mapped from r, or 0.
func (f *Font) GID(r rune) model.GID {
	for i, g := range f.Glyphs {
		if r != 0 && g.Rune == r {
			return model.GID(i)
		}
	}
	return 0
}

// Add appends g and returns its GID.
func (f *Font) Add(g Glyph) model.GID {
	f.Glyphs = append(f.Glyphs, g)
	return model.GID(len(f.Glyphs) - 1)
}

// AddComposite appends a composite glyph built from comps.
func (f *Font) AddComposite(name string, r rune, comps ...Component) model.GID {
	box := [4]int16{}
	for i, c := range comps {
		b := f.Glyphs[c.GID].Box
		cb := [4]int16{b[0] + c.DX, b[1] + c.DY, b[2] + c.DX, b[3] + c.DY}
		if i == 0 {
			box = cb
			continue
		}
		box = [4]int16{min(box[0], cb[0]), min(box[1], cb[1]), max(box[2], cb[2]), max(box[3], cb[3])}
	}
	return f.Add(Glyph{Name: name, Rune: r, Advance: 1200, Box: box, Components: comps})
}

// Bytes serializes the font.
func (f *Font) Bytes() []byte {
	n := len(f.Glyphs)
	var glyf []byte
	offsets := make([]uint32, 0, n+1)
	metrics := make([]fontfile.HMetric, n)
	var advMax uint16
	for i, g := range f.Glyphs {
		offsets = append(offsets, uint32(len(glyf)))
		glyf = append(glyf, encodeGlyph(g)...)
		for len(glyf)%4 != 0 {
			glyf = append(glyf, 0)
		}
		metrics[i] = fontfile.HMetric{Advance: g.Advance, LSB: g.Box[0]}
		advMax = max(advMax, g.Advance)
	}
	offsets = append(offsets, uint32(len(glyf)))
	// A start past its end marks the glyph missing; the spare bytes keep the
	// previous glyph's stretched range inside glyf.
	glyf = append(glyf, 0, 0, 0, 0)
	for _, gid := range f.Missing {
		offsets[gid] = offsets[gid+1] + 2
	}

	tables := map[string][]byte{
		"head": f.head(),
		"hhea": fontfile.BuildHhea(nil, fontfile.Hhea{Ascent: f.Ascent, Descent: f.Descent, AdvanceMax: advMax, NumHMetrics: uint16(n)}),
		"maxp": maxp(n),
		"hmtx": fontfile.BuildHmtx(metrics),
		"loca": fontfile.BuildLoca(offsets),
		"glyf": glyf,
		"name": fontfile.BuildName(f.Family, f.Family+"-Regular"),
		"OS/2": f.os2(),
	}
	if !f.NoCmap {
		m := map[rune]model.GID{}
		for i, g := range f.Glyphs {
			if g.Rune != 0 {
				m[g.Rune] = model.GID(i)
			}
		}
		tables["cmap"] = fontfile.BuildCmap(m)
	}
	if !f.NoPost {
		tables["post"] = f.post()
	}
	return fontfile.Assemble(0x00010000, tables)
}

func (f *Font) head() []byte {
	b := make([]byte, 54)
	be := binary.BigEndian
	be.PutUint32(b[0:], 0x00010000)
	be.PutUint32(b[4:], 0x00010000)
	be.PutUint32(b[12:], 0x5F0F3CF5)
	be.PutUint16(b[16:], 0x000B)
	be.PutUint16(b[18:], f.UnitsPerEm)
	var box [4]int16
	for i, g := range f.Glyphs {
		if i == 0 {
			box = g.Box
			continue
		}
		box = [4]int16{min(box[0], g.Box[0]), min(box[1], g.Box[1]), max(box[2], g.Box[2]), max(box[3], g.Box[3])}
	}
	for i, v := range box {
		be.PutUint16(b[36+2*i:], uint16(v))
	}
	be.PutUint16(b[46:], 8)
	be.PutUint16(b[48:], 2)
	be.PutUint16(b[50:], 1) // long loca
	return b
}

func maxp(n int) []byte {
	b := make([]byte, 32)
	binary.BigEndian.PutUint32(b, 0x00010000)
	binary.BigEndian.PutUint16(b[4:], uint16(n))
	binary.BigEndian.PutUint16(b[6:], 4)  // maxPoints
	binary.BigEndian.PutUint16(b[8:], 1)  // maxContours
	binary.BigEndian.PutUint16(b[14:], 2) // maxZones
	binary.BigEndian.PutUint16(b[28:], 4) // maxComponentElements
	binary.BigEndian.PutUint16(b[30:], 1) // maxComponentDepth
	return b
}

func (f *Font) os2() []byte {
	b := make([]byte, 96)
	be := binary.BigEndian
	be.PutUint16(b[0:], 4)
	be.PutUint16(b[2:], 600)
	be.PutUint16(b[4:], 400)
	be.PutUint16(b[6:], 5)
	be.PutUint16(b[68:], uint16(f.Ascent))
	be.PutUint16(b[70:], uint16(f.Descent))
	be.PutUint16(b[74:], uint16(f.Ascent))
	be.PutUint16(b[76:], uint16(-f.Descent))
	be.PutUint16(b[86:], 500)
	be.PutUint16(b[88:], 700)
	return b
}

// post writes format 2 names; every name except .notdef is custom.
func (f *Font) post() []byte {
	b := make([]byte, 32, 64)
	binary.BigEndian.PutUint32(b, 0x00020000)
	b = binary.BigEndian.AppendUint16(b, uint16(len(f.Glyphs)))
	var names []byte
	custom := 0
	for _, g := range f.Glyphs {
		if g.Name == ".notdef" || g.Name == "" {
			b = binary.BigEndian.AppendUint16(b, 0)
			continue
		}
		b = binary.BigEndian.AppendUint16(b, uint16(258+custom))
		custom++
		names = append(names, byte(len(g.Name)))
		names = append(names, g.Name...)
	}
	return append(b, names...)
}

const (
	flagOnCurve       = 0x01
	flagArgsAreWords  = 0x0001
	flagArgsAreXY     = 0x0002
	flagMoreComponent = 0x0020
)

func encodeGlyph(g Glyph) []byte {
	be := binary.BigEndian
	if len(g.Components) > 0 {
		b := make([]byte, 10)
		be.PutUint16(b, 0xFFFF) // numberOfContours = -1
		for i, v := range g.Box {
			be.PutUint16(b[2+2*i:], uint16(v))
		}
		for i, c := range g.Components {
			flags := uint16(flagArgsAreWords | flagArgsAreXY)
			if i < len(g.Components)-1 {
				flags |= flagMoreComponent
			}
			b = be.AppendUint16(b, flags)
			b = be.AppendUint16(b, uint16(c.GID))
			b = be.AppendUint16(b, uint16(c.DX))
			b = be.AppendUint16(b, uint16(c.DY))
		}
		return b
	}
	if g.Box == [4]int16{} {
		return nil
	}

	x0, y0, x1, y1 := g.Box[0], g.Box[1], g.Box[2], g.Box[3]
	b := make([]byte, 10)
	be.PutUint16(b, 1)
	for i, v := range g.Box {
		be.PutUint16(b[2+2*i:], uint16(v))
	}
	b = be.AppendUint16(b, 3) // endPtsOfContours[0]
	b = be.AppendUint16(b, 0) // instructionLength
	b = append(b, flagOnCurve, flagOnCurve, flagOnCurve, flagOnCurve)
	// Clockwise: bottom-left, top-left, top-right, bottom-right.
	for _, dx := range []int16{x0, 0, x1 - x0, 0} {
		b = be.AppendUint16(b, uint16(dx))
	}
	for _, dy := range []int16{y0, y1 - y0, 0, y0 - y1} {
		b = be.AppendUint16(b, uint16(dy))
	}
	return b
}

// Runes returns the mapped runes in ascending order.
func (f *Font) Runes() []rune {
	var out []rune
	for _, g := range f.Glyphs {
		if g.Rune != 0 {
			out = append(out, g.Rune)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
