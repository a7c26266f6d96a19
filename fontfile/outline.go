package fontfile

import (
	"encoding/binary"
	"fmt"

	ot "github.com/go-text/typesetting/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/tsawler/pdfhtml/model"
)

// SegmentOp is the kind of an outline segment.
type SegmentOp int

const (
	MoveTo SegmentOp = iota
	LineTo
	QuadTo
	CubeTo
)

// Segment is one outline command in font units with y growing up. Args
// holds one point for MoveTo and LineTo, two for QuadTo and three for
// CubeTo.
type Segment struct {
	Op   SegmentOp
	Args [3]model.Point
}

// Outline returns the outline of gid. TrueType outlines are decoded with
// golang.org/x/image/font/sfnt through a normalized copy of the font; CFF
// outlines with the go-text CFF interpreter.
func (f *Font) Outline(gid model.GID) ([]Segment, error) {
	if !f.HasGlyph(gid) {
		return nil, fmt.Errorf("glyph %d: no outline", gid)
	}
	if f.CFF != nil {
		return f.cffOutline(gid)
	}

	f.once.Do(func() { f.view, f.viewErr = f.outlineView() })
	if f.viewErr != nil {
		return nil, f.viewErr
	}
	var buf sfnt.Buffer
	segs, err := f.view.LoadGlyph(&buf, sfnt.GlyphIndex(gid), fixed.I(int(f.UnitsPerEm)), nil)
	if err != nil {
		return nil, fmt.Errorf("glyph %d: %w", gid, err)
	}
	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[i].Op = SegmentOp(s.Op)
		for j, a := range s.Args {
			out[i].Args[j] = model.Point{X: float64(a.X) / 64, Y: -float64(a.Y) / 64}
		}
	}
	return out, nil
}

func (f *Font) cffOutline(gid model.GID) ([]Segment, error) {
	segs, _, err := f.CFF.LoadGlyph(uint16(gid))
	if err != nil {
		return nil, fmt.Errorf("glyph %d: %w", gid, err)
	}
	out := make([]Segment, len(segs))
	for i, s := range segs {
		switch s.Op {
		case ot.SegmentOpMoveTo:
			out[i].Op = MoveTo
		case ot.SegmentOpLineTo:
			out[i].Op = LineTo
		case ot.SegmentOpQuadTo:
			out[i].Op = QuadTo
		case ot.SegmentOpCubeTo:
			out[i].Op = CubeTo
		}
		for j, a := range s.Args {
			out[i].Args[j] = model.Point{X: float64(a.X), Y: float64(a.Y)}
		}
	}
	return out, nil
}

// outlineView rebuilds the font with only the tables x/image/font/sfnt
// needs, synthesizing the strictly checked ones: maxp, hhea, hmtx, cmap and
// post. Embedded subsets often omit or truncate these.
func (f *Font) outlineView() (*sfnt.Font, error) {
	if f.NumGlyphs == 0 {
		return nil, fmt.Errorf("font has no glyphs")
	}
	head, _ := f.Table("head")
	loca, _ := f.Table("loca")
	glyf, _ := f.Table("glyf")
	hhea, _ := f.Table("hhea")
	post, _ := f.Table("post")
	locaSize := 2
	if f.IndexToLocFormat != 0 {
		locaSize = 4
	}
	loca = loca[:locaSize*(f.NumGlyphs+1)]

	maxp := make([]byte, 32)
	binary.BigEndian.PutUint32(maxp, 0x00010000)
	binary.BigEndian.PutUint16(maxp[4:], uint16(f.NumGlyphs))
	if orig, ok := f.Table("maxp"); ok && len(orig) == 32 {
		copy(maxp, orig)
	}

	metrics := make([]HMetric, f.NumGlyphs)
	copy(metrics, f.Metrics)
	var advMax uint16
	for _, m := range metrics {
		advMax = max(advMax, m.Advance)
	}

	tables := map[string][]byte{
		"head": head[:54],
		"maxp": maxp,
		"loca": loca,
		"glyf": glyf,
		"hhea": BuildHhea(hhea, Hhea{Ascent: f.Ascent, Descent: f.Descent, LineGap: f.LineGap, AdvanceMax: advMax, NumHMetrics: uint16(f.NumGlyphs)}),
		"hmtx": BuildHmtx(metrics),
		"cmap": BuildCmap(map[rune]model.GID{0xE000: 0}),
		"post": BuildPost3(post),
	}
	view, err := sfnt.Parse(Assemble(0x00010000, tables))
	if err != nil {
		return nil, fmt.Errorf("outline view: %w", err)
	}
	return view, nil
}
