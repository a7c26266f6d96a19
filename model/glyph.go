package model

import (
	"fmt"
	"image/color"
)

// GID is an index into a font program's glyph table.
type GID uint16

// FontRef identifies a font resource by the indirect object that holds its
// dictionary. Fonts defined inline get Number 0 and a synthetic Name.
type FontRef struct {
	Number     int
	Generation int
	Name       string
}

func (r FontRef) String() string {
	if r.Number == 0 {
		return "inline:" + r.Name
	}
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// IsZero reports whether r is the zero reference.
func (r FontRef) IsZero() bool {
	return r == FontRef{}
}

// Less orders references by object number, generation, then name.
func (r FontRef) Less(o FontRef) bool {
	if r.Number != o.Number {
		return r.Number < o.Number
	}
	if r.Generation != o.Generation {
		return r.Generation < o.Generation
	}
	return r.Name < o.Name
}

// Tier is the confidence of a glyph's Unicode resolution.
type Tier int

const (
	TierUnresolved Tier = iota
	TierHeuristic
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierHeuristic:
		return "heuristic"
	default:
		return "unresolved"
	}
}

// RenderMode is the PDF text rendering mode (Tr operand).
type RenderMode int

const (
	RenderFill RenderMode = iota
	RenderStroke
	RenderFillStroke
	RenderInvisible
	RenderFillClip
	RenderStrokeClip
	RenderFillStrokeClip
	RenderClip
)

// Color represents an RGB color
type Color struct {
	R, G, B uint8
}

// RGBA converts c to an opaque color.RGBA.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// Hex returns the CSS form #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Glyph is one shown glyph instance from a page content stream.
//
// The content interpreter sets everything except Text, Extractable and Tier,
// which only the classifier writes.
type Glyph struct {
	Seq      int    // position in content-stream order
	Code     uint32 // character code as shown
	CodeLen  int    // bytes consumed by the code
	Font     FontRef
	FontName string // resource name, e.g. "F1"
	GID      GID
	Text     string // resolved text, empty when unresolved

	BBox      BBox    // page space
	Transform Matrix  // text rendering matrix in page space
	Advance   float64 // horizontal advance in page units
	FontSize  float64 // effective size in page units
	Fill      Color
	Mode      RenderMode

	Extractable bool
	Tier        Tier
}

// Origin returns the glyph origin in page space.
func (g *Glyph) Origin() Point {
	return Point{X: g.Transform[4], Y: g.Transform[5]}
}
