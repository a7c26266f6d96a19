package graphicsstate

import (
	"math"

	"github.com/tsawler/pdfhtml/contentstream"
	"github.com/tsawler/pdfhtml/model"
)

// PathSegmentType defines the type of path segment
type PathSegmentType int

const (
	// PathMoveTo starts a new subpath
	PathMoveTo PathSegmentType = iota
	// PathLineTo draws a line to a point
	PathLineTo
	// PathCurveTo draws a cubic Bézier curve
	PathCurveTo
	// PathClosePath closes the current subpath
	PathClosePath
)

// PathSegment represents a single segment of a path
type PathSegment struct {
	Type PathSegmentType

	// For MoveTo and LineTo: single point
	// For CurveTo: control point 1, control point 2, end point
	Points []model.Point
}

// Path is a path under construction. Points are stored in page space: the
// CTM in effect when each operator runs is applied immediately.
type Path struct {
	Segments []PathSegment

	current      model.Point
	subpathStart model.Point
	hasCurrent   bool
}

func (p *Path) add(t PathSegmentType, pts ...model.Point) {
	p.Segments = append(p.Segments, PathSegment{Type: t, Points: pts})
}

// MoveTo starts a new subpath at pt (m operator)
func (p *Path) MoveTo(pt model.Point) {
	p.add(PathMoveTo, pt)
	p.current, p.subpathStart, p.hasCurrent = pt, pt, true
}

// LineTo appends a line (l operator). Without a current point it acts as
// MoveTo.
func (p *Path) LineTo(pt model.Point) {
	if !p.hasCurrent {
		p.MoveTo(pt)
		return
	}
	p.add(PathLineTo, pt)
	p.current = pt
}

// CurveTo appends a cubic Bézier curve (c operator)
func (p *Path) CurveTo(c1, c2, end model.Point) {
	if !p.hasCurrent {
		p.MoveTo(c1)
	}
	p.add(PathCurveTo, c1, c2, end)
	p.current = end
}

// ClosePath closes the current subpath (h operator)
func (p *Path) ClosePath() {
	if !p.hasCurrent {
		return
	}
	p.add(PathClosePath)
	p.current = p.subpathStart
}

// Clear resets the path
func (p *Path) Clear() {
	*p = Path{}
}

// IsEmpty reports whether the path has no segments
func (p *Path) IsEmpty() bool {
	return len(p.Segments) == 0
}

// Bounds returns the box around every point, control points included.
func (p *Path) Bounds() model.BBox {
	var pts []model.Point
	for _, s := range p.Segments {
		pts = append(pts, s.Points...)
	}
	return model.NewBBoxFromPoints(pts...)
}

// PaintedPath is a path that was filled or stroked.
type PaintedPath struct {
	Segments    []PathSegment // page space
	Bounds      model.BBox    // page space ink extent, stroke width included
	Fill        bool
	Stroke      bool
	EvenOdd     bool
	FillColor   model.Color
	StrokeColor model.Color
	LineWidth   float64 // page units
}

// PathExtractor collects painted paths from a content stream. It shares the
// interpreter's GraphicsState so the CTM and colours are current.
type PathExtractor struct {
	Paths []PaintedPath

	current Path
	gs      *GraphicsState
}

// NewPathExtractor creates a new path extractor
func NewPathExtractor(gs *GraphicsState) *PathExtractor {
	return &PathExtractor{gs: gs}
}

// SetState switches the graphics state used for subsequent operators.
func (pe *PathExtractor) SetState(gs *GraphicsState) { pe.gs = gs }

func (pe *PathExtractor) pt(x, y float64) model.Point {
	return pe.gs.CTM.Transform(model.Point{X: x, Y: y})
}

// Apply handles a path construction or painting operator and reports
// whether op was one.
func (pe *PathExtractor) Apply(op contentstream.Operation) bool {
	f := op.Float
	p := &pe.current
	switch op.Operator {
	case "m":
		p.MoveTo(pe.pt(f(0), f(1)))
	case "l":
		p.LineTo(pe.pt(f(0), f(1)))
	case "c":
		p.CurveTo(pe.pt(f(0), f(1)), pe.pt(f(2), f(3)), pe.pt(f(4), f(5)))
	case "v":
		p.CurveTo(p.current, pe.pt(f(0), f(1)), pe.pt(f(2), f(3)))
	case "y":
		end := pe.pt(f(2), f(3))
		p.CurveTo(pe.pt(f(0), f(1)), end, end)
	case "h":
		p.ClosePath()
	case "re":
		x, y, w, h := f(0), f(1), f(2), f(3)
		p.MoveTo(pe.pt(x, y))
		p.LineTo(pe.pt(x+w, y))
		p.LineTo(pe.pt(x+w, y+h))
		p.LineTo(pe.pt(x, y+h))
		p.ClosePath()
	case "S":
		pe.paint(false, true, false)
	case "s":
		p.ClosePath()
		pe.paint(false, true, false)
	case "f", "F":
		pe.paint(true, false, false)
	case "f*":
		pe.paint(true, false, true)
	case "B":
		pe.paint(true, true, false)
	case "B*":
		pe.paint(true, true, true)
	case "b":
		p.ClosePath()
		pe.paint(true, true, false)
	case "b*":
		p.ClosePath()
		pe.paint(true, true, true)
	case "n":
		p.Clear()
	case "W", "W*":
		// Clipping takes effect at the next painting operator; the path
		// itself is unchanged.
	default:
		return false
	}
	return true
}

func (pe *PathExtractor) paint(fill, stroke, evenOdd bool) {
	defer pe.current.Clear()
	if pe.current.IsEmpty() {
		return
	}
	lw := pe.deviceLineWidth()
	bounds := pe.current.Bounds()
	if stroke {
		bounds = bounds.Expand(lw / 2)
	}
	// A hairline or a degenerate fill still inks at least a point.
	if bounds.Width == 0 || bounds.Height == 0 {
		bounds = bounds.Expand(math.Max(lw/2, 0.5))
	}
	pe.Paths = append(pe.Paths, PaintedPath{
		Segments:    append([]PathSegment(nil), pe.current.Segments...),
		Bounds:      bounds,
		Fill:        fill,
		Stroke:      stroke,
		EvenOdd:     evenOdd,
		FillColor:   pe.gs.FillColor,
		StrokeColor: pe.gs.StrokeColor,
		LineWidth:   lw,
	})
}

// deviceLineWidth scales the line width by the CTM's mean axis length.
func (pe *PathExtractor) deviceLineWidth() float64 {
	m := pe.gs.CTM
	sx := math.Hypot(m[0], m[1])
	sy := math.Hypot(m[2], m[3])
	lw := pe.gs.LineWidth
	if lw <= 0 {
		lw = 1
	}
	return lw * (sx + sy) / 2
}

// Ink returns the page-space extent of every painted path.
func (pe *PathExtractor) Ink() []model.BBox {
	out := make([]model.BBox, len(pe.Paths))
	for i, p := range pe.Paths {
		out[i] = p.Bounds
	}
	return out
}
