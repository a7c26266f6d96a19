package layout

import (
	"image"
	"math"

	"github.com/tsawler/pdfhtml/model"
	"github.com/tsawler/pdfhtml/pages"
)

// DefaultDPI is the raster resolution used when none is configured.
const DefaultDPI = 150

// PageLayout maps page space to raster pixel space for one page. The
// background renderer, the eraser and the text composer all use the same
// value, so a glyph's erased pixels and its text node line up.
type PageLayout struct {
	DPI    float64
	Zoom   float64
	Crop   model.BBox
	Rotate int
	// Matrix maps page space (y up) to pixels (y down).
	Matrix model.Matrix
	// Width and Height are the raster size in pixels.
	Width, Height int
}

// NewPageLayout builds the transform for a crop box shown at the given
// rotation (a multiple of 90, clockwise) and resolution.
func NewPageLayout(crop model.BBox, rotate int, dpi float64) PageLayout {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	rotate = ((rotate%360)+360)%360/90*90
	zoom := dpi / 72
	w, h := crop.Width, crop.Height

	m := model.Translate(-crop.X, -crop.Y)
	rw, rh := w, h
	switch rotate {
	case 90:
		m = m.Multiply(model.Matrix{0, -1, 1, 0, 0, w})
		rw, rh = h, w
	case 180:
		m = m.Multiply(model.Matrix{-1, 0, 0, -1, w, h})
	case 270:
		m = m.Multiply(model.Matrix{0, 1, -1, 0, h, 0})
		rw, rh = h, w
	}
	m = m.Multiply(model.Matrix{1, 0, 0, -1, 0, rh})
	m = m.Multiply(model.Scale(zoom, zoom))

	return PageLayout{
		DPI:    dpi,
		Zoom:   zoom,
		Crop:   crop,
		Rotate: rotate,
		Matrix: m,
		Width:  int(math.Ceil(rw*zoom - 1e-9)),
		Height: int(math.Ceil(rh*zoom - 1e-9)),
	}
}

// ForPage is NewPageLayout for a page's crop box and /Rotate.
func ForPage(p *pages.Page, dpi float64) PageLayout {
	return NewPageLayout(p.CropBox, p.Rotate, dpi)
}

// Bounds is the raster rectangle.
func (l PageLayout) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.Width, l.Height)
}

// Point maps a page-space point to pixels.
func (l PageLayout) Point(p model.Point) model.Point {
	return l.Matrix.Transform(p)
}

// Box maps a page-space box to a pixel-space box. Y grows downward, so the
// result's Y is its top edge.
func (l PageLayout) Box(b model.BBox) model.BBox {
	return l.Matrix.TransformBBox(b)
}

// Rect returns the pixels touched by a page-space box, grown by pad pixels
// on every side and clipped to the raster.
func (l PageLayout) Rect(b model.BBox, pad int) image.Rectangle {
	px := l.Box(b)
	r := image.Rect(
		int(math.Floor(px.Left()))-pad,
		int(math.Floor(px.Bottom()))-pad,
		int(math.Ceil(px.Right()))+pad,
		int(math.Ceil(px.Top()))+pad,
	)
	return r.Intersect(l.Bounds())
}
