package render

import (
	"context"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/tsawler/pdfhtml/fontfile"
	"github.com/tsawler/pdfhtml/model"
)

// imageGray fills placed images; Outline does not decode image data.
var imageGray = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}

// Outline is the pure-Go renderer. It draws the page's glyphs from their
// embedded outlines, fills the extent of every painted path and image, and
// leaves everything else white. Glyphs whose font has no usable program
// are drawn as their boxes.
type Outline struct{}

func (Outline) String() string { return "outline" }

func (Outline) Render(ctx context.Context, req Request) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, fail(req.Page, err)
	}
	l := req.Layout
	img := blank(l)
	if req.Content == nil {
		return img, nil
	}
	c := req.Content

	for _, im := range c.Images {
		fillBox(img, l.Rect(im.Bounds(), 0), imageGray)
	}
	for _, p := range c.Paths {
		col := p.FillColor
		if !p.Fill {
			col = p.StrokeColor
		}
		fillBox(img, l.Rect(p.Bounds, 0), col.RGBA())
	}

	for i := range c.Glyphs {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fail(req.Page, err)
			}
		}
		g := &c.Glyphs[i]
		if g.Mode == model.RenderInvisible || g.Mode == model.RenderClip {
			continue
		}
		var prog *fontfile.Font
		if d := c.Fonts[g.Font]; d != nil {
			prog = d.Font
		}
		if prog == nil || prog.UnitsPerEm == 0 || !drawGlyph(img, prog, g, l.Matrix) {
			fillBox(img, l.Rect(g.BBox, 0), g.Fill.RGBA())
		}
	}
	return img, nil
}

func fillBox(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	if r.Empty() {
		return
	}
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Over)
}

// drawGlyph fills g's outline. It reports false when the program has no
// outline for the glyph.
func drawGlyph(img *image.RGBA, prog *fontfile.Font, g *model.Glyph, view model.Matrix) bool {
	segs, err := prog.Outline(g.GID)
	if err != nil {
		return false
	}
	if len(segs) == 0 {
		return true
	}
	upem := 1 / float64(prog.UnitsPerEm)
	m := model.Scale(upem, upem).Multiply(g.Transform).Multiply(view)

	pts := make([][3]model.Point, len(segs))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i, s := range segs {
		for j := 0; j < argCount(s.Op); j++ {
			p := m.Transform(s.Args[j])
			pts[i][j] = p
			minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
			maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
		}
	}
	box := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
	clip := box.Intersect(img.Bounds())
	if clip.Empty() {
		return true
	}

	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	f := func(p model.Point) (float32, float32) { return float32(p.X - ox), float32(p.Y - oy) }
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	for i, s := range segs {
		p := pts[i]
		switch s.Op {
		case fontfile.MoveTo:
			z.ClosePath()
			x, y := f(p[0])
			z.MoveTo(x, y)
		case fontfile.LineTo:
			x, y := f(p[0])
			z.LineTo(x, y)
		case fontfile.QuadTo:
			x1, y1 := f(p[0])
			x2, y2 := f(p[1])
			z.QuadTo(x1, y1, x2, y2)
		case fontfile.CubeTo:
			x1, y1 := f(p[0])
			x2, y2 := f(p[1])
			x3, y3 := f(p[2])
			z.CubeTo(x1, y1, x2, y2, x3, y3)
		}
	}
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, box.Dx(), box.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(img, clip, &image.Uniform{C: g.Fill.RGBA()}, image.Point{}, mask, clip.Min.Sub(box.Min), draw.Over)
	return true
}

func argCount(op fontfile.SegmentOp) int {
	switch op {
	case fontfile.QuadTo:
		return 2
	case fontfile.CubeTo:
		return 3
	default:
		return 1
	}
}
