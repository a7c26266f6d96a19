package background

import (
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/tsawler/pdfhtml/classify"
	"github.com/tsawler/pdfhtml/graphicsstate"
	"github.com/tsawler/pdfhtml/internal/logging"
	"github.com/tsawler/pdfhtml/layout"
	"github.com/tsawler/pdfhtml/model"
)

// Policy holds the erasure thresholds.
type Policy struct {
	// MinPadding is the smallest margin, in pixels, erased around a glyph
	// box (default: 2)
	MinPadding int
	// PaddingPerZoom scales the margin with resolution: the margin is
	// max(MinPadding, int(PaddingPerZoom*zoom)) (default: 2/72)
	PaddingPerZoom float64

	// MinRing and RingPerZoom size the band sampled around a box to find
	// the fill colour under near-white text (defaults: 5 and 5/72)
	MinRing     int
	RingPerZoom float64

	// DropCapPx is the glyph height in pixels above which the busy
	// background check runs (default: 60)
	DropCapPx int
	// BusyRatio is the share of non-white samples above which a region is
	// busy (default: 0.2)
	BusyRatio float64
	// BusyVariance is the summed per-channel variance above which a region
	// is busy (default: 300)
	BusyVariance float64

	// NearWhite is the channel value every channel of the text colour must
	// exceed for the fill to be sampled instead of white (default: 240)
	NearWhite uint8
	// ColorDistance excludes ring pixels this close to the text colour from
	// the sample (default: 30)
	ColorDistance float64
}

// DefaultPolicy returns the default thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinPadding:     2,
		PaddingPerZoom: 2.0 / 72,
		MinRing:        5,
		RingPerZoom:    5.0 / 72,
		DropCapPx:      60,
		BusyRatio:      0.2,
		BusyVariance:   300,
		NearWhite:      240,
		ColorDistance:  30,
	}
}

// Padding returns the erase margin at the given zoom.
func (p Policy) Padding(zoom float64) int {
	return max(p.MinPadding, int(p.PaddingPerZoom*zoom))
}

func (p Policy) ring(zoom float64) int {
	return max(p.MinRing, int(p.RingPerZoom*zoom))
}

// Raster is a page background with a record of the pixels already painted
// over.
type Raster struct {
	RGBA *image.RGBA
	Mask *image.Alpha
}

// NewRaster wraps a rendered page with an empty mask.
func NewRaster(img *image.RGBA) *Raster {
	return &Raster{RGBA: img, Mask: image.NewAlpha(img.Bounds())}
}

// Erased reports whether every pixel of r has been painted over.
func (ras *Raster) Erased(r image.Rectangle) bool {
	return ras.erased(r, nil)
}

// erased is Erased ignoring pixels inside guards, which are never painted.
func (ras *Raster) erased(r image.Rectangle, guards []image.Rectangle) bool {
	r = r.Intersect(ras.Mask.Bounds())
	if r.Empty() {
		return false
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if ras.Mask.AlphaAt(x, y).A == 0 && !guarded(image.Point{X: x, Y: y}, guards) {
				return false
			}
		}
	}
	return true
}

func guarded(pt image.Point, guards []image.Rectangle) bool {
	for _, g := range guards {
		if pt.In(g) {
			return true
		}
	}
	return false
}

// ResidualInk returns the share of pixels in r whose luminance is more
// than tolerance below white.
func (ras *Raster) ResidualInk(r image.Rectangle, tolerance uint8) float64 {
	r = r.Intersect(ras.RGBA.Bounds())
	if r.Empty() {
		return 0
	}
	dark := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if luma(ras.RGBA.RGBAAt(x, y)) < 255-float64(tolerance) {
				dark++
			}
		}
	}
	return float64(dark) / float64(r.Dx()*r.Dy())
}

func luma(c color.RGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// Page is what the eraser needs to know about one page.
type Page struct {
	Number int
	Layout layout.PageLayout
	Glyphs []model.Glyph
	Paths  []graphicsstate.PaintedPath
}

// Result summarizes one page's erasure.
type Result struct {
	// Erased holds the Seq of every glyph painted over.
	Erased []int
	// Demoted holds the indexes into Page.Glyphs moved to the background
	// because they sit on a busy region.
	Demoted []int
	// Skipped counts extractable glyphs left alone because their region
	// was already erased.
	Skipped int
}

// Eraser paints extractable glyphs out of the background raster.
type Eraser struct {
	Policy Policy
	Logger *slog.Logger
}

// NewEraser returns an eraser with the given policy.
func NewEraser(p Policy) *Eraser {
	return &Eraser{Policy: p}
}

// Erase removes the ink of every extractable glyph on p from ras. Large
// glyphs over busy regions are demoted instead, through classify.Demote,
// and stay in the raster. Pixels inside the box of a background glyph or
// a painted path are never touched, unless the path lies entirely behind
// the glyph being erased.
func (e *Eraser) Erase(ras *Raster, p *Page) Result {
	var res Result
	l := p.Layout
	pad := e.Policy.Padding(l.Zoom)

	for i := range p.Glyphs {
		g := &p.Glyphs[i]
		if !g.Extractable || !leavesInk(g.Mode) {
			continue
		}
		r := l.Rect(g.BBox, 0)
		if r.Dy() > e.Policy.DropCapPx && e.busy(ras.RGBA, r, e.Policy.ring(l.Zoom)) {
			classify.Demote(g)
			res.Demoted = append(res.Demoted, i)
		}
	}

	var glyphGuards []image.Rectangle
	for i := range p.Glyphs {
		if g := &p.Glyphs[i]; !g.Extractable && leavesInk(g.Mode) {
			glyphGuards = append(glyphGuards, l.Rect(g.BBox, 0))
		}
	}

	log := logging.Or(e.Logger)
	for i := range p.Glyphs {
		g := &p.Glyphs[i]
		if !g.Extractable || !leavesInk(g.Mode) {
			continue
		}
		r := l.Rect(g.BBox, pad)
		if r.Empty() {
			continue
		}
		guards := append([]image.Rectangle(nil), glyphGuards...)
		for _, path := range p.Paths {
			if !covers(path.Bounds, g.BBox) {
				guards = append(guards, l.Rect(path.Bounds, 0))
			}
		}
		if ras.erased(r, guards) {
			res.Skipped++
			continue
		}
		fill := color.RGBA{0xff, 0xff, 0xff, 0xff}
		if e.nearWhite(g.Fill) {
			if c, ok := e.sampleRing(ras, r, g.Fill, e.Policy.ring(l.Zoom)); ok {
				fill = c
			}
		}
		paint(ras, r, guards, fill)
		res.Erased = append(res.Erased, g.Seq)
	}
	if len(res.Demoted) > 0 {
		log.Debug("glyphs kept in background over busy region", "page", p.Number, "count", len(res.Demoted))
	}
	return res
}

func leavesInk(m model.RenderMode) bool {
	return m != model.RenderInvisible && m != model.RenderClip
}

// covers reports whether outer contains inner entirely.
func covers(outer, inner model.BBox) bool {
	return outer.Left() <= inner.Left() && outer.Right() >= inner.Right() &&
		outer.Bottom() <= inner.Bottom() && outer.Top() >= inner.Top()
}

func paint(ras *Raster, r image.Rectangle, guards []image.Rectangle, fill color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if guarded(image.Point{X: x, Y: y}, guards) {
				continue
			}
			ras.RGBA.SetRGBA(x, y, fill)
			ras.Mask.SetAlpha(x, y, color.Alpha{A: 0xff})
		}
	}
}

func (e *Eraser) nearWhite(c model.Color) bool {
	t := e.Policy.NearWhite
	return c.R > t && c.G > t && c.B > t
}

// sampleRing averages the band of width w around r, skipping pixels close
// to the text colour.
func (e *Eraser) sampleRing(ras *Raster, r image.Rectangle, text model.Color, w int) (color.RGBA, bool) {
	outer := r.Inset(-w).Intersect(ras.RGBA.Bounds())
	tc := text.RGBA()
	var sr, sg, sb, n float64
	for y := outer.Min.Y; y < outer.Max.Y; y++ {
		for x := outer.Min.X; x < outer.Max.X; x++ {
			if (image.Point{X: x, Y: y}).In(r) {
				continue
			}
			c := ras.RGBA.RGBAAt(x, y)
			if distance(c, tc) <= e.Policy.ColorDistance {
				continue
			}
			sr += float64(c.R)
			sg += float64(c.G)
			sb += float64(c.B)
			n++
		}
	}
	if n == 0 {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(math.Round(sr / n)), G: uint8(math.Round(sg / n)), B: uint8(math.Round(sb / n)), A: 0xff}, true
}

func distance(a, b color.RGBA) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// busy reports whether the band of width w around r is both mostly
// non-white and highly varied. The glyph's own pixels are not sampled.
func (e *Eraser) busy(img *image.RGBA, r image.Rectangle, w int) bool {
	outer := r.Inset(-w).Intersect(img.Bounds())
	var n, nonWhite float64
	var sum, sum2 [3]float64
	for y := outer.Min.Y; y < outer.Max.Y; y++ {
		for x := outer.Min.X; x < outer.Max.X; x++ {
			if (image.Point{X: x, Y: y}).In(r) {
				continue
			}
			c := img.RGBAAt(x, y)
			ch := [3]float64{float64(c.R), float64(c.G), float64(c.B)}
			for i, v := range ch {
				sum[i] += v
				sum2[i] += v * v
			}
			if (ch[0]+ch[1]+ch[2])/3 < 245 {
				nonWhite++
			}
			n++
		}
	}
	if n < 12 {
		return false
	}
	variance := 0.0
	for i := range sum {
		mean := sum[i] / n
		variance += sum2[i]/n - mean*mean
	}
	return nonWhite/n > e.Policy.BusyRatio && variance > e.Policy.BusyVariance
}
