package pipeline

import (
	"image"
	"io"
	"sort"

	"github.com/tsawler/pdfhtml/classify"
	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/htmldoc"
	"github.com/tsawler/pdfhtml/layout"
	"github.com/tsawler/pdfhtml/model"
	"github.com/tsawler/pdfhtml/webfont"
)

// PageResult is one converted page.
type PageResult struct {
	Number int
	Layout layout.PageLayout
	// Background is the erased raster; nil for skipped pages.
	Background *image.RGBA
	Nodes      []layout.Node
	// Glyphs are the page's classified glyphs. Extractable ones are in
	// Nodes, the rest are only in Background.
	Glyphs []model.Glyph
	// Erased holds the Seq of every glyph painted out of Background.
	Erased []int
	Tally  classify.Tally

	Skipped bool
	Reason  string
}

// Result is a converted document.
type Result struct {
	Title       string
	Pages       []*PageResult
	Fonts       map[model.FontRef]*FontResult
	Diagnostics []diag.Diagnostic
}

// Faces returns the web fonts the pages reference, sorted by family.
func (r *Result) Faces() []*webfont.Face {
	var faces []*webfont.Face
	for _, f := range r.Fonts {
		if f.Face != nil {
			faces = append(faces, f.Face)
		}
	}
	sort.Slice(faces, func(i, j int) bool { return faces[i].Family < faces[j].Family })
	return faces
}

// HTMLPages converts the pages for htmldoc.
func (r *Result) HTMLPages() []htmldoc.Page {
	out := make([]htmldoc.Page, 0, len(r.Pages))
	for _, p := range r.Pages {
		hp := htmldoc.Page{
			Number:  p.Number,
			Width:   p.Layout.Width,
			Height:  p.Layout.Height,
			Zoom:    p.Layout.Zoom,
			Nodes:   p.Nodes,
			Skipped: p.Skipped,
			Reason:  p.Reason,
		}
		if p.Background != nil {
			hp.Background = p.Background
		}
		out = append(out, hp)
	}
	return out
}

// WriteHTML writes the artifact.
func (r *Result) WriteHTML(w io.Writer) error {
	return htmldoc.NewWriter(r.Title, r.Faces()).Write(w, r.HTMLPages())
}
