package htmldoc

import (
	"image"

	"github.com/tsawler/pdfhtml/layout"
)

// Page is one page of the artifact.
type Page struct {
	Number int
	// Width and Height are the raster size in pixels.
	Width, Height int
	// Zoom is raster pixels per PDF point. Zero means 1.
	Zoom float64
	// Background is the erased raster. Nil leaves the background layer empty.
	Background image.Image
	Nodes      []layout.Node

	// Skipped pages are written as an empty page box with a comment giving
	// Reason.
	Skipped bool
	Reason  string
}

// Summary is what Parse recovers from an artifact.
type Summary struct {
	Title string
	Faces []FaceInfo
	Pages []PageInfo
}

// FaceInfo describes one @font-face rule.
type FaceInfo struct {
	Family string
	Format string
	MIME   string
	// Size is the decoded font data length in bytes.
	Size int
}

// PageInfo describes one page box.
type PageInfo struct {
	Number        int
	Width, Height float64
	HasBackground bool
	Skipped       bool
	Spans         []SpanInfo
}

// SpanInfo describes one positioned text element. Lengths are CSS pixels.
type SpanInfo struct {
	Text          string
	Left, Top     float64
	FontSize      float64
	Family        string
	Color         string
	LetterSpacing float64
	Dir           string
}

// Text returns the page's span text in document order.
func (p PageInfo) Text() string {
	var n int
	for _, s := range p.Spans {
		n += len(s.Text)
	}
	b := make([]byte, 0, n)
	for _, s := range p.Spans {
		b = append(b, s.Text...)
	}
	return string(b)
}

// Face returns the face for family, or false.
func (s *Summary) Face(family string) (FaceInfo, bool) {
	for _, f := range s.Faces {
		if f.Family == family {
			return f, true
		}
	}
	return FaceInfo{}, false
}
