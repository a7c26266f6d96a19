//go:build fitz

package render

import (
	"context"
	"image"

	"github.com/gen2brain/go-fitz"
)

// FitzEnabled reports whether MuPDF was linked in.
const FitzEnabled = true

// Fitz renders in process with MuPDF.
type Fitz struct{}

// NewFitz returns the in-process MuPDF renderer.
func NewFitz() *Fitz { return &Fitz{} }

func (*Fitz) String() string { return "fitz" }

func (*Fitz) Render(ctx context.Context, req Request) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, fail(req.Page, err)
	}
	doc, err := fitz.NewFromMemory(req.Document)
	if err != nil {
		return nil, fail(req.Page, err)
	}
	defer doc.Close()
	img, err := doc.ImageDPI(req.Page-1, req.Layout.DPI)
	if err != nil {
		return nil, fail(req.Page, err)
	}
	return fit(img, req.Layout), nil
}
