//go:build !fitz

package render

import (
	"context"
	"image"
)

// FitzEnabled reports whether MuPDF was linked in.
const FitzEnabled = false

// Fitz is the stub used without the fitz tag.
type Fitz struct{}

// NewFitz returns a renderer that always fails with ErrFitzNotEnabled.
func NewFitz() *Fitz { return &Fitz{} }

func (*Fitz) String() string { return "fitz" }

func (*Fitz) Render(_ context.Context, req Request) (*image.RGBA, error) {
	return nil, fail(req.Page, ErrFitzNotEnabled)
}
