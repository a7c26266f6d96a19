package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/layout"
	"github.com/tsawler/pdfhtml/text"
)

// ErrFitzNotEnabled is returned by the MuPDF renderer when the module was
// built without the "fitz" tag.
var ErrFitzNotEnabled = errors.New("MuPDF rendering not enabled; rebuild with -tags fitz")

// Request asks for one page raster.
type Request struct {
	// Document is the whole PDF file.
	Document []byte
	// Path names the same file on disk, if there is one. External engines
	// read it directly instead of writing a scratch copy.
	Path string
	// Page is 1-based.
	Page int
	// Layout fixes the raster size and resolution.
	Layout layout.PageLayout
	// Content is the interpreted page. Only Outline uses it.
	Content *text.Content
}

// Renderer produces the full-page raster for a request. The raster's bounds
// are always Request.Layout.Bounds().
type Renderer interface {
	Render(ctx context.Context, req Request) (*image.RGBA, error)
}

// fail wraps err as a *diag.RenderError unless it already is one.
func fail(page int, err error) error {
	var re *diag.RenderError
	if errors.As(err, &re) {
		return err
	}
	return &diag.RenderError{Page: page, Err: err}
}

// fit returns img with exactly the layout's bounds. External engines round
// page sizes their own way; off-by-one rasters are padded or cropped and
// anything further off is rescaled.
func fit(img image.Image, l layout.PageLayout) *image.RGBA {
	want := l.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds() == want {
		return rgba
	}
	dst := image.NewRGBA(want)
	draw.Draw(dst, want, image.White, image.Point{}, draw.Src)
	src := img.Bounds()
	dw, dh := src.Dx()-want.Dx(), src.Dy()-want.Dy()
	if abs(dw) <= 2 && abs(dh) <= 2 {
		draw.Draw(dst, want, img, src.Min, draw.Over)
		return dst
	}
	draw.BiLinear.Scale(dst, want, img, src, draw.Over, nil)
	return dst
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// blank returns a white raster of the layout's size.
func blank(l layout.PageLayout) *image.RGBA {
	img := image.NewRGBA(l.Bounds())
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

// Chain tries each renderer in turn and returns the first raster produced.
type Chain []Renderer

func (c Chain) Render(ctx context.Context, req Request) (*image.RGBA, error) {
	if len(c) == 0 {
		return nil, fail(req.Page, diag.ErrNoRenderer)
	}
	var errs []error
	for _, r := range c {
		if err := ctx.Err(); err != nil {
			return nil, fail(req.Page, err)
		}
		img, err := r.Render(ctx, req)
		if err == nil {
			return img, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name(r), err))
	}
	return nil, fail(req.Page, errors.Join(errs...))
}

func name(r Renderer) string {
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", r)
}

// Auto returns the best chain for this build and machine: MuPDF in process
// when built with the fitz tag, then poppler or MuPDF command-line tools,
// then Outline.
func Auto() Renderer {
	var c Chain
	if FitzEnabled {
		c = append(c, NewFitz())
	}
	if e := NewExec(""); e.Available() == nil {
		c = append(c, e)
	}
	return append(c, Outline{})
}

// ByName returns the renderer named by the command line: "auto", "exec",
// "fitz" or "outline".
func ByName(s string) (Renderer, error) {
	switch s {
	case "", "auto":
		return Auto(), nil
	case "exec":
		return NewExec(""), nil
	case "fitz":
		if !FitzEnabled {
			return nil, ErrFitzNotEnabled
		}
		return NewFitz(), nil
	case "outline":
		return Outline{}, nil
	}
	return nil, fmt.Errorf("unknown renderer %q", s)
}
