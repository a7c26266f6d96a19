package pdfhtml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tsawler/pdfhtml/background"
	"github.com/tsawler/pdfhtml/classify"
	"github.com/tsawler/pdfhtml/pipeline"
	"github.com/tsawler/pdfhtml/reader"
	"github.com/tsawler/pdfhtml/render"
	"github.com/tsawler/pdfhtml/webfont"
)

// Converter provides a fluent interface for converting a PDF to HTML.
// Each configuration method returns a new Converter, so a configured value
// can be shared and reused safely.
type Converter struct {
	// Source: a path or the document bytes.
	filename string
	data     []byte

	options convertOptions

	// Accumulated error (fail-fast)
	err error
}

func (c *Converter) clone() *Converter {
	return &Converter{
		filename: c.filename,
		data:     c.data,
		options:  c.options.clone(),
		err:      c.err,
	}
}

// ============================================================================
// Configuration Methods (return new Converter instance)
// ============================================================================

// DPI sets the background raster resolution. The default is 150.
//
// Example:
//
//	html, _, err := pdfhtml.Open("doc.pdf").DPI(300).ToHTML(ctx)
func (c *Converter) DPI(dpi int) *Converter {
	n := c.clone()
	if dpi <= 0 && n.err == nil {
		n.err = fmt.Errorf("invalid DPI %d", dpi)
	}
	n.options.dpi = float64(dpi)
	return n
}

// Workers bounds how many pages and fonts are processed at once. The
// default is GOMAXPROCS.
func (c *Converter) Workers(workers int) *Converter {
	n := c.clone()
	n.options.workers = workers
	return n
}

// MemoryBudget caps Workers so that that many page rasters fit in bytes.
func (c *Converter) MemoryBudget(bytes int64) *Converter {
	n := c.clone()
	n.options.memoryBudget = bytes
	return n
}

// Renderer sets the page rasterizer. The default tries MuPDF in process,
// then the pdftoppm and mutool commands, then the built-in outline
// renderer.
//
// Example:
//
//	r, _ := render.ByName("outline")
//	html, _, err := pdfhtml.Open("doc.pdf").Renderer(r).ToHTML(ctx)
func (c *Converter) Renderer(r render.Renderer) *Converter {
	n := c.clone()
	n.options.renderer = r
	return n
}

// FontTool sets the converter for bare CFF and Type 1 fonts. The default
// runs fontforge from PATH.
func (c *Converter) FontTool(t webfont.Tool) *Converter {
	n := c.clone()
	n.options.fontTool = t
	return n
}

// WOFF2 turns the Brotli-compressed font format on or off. It is on by
// default; when off, fonts are embedded as WOFF.
func (c *Converter) WOFF2(enabled bool) *Converter {
	n := c.clone()
	n.options.woff2 = enabled
	return n
}

// Policy sets the extractability thresholds.
//
// Example:
//
//	p := classify.DefaultPolicy()
//	p.MaxRotation = 2
//	html, _, err := pdfhtml.Open("doc.pdf").Policy(p).ToHTML(ctx)
func (c *Converter) Policy(p classify.Policy) *Converter {
	n := c.clone()
	n.options.classify = p
	return n
}

// BackgroundPolicy sets the erasure thresholds.
func (c *Converter) BackgroundPolicy(p background.Policy) *Converter {
	n := c.clone()
	n.options.background = p
	return n
}

// Audit runs OCR over erased regions and reports leftover text as
// warnings. It needs a build with the ocr tag.
func (c *Converter) Audit(enabled bool) *Converter {
	n := c.clone()
	n.options.audit = enabled
	return n
}

// OnPage registers a callback for each finished page. It may be called from
// several goroutines at once.
func (c *Converter) OnPage(fn func(*pipeline.PageResult)) *Converter {
	n := c.clone()
	n.options.onPage = fn
	return n
}

// ============================================================================
// Terminal Methods
// ============================================================================

// Convert runs the conversion and returns the full result.
//
// The error is non-nil only when the document cannot be loaded or every
// page failed; every other problem is a warning.
func (c *Converter) Convert(ctx context.Context) (*pipeline.Result, []Warning, error) {
	if c.err != nil {
		return nil, nil, c.err
	}
	p := pipeline.New(c.options.config())

	var (
		res *pipeline.Result
		err error
	)
	switch {
	case c.data != nil:
		res, err = p.RunBytes(ctx, c.data)
	case c.filename != "":
		res, err = p.Run(ctx, c.filename)
	default:
		return nil, nil, errors.New("no input specified")
	}
	var warnings []Warning
	if res != nil {
		warnings = warningsFrom(res.Diagnostics)
	}
	return res, warnings, err
}

// ToHTML converts the document and returns the artifact as a string.
//
// Example:
//
//	html, warnings, err := pdfhtml.Open("document.pdf").ToHTML(ctx)
func (c *Converter) ToHTML(ctx context.Context) (string, []Warning, error) {
	var buf bytes.Buffer
	warnings, err := c.WriteHTML(ctx, &buf)
	if err != nil {
		return "", warnings, err
	}
	return buf.String(), warnings, nil
}

// WriteHTML converts the document and writes the artifact to w.
func (c *Converter) WriteHTML(ctx context.Context, w io.Writer) ([]Warning, error) {
	res, warnings, err := c.Convert(ctx)
	if err != nil {
		return warnings, err
	}
	if err := res.WriteHTML(w); err != nil {
		return warnings, fmt.Errorf("writing HTML: %w", err)
	}
	return warnings, nil
}

// PageCount returns the number of pages without converting anything.
func (c *Converter) PageCount() (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	var (
		r   *reader.Reader
		err error
	)
	if c.data != nil {
		r, err = reader.FromBytes(c.data)
	} else {
		r, err = reader.Open(c.filename)
	}
	if err != nil {
		return 0, err
	}
	return r.NumPages()
}
