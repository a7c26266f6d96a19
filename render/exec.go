package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsawler/pdfhtml/diag"
)

// Exec renders through poppler's pdftoppm or MuPDF's mutool.
type Exec struct {
	// Tools are tried in order; the first found on PATH is used.
	Tools []string
}

// NewExec returns a renderer using tool, or pdftoppm then mutool when tool
// is empty.
func NewExec(tool string) *Exec {
	if tool != "" {
		return &Exec{Tools: []string{tool}}
	}
	return &Exec{Tools: []string{"pdftoppm", "mutool"}}
}

func (e *Exec) String() string { return "exec" }

// Available reports diag.ErrToolUnavailable when no tool is on PATH.
func (e *Exec) Available() error {
	_, _, err := e.find()
	return err
}

func (e *Exec) find() (name, bin string, err error) {
	for _, t := range e.Tools {
		if p, err := exec.LookPath(t); err == nil {
			return filepath.Base(t), p, nil
		}
	}
	return "", "", fmt.Errorf("none of %s on PATH: %w", strings.Join(e.Tools, ", "), diag.ErrToolUnavailable)
}

func (e *Exec) Render(ctx context.Context, req Request) (*image.RGBA, error) {
	name, bin, err := e.find()
	if err != nil {
		return nil, fail(req.Page, err)
	}
	dir, err := os.MkdirTemp("", "pdfhtml-render-")
	if err != nil {
		return nil, fail(req.Page, err)
	}
	defer os.RemoveAll(dir)

	in := req.Path
	if in == "" {
		in = filepath.Join(dir, "in.pdf")
		if err := os.WriteFile(in, req.Document, 0o600); err != nil {
			return nil, fail(req.Page, err)
		}
	}
	out := filepath.Join(dir, "page.png")
	dpi := strconv.FormatFloat(req.Layout.DPI, 'f', -1, 64)
	page := strconv.Itoa(req.Page)

	var args []string
	switch name {
	case "mutool":
		args = []string{"draw", "-q", "-r", dpi, "-F", "png", "-o", out, in, page}
	default:
		args = []string{"-r", dpi, "-f", page, "-l", page, "-png", "-singlefile", "-cropbox", in, strings.TrimSuffix(out, ".png")}
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fail(req.Page, ctxErr)
		}
		return nil, fail(req.Page, fmt.Errorf("%s: %v: %s", name, err, strings.TrimSpace(stderr.String())))
	}

	f, err := os.Open(out)
	if err != nil {
		return nil, fail(req.Page, fmt.Errorf("%s wrote no image: %w", name, err))
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fail(req.Page, fmt.Errorf("decode %s output: %w", name, err))
	}
	if img.Bounds().Empty() {
		return nil, fail(req.Page, errors.New(name+" produced an empty image"))
	}
	return fit(img, req.Layout), nil
}
