package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/font"
	"github.com/tsawler/pdfhtml/fontfile"
	"github.com/tsawler/pdfhtml/graphicsstate"
	"github.com/tsawler/pdfhtml/internal/fonttest"
	"github.com/tsawler/pdfhtml/layout"
	"github.com/tsawler/pdfhtml/model"
	"github.com/tsawler/pdfhtml/text"
)

var square = layout.NewPageLayout(model.NewBBox(0, 0, 100, 100), 0, 72)

func isWhite(c color.RGBA) bool { return c.R == 0xff && c.G == 0xff && c.B == 0xff }

func TestOutlineDrawsGlyphsAndPaths(t *testing.T) {
	ft := fonttest.New("T", "A")
	prog, err := fontfile.Parse(ft.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	withFont := model.FontRef{Number: 1}
	noProgram := model.FontRef{Number: 2}

	// 100pt glyph at (10, 10): the rectangle outline covers x 15..65 and
	// y 10..80 in page space, so pixel rows 20..90.
	a := model.Glyph{Font: withFont, GID: ft.GID('A'), Transform: model.Matrix{100, 0, 0, 100, 10, 10}}
	hidden := a
	hidden.Transform = model.Matrix{10, 0, 0, 10, 70, 5}
	hidden.Mode = model.RenderInvisible
	boxed := model.Glyph{Font: noProgram, BBox: model.NewBBox(70, 30, 5, 5), Fill: model.Color{B: 200}}

	c := &text.Content{
		Glyphs: []model.Glyph{a, hidden, boxed},
		Paths: []graphicsstate.PaintedPath{
			{Bounds: model.NewBBox(80, 80, 10, 10), Fill: true, FillColor: model.Color{R: 255}},
		},
		Fonts: map[model.FontRef]*font.Descriptor{withFont: {Font: prog}},
	}
	img, err := Outline{}.Render(context.Background(), Request{Page: 1, Layout: square, Content: c})
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != square.Bounds() {
		t.Fatalf("bounds %v", img.Bounds())
	}

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"glyph ink", 40, 50, color.RGBA{A: 0xff}},
		{"left of glyph", 12, 50, color.RGBA{0xff, 0xff, 0xff, 0xff}},
		{"right of glyph", 68, 50, color.RGBA{0xff, 0xff, 0xff, 0xff}},
		{"invisible glyph", 72, 93, color.RGBA{0xff, 0xff, 0xff, 0xff}},
		{"box fallback", 72, 67, color.RGBA{B: 200, A: 0xff}},
		{"path extent", 85, 15, color.RGBA{R: 0xff, A: 0xff}},
	}
	for _, tt := range tests {
		if got := img.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("%s: pixel (%d,%d) = %v, want %v", tt.name, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestOutlineWithoutContentIsWhite(t *testing.T) {
	img, err := Outline{}.Render(context.Background(), Request{Layout: square})
	if err != nil {
		t.Fatal(err)
	}
	if !isWhite(img.RGBAAt(50, 50)) {
		t.Error("blank page is not white")
	}
}

type failing struct{ err error }

func (f failing) Render(_ context.Context, req Request) (*image.RGBA, error) {
	return nil, fail(req.Page, f.err)
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	req := Request{Page: 3, Layout: square}

	img, err := Chain{failing{errors.New("boom")}, Outline{}}.Render(ctx, req)
	if err != nil || img == nil {
		t.Fatalf("fallback failed: %v", err)
	}

	boom := errors.New("boom")
	_, err = Chain{failing{boom}, failing{errors.New("bang")}}.Render(ctx, req)
	var re *diag.RenderError
	if !errors.As(err, &re) || re.Page != 3 {
		t.Fatalf("err = %v, want RenderError for page 3", err)
	}
	if !errors.Is(err, boom) {
		t.Error("first failure lost")
	}

	_, err = Chain{}.Render(ctx, req)
	if !errors.Is(err, diag.ErrNoRenderer) {
		t.Errorf("empty chain: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Chain{Outline{}}.Render(cancelled, req)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: %v", err)
	}
}

func TestExecMissingTool(t *testing.T) {
	e := NewExec("/nonexistent/pdftoppm")
	if err := e.Available(); !errors.Is(err, diag.ErrToolUnavailable) {
		t.Errorf("Available = %v", err)
	}
	_, err := e.Render(context.Background(), Request{Page: 2, Layout: square})
	var re *diag.RenderError
	if !errors.As(err, &re) || re.Page != 2 || !errors.Is(err, diag.ErrToolUnavailable) {
		t.Errorf("Render = %v", err)
	}
}

func TestFit(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 99, 101))
	if got := fit(small, square).Bounds(); got != square.Bounds() {
		t.Errorf("padded bounds %v", got)
	}
	big := image.NewRGBA(image.Rect(0, 0, 200, 200))
	big.SetRGBA(150, 150, color.RGBA{A: 0xff})
	if got := fit(big, square).Bounds(); got != square.Bounds() {
		t.Errorf("scaled bounds %v", got)
	}
	exact := image.NewRGBA(square.Bounds())
	if fit(exact, square) != exact {
		t.Error("exact raster copied")
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", "auto", "exec", "outline"} {
		if _, err := ByName(name); err != nil {
			t.Errorf("ByName(%q): %v", name, err)
		}
	}
	if _, err := ByName("gpu"); err == nil {
		t.Error("unknown renderer accepted")
	}
}
