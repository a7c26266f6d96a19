package pdfhtml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/htmldoc"
	"github.com/tsawler/pdfhtml/internal/fonttest"
	"github.com/tsawler/pdfhtml/internal/pdftest"
	"github.com/tsawler/pdfhtml/pipeline"
	"github.com/tsawler/pdfhtml/render"
)

func helloPDF(t *testing.T) []byte {
	t.Helper()
	b := pdftest.New()
	ft := fonttest.New("Hello", "Helo")
	prog := b.AddStream("", ft.Bytes())
	fd := b.Add(fmt.Sprintf("<< /Type /FontDescriptor /FontName /Hello /Flags 32 /FontBBox [0 -200 1000 800] /Ascent 800 /Descent -200 /FontFile2 %d 0 R >>", prog))
	f := b.Add(fmt.Sprintf("<< /Type /Font /Subtype /TrueType /BaseFont /Hello /Encoding /WinAnsiEncoding /FontDescriptor %d 0 R >>", fd))
	b.Pages(
		pdftest.Page{Content: "BT /F1 24 Tf 72 700 Td (Hello) Tj ET", Fonts: map[string]int{"F1": f}},
		pdftest.Page{Content: "BT /F1 12 Tf 72 600 Td (Hell) Tj ET", Fonts: map[string]int{"F1": f}},
	)
	return b.Bytes()
}

func TestToHTML(t *testing.T) {
	html, warnings, err := FromBytes(helloPDF(t)).Renderer(render.Outline{}).ToHTML(context.Background())
	if err != nil {
		t.Fatalf("ToHTML() failed: %v", err)
	}
	for _, w := range warnings {
		if w.Severity >= diag.PageFailed {
			t.Errorf("unexpected warning: %s", w)
		}
	}

	sum, err := htmldoc.Parse(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(sum.Pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(sum.Pages))
	}
	if got := sum.Pages[0].Text(); got != "Hello" {
		t.Errorf("page 1 text = %q, want %q", got, "Hello")
	}
	if got := sum.Pages[1].Text(); got != "Hell" {
		t.Errorf("page 2 text = %q, want %q", got, "Hell")
	}
	if len(sum.Faces) != 1 {
		t.Errorf("got %d faces, want 1 shared face", len(sum.Faces))
	}
	if !sum.Pages[0].HasBackground {
		t.Error("page 1 has no background layer")
	}
}

func TestWOFF2Option(t *testing.T) {
	tests := []struct {
		name   string
		woff2  bool
		format string
	}{
		{"woff2", true, "woff2"},
		{"woff", false, "woff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, _, err := FromBytes(helloPDF(t)).Renderer(render.Outline{}).WOFF2(tt.woff2).ToHTML(context.Background())
			if err != nil {
				t.Fatalf("ToHTML() failed: %v", err)
			}
			sum, err := htmldoc.Parse(strings.NewReader(html))
			if err != nil {
				t.Fatal(err)
			}
			if len(sum.Faces) != 1 || sum.Faces[0].Format != tt.format {
				t.Errorf("faces = %+v, want one %s face", sum.Faces, tt.format)
			}
		})
	}
}

func TestConverterImmutable(t *testing.T) {
	base := FromBytes(helloPDF(t))
	low := base.DPI(72)
	if base.options.dpi == low.options.dpi {
		t.Error("DPI() modified the receiver")
	}
	if base.WOFF2(false).options.woff2 != false || !base.options.woff2 {
		t.Error("WOFF2() modified the receiver")
	}
}

func TestInvalidDPI(t *testing.T) {
	_, _, err := FromBytes(helloPDF(t)).DPI(0).ToHTML(context.Background())
	if err == nil {
		t.Fatal("expected an error for DPI 0")
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, _, err := Open("does-not-exist.pdf").ToHTML(context.Background())
	var le *diag.DocumentLoadError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want DocumentLoadError", err)
	}
}

func TestNoInput(t *testing.T) {
	if _, _, err := (&Converter{options: defaultOptions()}).Convert(context.Background()); err == nil {
		t.Fatal("expected an error with no input")
	}
}

func TestPageCount(t *testing.T) {
	data := helloPDF(t)
	n, err := FromBytes(data).PageCount()
	if err != nil || n != 2 {
		t.Fatalf("PageCount() = %d, %v; want 2", n, err)
	}

	path := pdftest.New()
	path.Pages(pdftest.Page{Content: ""})
	name := path.WriteFile(t, "one.pdf")
	if got := Must(Open(name).PageCount()); got != 1 {
		t.Errorf("PageCount() = %d, want 1", got)
	}
}

func TestOnPage(t *testing.T) {
	var calls atomic.Int32
	_, err := FromBytes(helloPDF(t)).
		Renderer(render.Outline{}).
		Workers(2).
		OnPage(func(*pipeline.PageResult) { calls.Add(1) }).
		WriteHTML(context.Background(), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("OnPage called %d times, want 2", calls.Load())
	}
}

func TestMustHTMLPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustHTML did not panic")
		}
	}()
	MustHTML(Open("does-not-exist.pdf").ToHTML(context.Background()))
}

func TestFormatWarnings(t *testing.T) {
	ws := warningsFrom([]diag.Diagnostic{
		{Severity: diag.Degraded, Kind: diag.KindRender, Page: 3, Message: "render failed"},
		{Severity: diag.Info, Kind: diag.KindToUnicode, Message: "2 codes unresolved"},
	})
	got := FormatWarnings(ws)
	want := "page 3: render failed (render)\n2 codes unresolved (tounicode)"
	if got != want {
		t.Errorf("FormatWarnings() = %q, want %q", got, want)
	}
	if warningsFrom(nil) != nil {
		t.Error("warningsFrom(nil) should be nil")
	}
}
