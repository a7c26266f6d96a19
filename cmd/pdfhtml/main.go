// Command pdfhtml converts a PDF into a single self-contained HTML file.
//
// Usage:
//
//	pdfhtml [options] input.pdf
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/tsawler/pdfhtml"
	"github.com/tsawler/pdfhtml/classify"
	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/htmldoc"
	"github.com/tsawler/pdfhtml/render"
	"github.com/tsawler/pdfhtml/webfont"
)

func main() {
	output := flag.String("o", "", "output file (default: input name with .html)")
	dpi := flag.Int("dpi", 150, "background raster resolution")
	workers := flag.Int("workers", 0, "concurrent pages and fonts (default: GOMAXPROCS)")
	renderer := flag.String("renderer", "auto", "page rasterizer: auto, fitz, exec or outline")
	noWOFF2 := flag.Bool("no-woff2", false, "embed fonts as WOFF instead of WOFF2")
	fontforge := flag.String("fontforge", "", "path to fontforge for CFF and Type 1 fonts")
	maxRotation := flag.Float64("max-rotation", classify.DefaultPolicy().MaxRotation, "largest glyph rotation in degrees kept as text")
	audit := flag.Bool("audit", false, "OCR erased regions for leftover text (needs the ocr build tag)")
	verbose := flag.Bool("v", false, "verbose logging")
	verify := flag.Bool("verify", false, "re-read the written file and print a summary")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.pdf\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	input := flag.Arg(0)
	if *output == "" {
		*output = strings.TrimSuffix(input, filepath.Ext(input)) + ".html"
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	pdfhtml.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	r, err := render.ByName(*renderer)
	if err != nil {
		fatal(err)
	}
	policy := classify.DefaultPolicy()
	policy.MaxRotation = *maxRotation

	conv := pdfhtml.Open(input).
		DPI(*dpi).
		Workers(*workers).
		Renderer(r).
		WOFF2(!*noWOFF2).
		Policy(policy).
		Audit(*audit)
	if *fontforge != "" {
		conv = conv.FontTool(webfont.NewFontForgeTool(*fontforge))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := os.Create(*output)
	if err != nil {
		fatal(err)
	}
	warnings, err := conv.WriteHTML(ctx, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	for _, w := range warnings {
		if w.Severity > diag.Info || *verbose {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
	}
	if err != nil {
		os.Remove(*output)
		if errors.Is(err, diag.ErrEncrypted) {
			fatal(fmt.Errorf("%s is encrypted", input))
		}
		fatal(err)
	}

	if *verify {
		sum, err := htmldoc.Open(*output)
		if err != nil {
			fatal(fmt.Errorf("verify: %w", err))
		}
		fmt.Printf("%s: %d pages, %d fonts\n", *output, len(sum.Pages), len(sum.Faces))
		for _, p := range sum.Pages {
			state := fmt.Sprintf("%d spans", len(p.Spans))
			if p.Skipped {
				state = "skipped"
			}
			fmt.Printf("  page %d: %.0fx%.0f, %s\n", p.Number, p.Width, p.Height, state)
		}
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "pdfhtml: %v\n", err)
	os.Exit(1)
}
