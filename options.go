package pdfhtml

import (
	"github.com/tsawler/pdfhtml/background"
	"github.com/tsawler/pdfhtml/classify"
	"github.com/tsawler/pdfhtml/layout"
	"github.com/tsawler/pdfhtml/pipeline"
	"github.com/tsawler/pdfhtml/render"
	"github.com/tsawler/pdfhtml/webfont"
)

// convertOptions holds the configuration a Converter carries.
type convertOptions struct {
	dpi          float64
	workers      int
	memoryBudget int64
	woff2        bool
	audit        bool

	classify   classify.Policy
	background background.Policy

	renderer render.Renderer
	fontTool webfont.Tool

	onPage func(*pipeline.PageResult)
}

// defaultOptions returns the default conversion options. Workers, the
// renderer and the font tool are left for the pipeline to fill in.
func defaultOptions() convertOptions {
	return convertOptions{
		dpi:        layout.DefaultDPI,
		woff2:      true,
		classify:   classify.DefaultPolicy(),
		background: background.DefaultPolicy(),
	}
}

// clone returns a copy. Every field is a value or an immutable reference.
func (o convertOptions) clone() convertOptions {
	return o
}

func (o convertOptions) config() pipeline.Config {
	return pipeline.Config{
		DPI:          o.dpi,
		Workers:      o.workers,
		MemoryBudget: o.memoryBudget,
		NoWOFF2:      !o.woff2,
		Classify:     o.classify,
		Background:   o.background,
		Renderer:     o.renderer,
		FontTool:     o.fontTool,
		Audit:        o.audit,
		OnPage:       o.onPage,
	}
}
