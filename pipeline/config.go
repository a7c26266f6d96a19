package pipeline

import (
	"log/slog"
	"runtime"

	"github.com/tsawler/pdfhtml/background"
	"github.com/tsawler/pdfhtml/classify"
	"github.com/tsawler/pdfhtml/internal/logging"
	"github.com/tsawler/pdfhtml/layout"
	"github.com/tsawler/pdfhtml/render"
	"github.com/tsawler/pdfhtml/webfont"
)

// Config controls a conversion. The zero value is usable: defaults fills
// every unset field.
type Config struct {
	// DPI is the background raster resolution (default: 150)
	DPI float64

	// Workers bounds concurrent page and font work (default: GOMAXPROCS)
	Workers int

	// MemoryBudget caps Workers so that that many rasters of the largest
	// page fit in this many bytes. Zero means no cap.
	MemoryBudget int64

	// NoWOFF2 turns off the Brotli-compressed web font format.
	NoWOFF2 bool

	Classify   classify.Policy
	Background background.Policy
	Runs       layout.RunConfig

	// Renderer produces page rasters (default: render.Auto())
	Renderer render.Renderer

	// FontTool converts bare CFF and Type 1 programs (default: fontforge
	// from PATH)
	FontTool webfont.Tool

	// Audit runs OCR over erased regions. It needs the ocr build tag and
	// is skipped with a diagnostic otherwise.
	Audit bool

	// OnPage receives each finished page, in completion order. It may be
	// called from several goroutines at once.
	OnPage func(*PageResult)

	Logger *slog.Logger
}

func (c Config) defaults() Config {
	if c.DPI <= 0 {
		c.DPI = layout.DefaultDPI
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Classify == (classify.Policy{}) {
		c.Classify = classify.DefaultPolicy()
	}
	if c.Background == (background.Policy{}) {
		c.Background = background.DefaultPolicy()
	}
	if c.Runs == (layout.RunConfig{}) {
		c.Runs = layout.DefaultRunConfig()
	}
	if c.Renderer == nil {
		c.Renderer = render.Auto()
	}
	if c.FontTool == nil {
		c.FontTool = webfont.NewFontForgeTool("")
	}
	c.Logger = logging.Or(c.Logger)
	return c
}

// workersFor applies the memory budget to the largest raster.
func (c Config) workersFor(maxRaster int64) int {
	w := c.Workers
	if c.MemoryBudget <= 0 || maxRaster <= 0 {
		return w
	}
	fit := int(c.MemoryBudget / maxRaster)
	if fit < 1 {
		fit = 1
	}
	return min(w, fit)
}
