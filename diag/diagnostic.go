// Package diag holds the error taxonomy shared by the conversion packages
// and a collector for the non-fatal diagnostics they record.
package diag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tsawler/pdfhtml/model"
)

// Severity grades a diagnostic.
type Severity int

const (
	// Info records a decision with no loss of fidelity.
	Info Severity = iota
	// Degraded records a fallback: text moved to the background, a lesser
	// font format, a dropped font.
	Degraded
	// PageFailed records a page that was skipped.
	PageFailed
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Degraded:
		return "degraded"
	case PageFailed:
		return "page-failed"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Kind names the error class a diagnostic belongs to.
type Kind string

const (
	KindRender     Kind = "render"
	KindExtraction Kind = "font-extraction"
	KindSubset     Kind = "font-subset"
	KindConversion Kind = "font-conversion"
	KindToUnicode  Kind = "tounicode"
	KindErasure    Kind = "erasure"
	KindCancelled  Kind = "cancelled"
	KindAudit      Kind = "audit"
	KindOther      Kind = "other"
)

// Diagnostic is a single recorded degradation. Page is 1-based and zero for
// document-wide entries.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Page     int
	Font     model.FontRef
	Message  string
	Err      error
}

func (d Diagnostic) String() string {
	loc := "document"
	if d.Page > 0 {
		loc = fmt.Sprintf("page %d", d.Page)
	}
	if !d.Font.IsZero() {
		loc += " font " + d.Font.String()
	}
	return fmt.Sprintf("[%s] %s: %s: %s", d.Severity, d.Kind, loc, d.Message)
}

// FromError builds a diagnostic from one of the taxonomy errors.
func FromError(page int, err error) Diagnostic {
	d := Diagnostic{Severity: Degraded, Page: page, Message: err.Error(), Err: err}

	var (
		renderErr  *RenderError
		extractErr *FontExtractionError
		subsetErr  *FontSubsetError
		convErr    *FontConversionError
		uniErr     *ToUnicodeResolutionFailure
	)
	switch {
	case errors.As(err, &renderErr):
		d.Severity, d.Kind, d.Page = PageFailed, KindRender, renderErr.Page
	case errors.As(err, &extractErr):
		d.Kind, d.Font = KindExtraction, extractErr.Font
	case errors.As(err, &subsetErr):
		d.Kind, d.Font = KindSubset, subsetErr.Font
	case errors.As(err, &convErr):
		d.Kind, d.Font = KindConversion, convErr.Font
	case errors.As(err, &uniErr):
		d.Kind, d.Font = KindToUnicode, uniErr.Font
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		d.Severity, d.Kind = PageFailed, KindCancelled
	default:
		d.Kind = KindOther
	}
	return d
}

// Collector accumulates diagnostics from concurrent workers.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Add records d.
func (c *Collector) Add(d Diagnostic) {
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// AddError records err as a diagnostic for page.
func (c *Collector) AddError(page int, err error) {
	if err == nil {
		return
	}
	c.Add(FromError(page, err))
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Sorted returns a copy ordered by page, kind, font and message so output
// does not depend on worker scheduling.
func (c *Collector) Sorted() []Diagnostic {
	c.mu.Lock()
	out := append([]Diagnostic(nil), c.items...)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Font != b.Font {
			return a.Font.Less(b.Font)
		}
		return a.Message < b.Message
	})
	return out
}
