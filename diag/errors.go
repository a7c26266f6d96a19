package diag

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfhtml/model"
)

// Sentinel errors. Match them with errors.Is; the typed errors below wrap
// them where they apply.
var (
	ErrEncrypted       = errors.New("document is encrypted")
	ErrAllPagesFailed  = errors.New("every page failed")
	ErrEmptySubset     = errors.New("no glyphs referenced")
	ErrMissingOutline  = errors.New("outline data missing")
	ErrNoUnicodeCmap   = errors.New("no usable unicode cmap")
	ErrToolUnavailable = errors.New("conversion tool unavailable")
	ErrNoRenderer      = errors.New("no page renderer available")
)

// DocumentLoadError reports a corrupt, unreadable or encrypted input.
// It aborts the whole conversion.
type DocumentLoadError struct {
	Path string
	Err  error
}

func (e *DocumentLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load document: %v", e.Err)
	}
	return fmt.Sprintf("load document %s: %v", e.Path, e.Err)
}

func (e *DocumentLoadError) Unwrap() error { return e.Err }

// RenderError reports a rendering collaborator failure for one page.
// Pages are numbered from 1.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// FontExtractionError reports a font program that could not be parsed.
type FontExtractionError struct {
	Font model.FontRef
	Err  error
}

func (e *FontExtractionError) Error() string {
	return fmt.Sprintf("extract font %s: %v", e.Font, e.Err)
}

func (e *FontExtractionError) Unwrap() error { return e.Err }

// FontSubsetError reports a subsetting failure. Missing lists the glyph ids
// whose outlines were absent; it is empty when the whole subset failed.
type FontSubsetError struct {
	Font    model.FontRef
	Missing []model.GID
	Err     error
}

func (e *FontSubsetError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("subset font %s: %v (gids %v)", e.Font, e.Err, e.Missing)
	}
	return fmt.Sprintf("subset font %s: %v", e.Font, e.Err)
}

func (e *FontSubsetError) Unwrap() error { return e.Err }

// FontConversionError reports a web font format that could not be produced.
// Format names the target that failed ("woff2", "cff-to-ttf", ...).
type FontConversionError struct {
	Font   model.FontRef
	Format string
	Err    error
}

func (e *FontConversionError) Error() string {
	return fmt.Sprintf("convert font %s to %s: %v", e.Font, e.Format, e.Err)
}

func (e *FontConversionError) Unwrap() error { return e.Err }

// ToUnicodeResolutionFailure describes glyphs of a font that resolved to
// the unresolved tier. It is recorded, never returned to callers.
type ToUnicodeResolutionFailure struct {
	Font  model.FontRef
	Count int
}

func (e *ToUnicodeResolutionFailure) Error() string {
	return fmt.Sprintf("font %s: %d glyph(s) without unicode mapping", e.Font, e.Count)
}
