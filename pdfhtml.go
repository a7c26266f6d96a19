// Package pdfhtml converts PDF documents into self-contained dual-layer HTML:
// a background raster of everything that is not reliable text, overlaid
// with absolutely positioned, selectable text set in subset web fonts.
//
// Basic usage:
//
//	html, warnings, err := pdfhtml.Open("document.pdf").ToHTML(ctx)
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", pdfhtml.FormatWarnings(warnings))
//	}
//
// With options:
//
//	warnings, err := pdfhtml.Open("report.pdf").
//	    DPI(200).
//	    Workers(4).
//	    WOFF2(false).
//	    WriteHTML(ctx, w)
//
// For finer control, the pipeline package is also available.
package pdfhtml

import (
	"log/slog"

	"github.com/tsawler/pdfhtml/internal/logging"
)

// Open returns a Converter for the PDF at filename. Nothing is read until a
// terminal method (Convert, ToHTML, WriteHTML) runs.
//
// Example:
//
//	html, warnings, err := pdfhtml.Open("document.pdf").ToHTML(ctx)
func Open(filename string) *Converter {
	return &Converter{filename: filename, options: defaultOptions()}
}

// FromBytes returns a Converter for a PDF held in memory. data must not be
// modified afterwards.
func FromBytes(data []byte) *Converter {
	return &Converter{data: data, options: defaultOptions()}
}

// SetLogger sets the logger every package in the module writes to. The
// default discards everything; nil restores it.
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	n := pdfhtml.Must(pdfhtml.Open("document.pdf").PageCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustHTML wraps ToHTML and panics if the error is non-nil. Warnings are
// discarded.
//
// Example:
//
//	html := pdfhtml.MustHTML(pdfhtml.Open("doc.pdf").ToHTML(ctx))
func MustHTML[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
