// Package render produces full-page background rasters.
//
// A [Renderer] draws one page at the resolution and size fixed by the
// request's layout.PageLayout. [Exec] runs pdftoppm or mutool, [Fitz] links
// MuPDF in process when built with the "fitz" tag, and [Outline] is a
// pure-Go fallback that draws glyph outlines and shape extents. [Chain]
// tries renderers in turn. Every failure is a *diag.RenderError; the page it
// names is skipped, the rest of the document is not.
package render
