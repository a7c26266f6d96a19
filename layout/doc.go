// Package layout places the text layer over the page raster.
//
// [PageLayout] is the single page-to-pixel transform for a page: it covers
// the crop box origin, /Rotate, the y flip and the DPI zoom. The renderer,
// the background eraser and [Compose] all take the same value.
//
// [Compose] walks the extractable glyphs of a page in content-stream order
// and cuts them into runs. A run ends when the font, size, colour or
// baseline changes, or when the next glyph sits further than [RunConfig]
// GapEm past where the previous advance left off. Each run becomes one
// [Node] with pixel position, size and letter-spacing.
package layout
