// Package background removes text-layer glyphs from the page raster.
//
// Every glyph that goes to the HTML text layer must vanish from the image
// beneath it, or the page shows it twice. [Eraser.Erase] paints each
// extractable glyph's padded pixel box with white, or with the sampled
// surrounding colour when the text itself is near white. Boxes of glyphs
// that stay in the background are never painted, nor are painted paths
// unless they lie entirely behind the glyph.
//
// The [Raster] mask records painted pixels, so erasing a region twice
// changes nothing. Large glyphs over busy backgrounds are demoted to the
// background instead of being erased.
package background
