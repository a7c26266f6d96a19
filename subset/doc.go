// Package subset cuts embedded font programs down to the glyphs a page's
// text layer uses.
//
// Glyph ids never change: dropped glyphs keep their slot with an empty
// outline and zero advance, so GIDs recorded before subsetting stay valid.
// TrueType programs get the composite closure of the requested glyphs, a
// long-format loca, full-length hmtx, a format 3 post, a new name and a cmap
// built from the text layer's code points. OpenType-CFF programs keep their
// charstrings whole and get new cmap, name and post tables.
package subset
