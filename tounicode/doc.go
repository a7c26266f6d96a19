// Package tounicode resolves the character codes of a font to Unicode text.
//
// [Resolve] consults, per code and in priority order:
//
//  1. the embedded ToUnicode CMap
//  2. the simple-font encoding with its /Differences glyph names
//  3. the CID ordering of a composite font, through the program's cmap
//  4. the program's own cmap and glyph names
//
// Each [Entry] records the text, the glyph the code selects, the source and a
// confidence tier. Text that is empty, a control character, U+FFFD or in a
// private use area never counts as resolved. A source whose letters fold
// upper and lower case onto the same glyphs is rejected as a whole.
//
// Resolution depends only on the font's bytes, so equal fonts give equal
// tables; [Table.Digest] makes that cheap to check.
package tounicode
