// Package font reads PDF font dictionaries into a [Descriptor].
//
// A Descriptor answers the questions the content interpreter and the
// Unicode resolver ask of a font:
//
//   - how a show-string splits into character codes ([Descriptor.Codes])
//   - how far each code advances ([Descriptor.Width], from /Widths, /W, /DW,
//     the standard 14 metrics or the embedded program)
//   - which glyph a code selects ([Descriptor.GID], through CIDToGIDMap,
//     the program's cmap subtables or glyph names)
//   - what Unicode sources exist: the ToUnicode [CMap] and the simple-font
//     [Encoding] with its /Differences
//
// Embedded programs are decoded and parsed with package fontfile. A program
// that fails to parse does not fail [Load]; the error is kept in
// ProgramErr as a *diag.FontExtractionError so the font can degrade.
//
// # Encodings
//
// StandardEncoding is built in. WinAnsiEncoding and MacRomanEncoding come
// from golang.org/x/text/encoding/charmap. Glyph names resolve through a
// subset of the Adobe Glyph List, with uniXXXX and uXXXX[XX] names parsed.
//
// # CMaps
//
// [ParseCMap] reads codespace ranges, bfchar, bfrange (both forms), cidchar
// and cidrange sections. Destinations are UTF-16BE.
package font
