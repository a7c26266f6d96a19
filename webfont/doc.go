// Package webfont turns subset font programs into @font-face payloads.
//
// [Converter.Convert] tries WOFF2, then WOFF, then the program's own sfnt
// format. Programs the browser cannot use at all (no Unicode cmap, or a bare
// CFF or Type 1 program with no [Tool] to convert it) are dropped, and the
// text using them falls back to a system font.
package webfont
