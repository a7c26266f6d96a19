// Package text interprets PDF content streams into positioned glyphs.
//
// # Extraction
//
// The [Extractor] walks a page's operations in order and emits one
// model.Glyph per shown character code, along with painted paths and image
// placements:
//
//	ex := text.NewExtractor(r, text.WithFontSource(cache))
//	content, err := ex.ExtractPage(page)
//
// Each glyph carries its code, font reference, GID, page-space bounding box,
// text rendering matrix, fill colour, render mode and sequence number. The
// glyph's text is left empty; resolving it is the job of packages tounicode
// and classify.
//
// Form XObjects are interpreted in place with their /Matrix and /Resources,
// up to [DefaultMaxFormDepth] levels. Fonts that fail to load are reported in
// Content.Problems and their text produces no glyphs.
//
// # Fonts
//
// Font dictionaries are loaded through a [FontSource]. [FontCache] is the
// default; sharing one cache across pages loads each font once per document.
//
// # Text Direction
//
// [DetectDirection] classifies a run by the Unicode bidi classes of its
// characters. Runs are written in content order; RTL runs only get a dir
// attribute.
package text
