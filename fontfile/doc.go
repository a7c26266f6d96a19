// Package fontfile parses embedded font programs into explicit tables.
//
// Parse accepts TrueType, OpenType-CFF, collections, bare CFF and Type 1
// data, and finds an sfnt wrapped at a non-zero offset. It validates the
// table directory against the buffer, refuses overlapping or out-of-range
// records, and records checksum mismatches as warnings. Table bytes are kept
// as sub-slices of the input so the subsetter can copy them bit for bit.
//
// The package also writes sfnt data: Assemble lays out tables with fresh
// checksums and head.checkSumAdjustment, and the Build helpers produce cmap,
// name, post, hhea, hmtx and loca tables.
package fontfile
