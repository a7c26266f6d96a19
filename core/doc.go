// Package core is the PDF object layer: the object types, a lexer and
// parser for file and content syntax, cross-reference loading and object
// streams.
//
// Every parsed value satisfies [Object]: [Null], [Bool], [Int], [Real],
// [String], [Name], [Array], [Dict], [Stream] and [IndirectRef]. Dictionary
// and array accessors return nil for missing entries.
//
// [LoadXRef] follows /Prev and /XRefStm across classic tables and xref
// streams. When the recorded table is unusable, [ReconstructXRef] rebuilds
// one by scanning for "n g obj" headers. [Parser] recovers stream bodies
// whose /Length is wrong by searching for endstream.
//
// [Stream.Decode] runs the /Filter chain through internal/filters. Results
// are never cached on the stream, so one Stream may be decoded from several
// page workers at once.
package core
