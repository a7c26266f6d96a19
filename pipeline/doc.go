// Package pipeline runs a whole document through the conversion.
//
// Work happens in phases. Pages are interpreted and their glyphs
// classified in a bounded worker pool. A barrier then collects, for every
// font, the character codes the text layer shows across the document. Each
// font is subset and packaged for the web once, through a single-flight
// Cache, and glyphs whose font failed or whose outline fell out of the
// subset move to the background. Finally every page is rendered, erased and
// composed into text nodes, again in the pool.
//
// Pages are independent: a page whose render fails, or that is cancelled
// with CancelPage, is skipped and the rest go on. Only a document that
// cannot be loaded, or one where every page failed, is an error.
package pipeline
