// Package htmldoc assembles the dual-layer HTML artifact and reads it back.
//
// A Writer builds the document as a golang.org/x/net/html node tree: one
// <style> element carrying an @font-face rule per web font, then one
// <div class="page"> per page. Each page holds a background layer (an <img>
// with a PNG data URI) and a text layer of absolutely positioned spans.
//
// Pages are laid out at 72 CSS pixels per inch, so a page box matches the
// PDF page size in points whatever DPI the background was rendered at.
//
// Parse reads an artifact back into a Summary. The tests and the command
// line -verify flag use it to check what was written.
package htmldoc
