// Package model holds the value types shared by the conversion stages:
// page-space geometry ([Point], [BBox], [Matrix]) and the [Glyph] instances
// that flow from content-stream interpretation through classification,
// erasure and HTML composition.
//
// Page space follows PDF: units are points (1/72 inch) and Y grows upward.
// Matrices use the PDF row-vector convention, so
//
//	trm := textSpace.Multiply(ctm)
//
// maps a text-space point first through textSpace and then through ctm.
package model
