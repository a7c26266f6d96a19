// Package graphicsstate provides PDF graphics state management.
//
// The PDF graphics state controls how content is rendered, including
// transformation matrices, colors, line properties, and text state.
// This package implements the state stack used during content stream
// processing.
//
// # Graphics State
//
// The main type is GraphicsState, which tracks:
//   - CTM (Current Transformation Matrix) for coordinate transformations
//   - Line width
//   - Colors (stroke and fill), reduced to RGB
//   - Text state (font, size, spacing, matrices, rendering mode)
//
// Example usage:
//
//	gs := graphicsstate.NewGraphicsState()
//	gs.Save()                   // Push state (q operator)
//	gs.Transform(matrix)        // Modify CTM (cm operator)
//	gs.SetFont("F1", 12, font)  // Set font (Tf operator)
//	gs.Restore()                // Pop state (Q operator)
//
// # Text positioning
//
// TextRenderingMatrix returns [fs*Th 0 0 fs 0 rise] × Tm × CTM. GlyphAdvance
// and AdvanceText move the pen by a glyph's width, and Kern applies TJ
// adjustments.
//
// # Path Operations
//
// PathExtractor records every filled or stroked path in page space, with its
// ink extent. Those extents mark non-text ink that text erasure must leave
// alone, and the outline renderer fills the recorded segments.
package graphicsstate
