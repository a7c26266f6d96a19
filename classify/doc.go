// Package classify decides, glyph by glyph, between the HTML text layer and
// the background raster.
//
// A glyph is extractable only when its font is available, its code resolved
// to usable text, its render mode leaves ink (not clip-only, and not
// invisible unless the [Policy] allows it), its box has area, and its
// rotation and skew in device space are within the policy's tolerances.
// Anything else stays in the background: a wrong or garbled text layer is
// worse than an image of the right text.
//
// [Classify] is a pure function of the glyph, its font's table and the
// policy. It writes only the glyph's Text, Tier and Extractable fields.
package classify
