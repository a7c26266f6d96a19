// Package pages flattens the PDF page tree.
//
// [Flatten] walks the tree in document order and returns one [Page] per leaf.
// Inheritable attributes (MediaBox, CropBox, Resources, Rotate) are taken
// from the nearest ancestor that sets them, so a page deep in the tree sees
// resources declared on the root. Cycles and absurdly deep trees are
// reported as errors.
//
// Resolution of indirect references is abstracted by [ObjectResolver], so
// the package does not depend on the reader.
package pages
