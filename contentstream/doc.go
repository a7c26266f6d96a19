// Package contentstream splits a decoded page or form content stream into
// operations.
//
//	ops, err := contentstream.NewParser(data).Parse()
//	for _, op := range ops {
//	    if op.Operator == "Tf" {
//	        name, _ := op.Name(0)
//	        size := op.Float(1)
//	        ...
//	    }
//	}
//
// Operands are core objects in the order they appeared; [Operation.Float]
// and [Operation.Floats] read numeric operands without type switches.
//
// An inline image (BI ... ID ... EI) comes back as one "BI" operation whose
// only operand is a *core.Stream, with abbreviated keys such as /W and /F
// expanded. The image data ends at the first EI with whitespace on both
// sides.
//
// A Parser owns its operand stack, so parsers may run on different pages
// at once.
package contentstream
