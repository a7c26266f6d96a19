package contentstream

import (
	"bytes"
	"fmt"

	"github.com/tsawler/pdfhtml/core"
)

// Operation represents a single content stream operation consisting of an
// operator and its operands. Operands are PDF objects that precede the operator.
//
// An inline image (BI ... ID ... EI) becomes one operation with operator
// "BI" and a single *core.Stream operand holding the expanded image
// dictionary and the raw image bytes.
type Operation struct {
	Operator string
	Operands []core.Object
}

// Parser parses PDF content streams into a sequence of operations.
type Parser struct {
	obj     *core.Parser
	operand []core.Object
}

// NewParser creates a new content stream parser for the given data.
func NewParser(data []byte) *Parser {
	return &Parser{obj: core.NewParser(data)}
}

// Parse returns every operation in order. On malformed input it returns the
// operations parsed so far together with the error, so a caller can still
// use a partially damaged stream.
func (p *Parser) Parse() ([]Operation, error) {
	var ops []Operation
	lex := p.obj.Lexer()
	for {
		start := lex.Pos()
		tok, err := lex.NextToken()
		if err != nil {
			return ops, fmt.Errorf("offset %d: %w", start, err)
		}

		switch tok.Type {
		case core.TokenEOF:
			return ops, nil
		case core.TokenComment:
			continue
		case core.TokenKeyword:
			switch kw := string(tok.Value); kw {
			case "true", "false", "null":
			case "BI":
				op, err := p.inlineImage()
				if err != nil {
					return ops, err
				}
				ops = append(ops, op)
				p.operand = nil
				continue
			default:
				ops = append(ops, Operation{Operator: kw, Operands: p.operand})
				p.operand = nil
				continue
			}
		case core.TokenArrayEnd, core.TokenDictEnd:
			return ops, fmt.Errorf("offset %d: unbalanced %q", tok.Pos, tok.Value)
		}

		lex.SetPos(tok.Pos)
		obj, err := p.obj.ParseObject()
		if err != nil {
			return ops, fmt.Errorf("offset %d: %w", tok.Pos, err)
		}
		p.operand = append(p.operand, obj)
	}
}

// inlineImage reads the dictionary after BI, the ID keyword and the data up
// to an EI delimited by whitespace.
func (p *Parser) inlineImage() (Operation, error) {
	lex := p.obj.Lexer()
	dict := core.Dict{}
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return Operation{}, err
		}
		if tok.Type == core.TokenKeyword && string(tok.Value) == "ID" {
			break
		}
		if tok.Type != core.TokenName {
			return Operation{}, fmt.Errorf("offset %d: inline image key is %s", tok.Pos, tok)
		}
		val, err := p.obj.ParseObject()
		if err != nil {
			return Operation{}, fmt.Errorf("inline image /%s: %w", tok.Value, err)
		}
		key := string(tok.Value)
		if full, ok := inlineKeys[key]; ok {
			key = full
		}
		if n, ok := val.(core.Name); ok {
			if full, ok := inlineNames[string(n)]; ok {
				val = core.Name(full)
			}
		}
		dict[key] = val
	}

	// A single whitespace byte separates ID from the data.
	data := lex.Data()
	start := lex.Pos() + 1
	if start > len(data) {
		start = len(data)
	}
	end := findEI(data, start)
	if end < 0 {
		return Operation{}, fmt.Errorf("inline image at offset %d has no EI", start)
	}
	img := &core.Stream{Dict: dict, Data: bytes.TrimRight(data[start:end], "\r\n \t")}
	lex.SetPos(end + 2)
	return Operation{Operator: "BI", Operands: []core.Object{img}}, nil
}

func findEI(data []byte, from int) int {
	for i := from; i+1 < len(data); i++ {
		if data[i] != 'E' || data[i+1] != 'I' {
			continue
		}
		before := i == from || core.IsWhitespace(data[i-1])
		after := i+2 == len(data) || core.IsWhitespace(data[i+2])
		if before && after {
			return i
		}
	}
	return -1
}

var inlineKeys = map[string]string{
	"BPC": "BitsPerComponent",
	"CS":  "ColorSpace",
	"D":   "Decode",
	"DP":  "DecodeParms",
	"F":   "Filter",
	"H":   "Height",
	"IM":  "ImageMask",
	"I":   "Interpolate",
	"W":   "Width",
}

var inlineNames = map[string]string{
	"G":    "DeviceGray",
	"RGB":  "DeviceRGB",
	"CMYK": "DeviceCMYK",
	"AHx":  "ASCIIHexDecode",
	"A85":  "ASCII85Decode",
	"Fl":   "FlateDecode",
	"LZW":  "LZWDecode",
	"RL":   "RunLengthDecode",
	"CCF":  "CCITTFaxDecode",
	"DCT":  "DCTDecode",
}

// Float returns operand i as a number, or 0 if it is missing or not numeric.
func (op Operation) Float(i int) float64 {
	if i < 0 || i >= len(op.Operands) {
		return 0
	}
	v, _ := core.Number(op.Operands[i])
	return v
}

// Floats returns all operands as numbers. ok is false if any is not numeric.
func (op Operation) Floats() ([]float64, bool) {
	return core.Array(op.Operands).Numbers()
}

// Name returns operand i as a name.
func (op Operation) Name(i int) (core.Name, bool) {
	if i < 0 || i >= len(op.Operands) {
		return "", false
	}
	n, ok := op.Operands[i].(core.Name)
	return n, ok
}
