package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver is an interface for resolving indirect references.
// The parser needs it for streams whose /Length is indirect.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// maxDepth bounds nesting of arrays and dictionaries.
const maxDepth = 256

// Parser builds PDF objects from a Lexer.
type Parser struct {
	lexer    *Lexer
	resolver ReferenceResolver
	depth    int
}

// NewParser creates a parser over data, positioned at offset 0.
func NewParser(data []byte) *Parser {
	return &Parser{lexer: NewLexer(data)}
}

// SetReferenceResolver sets the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// Lexer exposes the underlying lexer.
func (p *Parser) Lexer() *Lexer { return p.lexer }

// Seek moves the parser to an absolute offset.
func (p *Parser) Seek(offset int) { p.lexer.SetPos(offset) }

func (p *Parser) next() (Token, error) {
	for {
		tok, err := p.lexer.NextToken()
		if err != nil || tok.Type != TokenComment {
			return tok, err
		}
	}
}

func (p *Parser) peek() (Token, error) {
	pos := p.lexer.Pos()
	tok, err := p.next()
	p.lexer.SetPos(pos)
	return tok, err
}

// ParseObject parses the next direct object or indirect reference. It
// returns io.EOF at the end of input.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	return p.objectFrom(tok)
}

func (p *Parser) objectFrom(tok Token) (Object, error) {
	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF
	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.Value, tok.Pos)
	case TokenInteger:
		return p.parseNumber(tok)
	case TokenReal:
		return parseReal(tok)
	case TokenString, TokenHexString:
		return String(tok.Value), nil
	case TokenName:
		return Name(tok.Value), nil
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDict()
	}
	return nil, fmt.Errorf("unexpected %s at offset %d", tok, tok.Pos)
}

func parseReal(tok Token) (Object, error) {
	s := string(tok.Value)
	if s == "-" || s == "+" || s == "." || s == "-." {
		return Real(0), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid real %q at offset %d", s, tok.Pos)
	}
	return Real(f), nil
}

// parseNumber returns an Int, or an IndirectRef when the integer is followed
// by a second integer and R.
func (p *Parser) parseNumber(tok Token) (Object, error) {
	n, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		return parseReal(tok)
	}

	save := p.lexer.Pos()
	gen, err := p.next()
	if err == nil && gen.Type == TokenInteger {
		r, err := p.next()
		if err == nil && r.Type == TokenIndirectRef {
			g, _ := strconv.Atoi(string(gen.Value))
			return IndirectRef{Number: int(n), Generation: g}, nil
		}
	}
	p.lexer.SetPos(save)
	return Int(n), nil
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return fmt.Errorf("objects nested deeper than %d", maxDepth)
	}
	return nil
}

func (p *Parser) parseArray() (Object, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	arr := Array{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected EOF in array")
		}
		obj, err := p.objectFrom(tok)
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	dict := Dict{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected EOF in dictionary")
		case TokenName:
		default:
			return nil, fmt.Errorf("dictionary key must be a name, got %s", tok)
		}
		key := string(tok.Value)

		val, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("value for /%s: %w", key, err)
		}
		// A null value is equivalent to an absent entry.
		if _, isNull := val.(Null); !isNull {
			dict[key] = val
		}
	}
}

// ParseIndirectObject parses "num gen obj ... endobj" at the current
// position, including a trailing stream body.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	num, err := p.expectInt("object number")
	if err != nil {
		return nil, err
	}
	gen, err := p.expectInt("generation number")
	if err != nil {
		return nil, err
	}
	if tok, err := p.next(); err != nil || tok.Type != TokenKeyword || string(tok.Value) != "obj" {
		return nil, fmt.Errorf("object %d %d: expected obj keyword", num, gen)
	}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
	}

	tok, err := p.peek()
	if err == nil && tok.Type == TokenKeyword && string(tok.Value) == "stream" {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("object %d %d: stream must follow a dictionary", num, gen)
		}
		p.next()
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
		}
		obj = stream
	}
	// A missing endobj is tolerated; the xref already told us where the
	// object starts.

	return &IndirectObject{Ref: IndirectRef{Number: num, Generation: gen}, Object: obj}, nil
}

func (p *Parser) expectInt(what string) (int, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	if tok.Type != TokenInteger {
		return 0, fmt.Errorf("expected %s at offset %d, got %s", what, tok.Pos, tok)
	}
	return strconv.Atoi(string(tok.Value))
}

var errBadLength = errors.New("stream length does not reach endstream")

// parseStream reads the stream body that follows the stream keyword. When
// /Length is missing or wrong the body is recovered by searching for the
// endstream keyword.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	p.lexer.SkipStreamEOL()
	start := p.lexer.Pos()

	data, err := p.readByLength(dict, start)
	if err != nil {
		data, err = p.readToEndstream(start)
		if err != nil {
			return nil, err
		}
	}
	return &Stream{Dict: dict, Data: data}, nil
}

func (p *Parser) readByLength(dict Dict, start int) ([]byte, error) {
	var length int
	switch v := dict.Get("Length").(type) {
	case Int:
		length = int(v)
	case IndirectRef:
		if p.resolver == nil {
			return nil, fmt.Errorf("indirect stream length needs a resolver")
		}
		resolved, err := p.resolver.ResolveReference(v)
		if err != nil {
			return nil, fmt.Errorf("stream length: %w", err)
		}
		n, ok := resolved.(Int)
		if !ok {
			return nil, fmt.Errorf("stream length resolved to %s", resolved.Type())
		}
		length = int(n)
	default:
		return nil, fmt.Errorf("missing stream length")
	}

	data, err := p.lexer.ReadBytes(length)
	if err != nil {
		return nil, err
	}
	tok, err := p.next()
	if err != nil || tok.Type != TokenKeyword || string(tok.Value) != "endstream" {
		p.lexer.SetPos(start)
		return nil, errBadLength
	}
	return data, nil
}

func (p *Parser) readToEndstream(start int) ([]byte, error) {
	rest := p.lexer.Data()[start:]
	i := bytes.Index(rest, []byte("endstream"))
	if i < 0 {
		return nil, fmt.Errorf("stream at offset %d has no endstream", start)
	}
	data := bytes.TrimRight(rest[:i], "\r\n")
	p.lexer.SetPos(start + i + len("endstream"))
	return data, nil
}
