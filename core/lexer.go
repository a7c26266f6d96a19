package core

import (
	"bytes"
	"fmt"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenComment
	TokenKeyword     // true, false, null, obj, stream, and content operators
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello)
	TokenHexString   // <48656C6C6F>, value already decoded
	TokenName        // /Type
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenIndirectRef // R
)

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int
}

func (t Token) String() string {
	return fmt.Sprintf("token(%d %q @%d)", t.Type, t.Value, t.Pos)
}

// Lexer tokenizes PDF syntax held in memory. The same lexer serves file
// bodies and page content streams.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer creates a lexer positioned at the start of data.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Pos returns the offset of the next unread byte.
func (l *Lexer) Pos() int { return l.pos }

// SetPos moves the lexer to an absolute offset.
func (l *Lexer) SetPos(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.data) {
		pos = len(l.data)
	}
	l.pos = pos
}

// Data returns the buffer being scanned.
func (l *Lexer) Data() []byte { return l.data }

// NextToken returns the next token, skipping whitespace. At the end of input
// it returns a TokenEOF token and no error.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	b := l.data[l.pos]
	switch b {
	case '%':
		end := bytes.IndexAny(l.data[l.pos:], "\r\n")
		if end < 0 {
			end = len(l.data) - l.pos
		}
		l.pos += end
		return Token{Type: TokenComment, Value: l.data[start:l.pos], Pos: start}, nil
	case '[':
		l.pos++
		return Token{Type: TokenArrayStart, Value: l.data[start:l.pos], Pos: start}, nil
	case ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Value: l.data[start:l.pos], Pos: start}, nil
	case '(':
		return l.readString()
	case '<':
		if l.at(1) == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Value: l.data[start:l.pos], Pos: start}, nil
		}
		return l.readHexString()
	case '>':
		if l.at(1) == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Value: l.data[start:l.pos], Pos: start}, nil
		}
		l.pos++
		return Token{}, fmt.Errorf("unexpected '>' at offset %d", start)
	case '/':
		return l.readName(), nil
	case '{', '}':
		// PostScript calculator braces only appear inside Type 4 functions.
		l.pos++
		return Token{Type: TokenKeyword, Value: l.data[start:l.pos], Pos: start}, nil
	case ')':
		l.pos++
		return Token{}, fmt.Errorf("unbalanced ')' at offset %d", start)
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		return l.readNumber(), nil
	}
	return l.readKeyword(), nil
}

// ReadBytes returns the next n bytes verbatim.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || l.pos+n > len(l.data) {
		return nil, fmt.Errorf("want %d bytes at offset %d, have %d", n, l.pos, len(l.data)-l.pos)
	}
	b := l.data[l.pos : l.pos+n]
	l.pos += n
	return b, nil
}

// SkipStreamEOL consumes the CRLF or LF that follows a stream keyword. A lone
// CR is accepted too; producers write it often enough.
func (l *Lexer) SkipStreamEOL() {
	for l.pos < len(l.data) && (l.data[l.pos] == ' ' || l.data[l.pos] == '\t') {
		l.pos++
	}
	if l.at(0) == '\r' {
		l.pos++
	}
	if l.at(0) == '\n' {
		l.pos++
	}
}

func (l *Lexer) at(off int) byte {
	if l.pos+off >= len(l.data) {
		return 0xff
	}
	return l.data[l.pos+off]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // (
	var buf []byte
	depth := 1
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		switch b {
		case '(':
			depth++
			buf = append(buf, b)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: buf, Pos: start}, nil
			}
			buf = append(buf, b)
		case '\r':
			// An unescaped end-of-line is read as a single LF.
			if l.at(0) == '\n' {
				l.pos++
			}
			buf = append(buf, '\n')
		case '\\':
			if l.pos >= len(l.data) {
				break
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case '\r':
				if l.at(0) == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if isOctalDigit(e) {
					v := int(e - '0')
					for i := 0; i < 2 && isOctalDigit(l.at(0)); i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					buf = append(buf, byte(v))
				} else {
					buf = append(buf, e)
				}
			}
		default:
			buf = append(buf, b)
		}
	}
	return Token{}, fmt.Errorf("unterminated string at offset %d", start)
}

func (l *Lexer) readHexString() (Token, error) {
	start := l.pos
	l.pos++ // <
	var buf []byte
	hi, half := byte(0), false
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		if b == '>' {
			if half {
				buf = append(buf, hi<<4)
			}
			return Token{Type: TokenHexString, Value: buf, Pos: start}, nil
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return Token{}, fmt.Errorf("invalid hex digit %q at offset %d", b, l.pos-1)
		}
		if half {
			buf = append(buf, hi<<4|hexValue(b))
		} else {
			hi = hexValue(b)
		}
		half = !half
	}
	return Token{}, fmt.Errorf("unterminated hex string at offset %d", start)
}

func (l *Lexer) readName() Token {
	start := l.pos
	l.pos++ // /
	var buf []byte
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
		if b == '#' && isHexDigit(l.at(0)) && isHexDigit(l.at(1)) {
			buf = append(buf, hexValue(l.data[l.pos])<<4|hexValue(l.data[l.pos+1]))
			l.pos += 2
			continue
		}
		buf = append(buf, b)
	}
	return Token{Type: TokenName, Value: buf, Pos: start}
}

func (l *Lexer) readNumber() Token {
	start := l.pos
	typ := TokenInteger
	if b := l.data[l.pos]; b == '-' || b == '+' {
		l.pos++
	}
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if b == '.' && typ == TokenInteger {
			typ = TokenReal
		} else if !isDigit(b) {
			break
		}
		l.pos++
	}
	return Token{Type: typ, Value: l.data[start:l.pos], Pos: start}
}

func (l *Lexer) readKeyword() Token {
	start := l.pos
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
	}
	if l.pos == start {
		l.pos++
	}
	v := l.data[start:l.pos]
	if len(v) == 1 && v[0] == 'R' {
		return Token{Type: TokenIndirectRef, Value: v, Pos: start}
	}
	return Token{Type: TokenKeyword, Value: v, Pos: start}
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isOctalDigit(b byte) bool { return b >= '0' && b <= '7' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case isDigit(b):
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

// IsWhitespace reports whether b is PDF whitespace.
func IsWhitespace(b byte) bool { return isWhitespace(b) }
