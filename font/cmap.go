package font

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/text/encoding/unicode"

	"github.com/tsawler/pdfhtml/core"
)

// ErrMalformedCMap reports a CMap with unbalanced sections or no mappings.
var ErrMalformedCMap = errors.New("malformed cmap")

// maxRange bounds how many codes a single bfrange or cidrange may expand to.
const maxRange = 0x10000

// Code is one character code taken from a show-string.
type Code struct {
	Value uint32
	Len   int
}

// CodespaceRange is a begincodespacerange entry. Low and High have the same
// length, which is the code length the range accepts.
type CodespaceRange struct {
	Low, High []byte
}

func (r CodespaceRange) matches(b []byte) bool {
	if len(b) != len(r.Low) {
		return false
	}
	for i := range b {
		if b[i] < r.Low[i] || b[i] > r.High[i] {
			return false
		}
	}
	return true
}

// CMap is a parsed CMap program: either a ToUnicode map (bfchar and bfrange)
// or an encoding CMap (cidchar and cidrange), with its codespace ranges.
type CMap struct {
	Name      string
	UseCMap   string
	Codespace []CodespaceRange

	unicode map[uint32]string
	cids    map[uint32]uint32
}

// ParseToUnicodeCMap decodes and parses a ToUnicode stream. A CMap without
// any bfchar or bfrange mapping is malformed.
func ParseToUnicodeCMap(stream *core.Stream) (*CMap, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode stream: %w", err)
	}
	cm, err := ParseCMap(data)
	if err != nil {
		return nil, err
	}
	if len(cm.unicode) == 0 {
		return nil, fmt.Errorf("no unicode mappings: %w", ErrMalformedCMap)
	}
	return cm, nil
}

// ParseCMap parses CMap program text. usecmap is recorded but not followed.
func ParseCMap(data []byte) (*CMap, error) {
	cm := &CMap{unicode: make(map[uint32]string), cids: make(map[uint32]uint32)}
	lex := core.NewLexer(data)

	var section string
	var operands []core.Token
	var prev core.Token
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCMap, err)
		}
		if tok.Type == core.TokenEOF {
			break
		}
		if tok.Type == core.TokenComment {
			continue
		}
		if tok.Type != core.TokenKeyword {
			if tok.Type == core.TokenName && prev.Type == core.TokenName && string(prev.Value) == "CMapName" && cm.Name == "" {
				cm.Name = string(tok.Value)
			}
			if section != "" {
				operands = append(operands, tok)
			}
			prev = tok
			continue
		}

		switch kw := string(tok.Value); kw {
		case "begincodespacerange", "beginbfchar", "beginbfrange", "begincidchar", "begincidrange", "beginnotdefchar", "beginnotdefrange":
			if section != "" {
				return nil, fmt.Errorf("%s inside %s: %w", kw, section, ErrMalformedCMap)
			}
			section = kw[len("begin"):]
			operands = operands[:0]
		case "endcodespacerange", "endbfchar", "endbfrange", "endcidchar", "endcidrange", "endnotdefchar", "endnotdefrange":
			if section != kw[len("end"):] {
				return nil, fmt.Errorf("%s without begin%s: %w", kw, kw[len("end"):], ErrMalformedCMap)
			}
			cm.apply(section, operands)
			section = ""
			operands = operands[:0]
		case "usecmap":
			if prev.Type == core.TokenName {
				cm.UseCMap = string(prev.Value)
			}
		}
		prev = tok
	}
	if section != "" {
		return nil, fmt.Errorf("unterminated %s: %w", section, ErrMalformedCMap)
	}
	return cm, nil
}

// apply consumes the operands collected for one section. Entries with the
// wrong shape are skipped.
func (cm *CMap) apply(section string, ops []core.Token) {
	switch section {
	case "codespacerange":
		for i := 0; i+1 < len(ops); i += 2 {
			lo, hi := ops[i], ops[i+1]
			if lo.Type != core.TokenHexString || hi.Type != core.TokenHexString || len(lo.Value) != len(hi.Value) || len(lo.Value) == 0 || len(lo.Value) > 4 {
				continue
			}
			cm.Codespace = append(cm.Codespace, CodespaceRange{Low: clone(lo.Value), High: clone(hi.Value)})
		}
	case "bfchar":
		for i := 0; i+1 < len(ops); i += 2 {
			src, dst := ops[i], ops[i+1]
			if src.Type != core.TokenHexString {
				continue
			}
			code := codeValue(src.Value)
			switch dst.Type {
			case core.TokenHexString:
				cm.unicode[code] = decodeUTF16(dst.Value)
			case core.TokenName:
				if s, ok := glyphNameText(string(dst.Value)); ok {
					cm.unicode[code] = s
				}
			}
		}
	case "bfrange":
		for i := 0; i+2 < len(ops); {
			lo, hi := ops[i], ops[i+1]
			if lo.Type != core.TokenHexString || hi.Type != core.TokenHexString {
				i++
				continue
			}
			start, end := codeValue(lo.Value), codeValue(hi.Value)
			if ops[i+2].Type == core.TokenArrayStart {
				j := i + 3
				code := start
				for ; j < len(ops) && ops[j].Type != core.TokenArrayEnd; j++ {
					if ops[j].Type == core.TokenHexString && code <= end {
						cm.unicode[code] = decodeUTF16(ops[j].Value)
					}
					code++
				}
				i = j + 1
				continue
			}
			dst := ops[i+2]
			i += 3
			if dst.Type != core.TokenHexString || end < start || end-start >= maxRange {
				continue
			}
			for off := uint32(0); off <= end-start; off++ {
				cm.unicode[start+off] = decodeUTF16(incrementLast(dst.Value, off))
			}
		}
	case "cidchar":
		for i := 0; i+1 < len(ops); i += 2 {
			if ops[i].Type != core.TokenHexString || ops[i+1].Type != core.TokenInteger {
				continue
			}
			cid, ok := intToken(ops[i+1])
			if ok {
				cm.cids[codeValue(ops[i].Value)] = cid
			}
		}
	case "cidrange":
		for i := 0; i+2 < len(ops); i += 3 {
			lo, hi := ops[i], ops[i+1]
			if lo.Type != core.TokenHexString || hi.Type != core.TokenHexString {
				continue
			}
			cid, ok := intToken(ops[i+2])
			start, end := codeValue(lo.Value), codeValue(hi.Value)
			if !ok || end < start || end-start >= maxRange {
				continue
			}
			for off := uint32(0); off <= end-start; off++ {
				cm.cids[start+off] = cid + off
			}
		}
	}
}

func intToken(tok core.Token) (uint32, bool) {
	if tok.Type != core.TokenInteger {
		return 0, false
	}
	var v uint32
	for _, b := range tok.Value {
		if b < '0' || b > '9' {
			return 0, false
		}
		v = v*10 + uint32(b-'0')
	}
	return v, true
}

func clone(b []byte) []byte { return append([]byte(nil), b...) }

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

// incrementLast adds off to the final UTF-16 code unit of dst.
func incrementLast(dst []byte, off uint32) []byte {
	out := clone(dst)
	switch n := len(out); {
	case n >= 2:
		v := uint32(out[n-2])<<8 | uint32(out[n-1])
		v += off
		out[n-2], out[n-1] = byte(v>>8), byte(v)
	case n == 1:
		out[0] += byte(off)
	}
	return out
}

var utf16Decoder = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// decodeUTF16 decodes a bf destination. Destinations are UTF-16BE; a lone
// byte is taken as a Latin-1 character.
func decodeUTF16(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	if len(b)%2 != 0 {
		b = append([]byte{0}, b...)
	}
	b = bytes.TrimPrefix(b, []byte{0xFE, 0xFF})
	out, err := utf16Decoder.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

// Lookup returns the Unicode text mapped from code.
func (cm *CMap) Lookup(code uint32) (string, bool) {
	if cm == nil {
		return "", false
	}
	s, ok := cm.unicode[code]
	return s, ok
}

// CID returns the CID a cidchar or cidrange maps code to.
func (cm *CMap) CID(code uint32) (uint32, bool) {
	if cm == nil {
		return 0, false
	}
	cid, ok := cm.cids[code]
	return cid, ok
}

// Len returns the number of Unicode mappings.
func (cm *CMap) Len() int {
	if cm == nil {
		return 0
	}
	return len(cm.unicode)
}

// Codes returns the mapped codes in ascending order.
func (cm *CMap) Codes() []uint32 {
	codes := make([]uint32, 0, len(cm.unicode))
	for c := range cm.unicode {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// CIDCodes returns the codes with a cidchar or cidrange mapping, ascending.
func (cm *CMap) CIDCodes() []uint32 {
	codes := make([]uint32, 0, len(cm.cids))
	for c := range cm.cids {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Split cuts a show-string into codes using the codespace ranges. At each
// position the shortest matching range wins; bytes matching no range are
// consumed with the shortest codespace length. Without codespace ranges
// every code is fallback bytes long.
func (cm *CMap) Split(b []byte, fallback int) []Code {
	if cm == nil || len(cm.Codespace) == 0 {
		return splitFixed(b, fallback)
	}
	shortest := 4
	for _, r := range cm.Codespace {
		shortest = min(shortest, len(r.Low))
	}
	var out []Code
	for len(b) > 0 {
		n := 0
		for l := 1; l <= 4 && l <= len(b) && n == 0; l++ {
			for _, r := range cm.Codespace {
				if r.matches(b[:l]) {
					n = l
					break
				}
			}
		}
		if n == 0 {
			n = min(shortest, len(b))
		}
		out = append(out, Code{Value: codeValue(b[:n]), Len: n})
		b = b[n:]
	}
	return out
}

func splitFixed(b []byte, n int) []Code {
	if n < 1 {
		n = 1
	}
	out := make([]Code, 0, len(b)/n+1)
	for len(b) > 0 {
		k := min(n, len(b))
		out = append(out, Code{Value: codeValue(b[:k]), Len: k})
		b = b[k:]
	}
	return out
}
