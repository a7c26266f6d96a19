package core

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
)

// EntryKind distinguishes the three kinds of cross-reference entry.
type EntryKind int

const (
	EntryFree EntryKind = iota
	EntryInUse
	EntryCompressed // stored inside an object stream
)

// XRefEntry represents a single cross-reference entry. For compressed
// entries StreamNum and Index locate the object; Offset is unused.
type XRefEntry struct {
	Kind       EntryKind
	Offset     int64
	Generation int
	StreamNum  int
	Index      int
}

// XRefTable maps object numbers to their entries.
type XRefTable struct {
	Entries map[int]XRefEntry
	Trailer Dict
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{Entries: make(map[int]XRefEntry), Trailer: make(Dict)}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (XRefEntry, bool) {
	e, ok := x.Entries[objNum]
	return e, ok
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int { return len(x.Entries) }

// mergeOlder adds entries from an older section without overriding newer ones.
func (x *XRefTable) mergeOlder(old *XRefTable) {
	for n, e := range old.Entries {
		if _, ok := x.Entries[n]; !ok {
			x.Entries[n] = e
		}
	}
	for k, v := range old.Trailer {
		if _, ok := x.Trailer[k]; !ok && k != "Prev" && k != "XRefStm" {
			x.Trailer[k] = v
		}
	}
}

// FindStartXRef returns the offset recorded after the last startxref keyword.
func FindStartXRef(data []byte) (int64, error) {
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	p := NewParser(tail[idx+len("startxref"):])
	tok, err := p.next()
	if err != nil || tok.Type != TokenInteger {
		return 0, fmt.Errorf("startxref is not followed by an offset")
	}
	return strconv.ParseInt(string(tok.Value), 10, 64)
}

// LoadXRef reads every cross-reference section reachable from startxref,
// following /Prev and hybrid /XRefStm links. Newer sections win.
func LoadXRef(data []byte) (*XRefTable, error) {
	start, err := FindStartXRef(data)
	if err != nil {
		return nil, err
	}

	merged := NewXRefTable()
	seen := map[int64]bool{}
	offset := start
	for first := true; ; first = false {
		if seen[offset] {
			break
		}
		seen[offset] = true

		section, err := ParseXRefSection(data, offset)
		if err != nil {
			if first {
				return nil, err
			}
			break
		}
		if first {
			merged.Trailer = section.Trailer
		}
		if stmOff, ok := section.Trailer.GetInt("XRefStm"); ok && !seen[int64(stmOff)] {
			seen[int64(stmOff)] = true
			if hybrid, err := ParseXRefSection(data, int64(stmOff)); err == nil {
				section.mergeOlderEntries(hybrid)
			}
		}
		merged.mergeOlder(section)

		prev, ok := section.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}
	return merged, nil
}

// mergeOlderEntries is mergeOlder without touching the trailer.
func (x *XRefTable) mergeOlderEntries(old *XRefTable) {
	for n, e := range old.Entries {
		if _, ok := x.Entries[n]; !ok {
			x.Entries[n] = e
		}
	}
}

// ParseXRefSection parses the classic table or cross-reference stream at
// offset.
func ParseXRefSection(data []byte, offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("xref offset %d outside file", offset)
	}
	p := NewParser(data)
	p.Seek(int(offset))
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenKeyword && string(tok.Value) == "xref" {
		p.next()
		return parseXRefTable(p)
	}
	obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("xref at %d: %w", offset, err)
	}
	stream, ok := obj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref at %d is neither a table nor a stream", offset)
	}
	return parseXRefStream(stream)
}

func parseXRefTable(p *Parser) (*XRefTable, error) {
	table := NewXRefTable()
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			obj, err := p.ParseObject()
			if err != nil {
				return nil, fmt.Errorf("trailer: %w", err)
			}
			d, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("trailer is %s, not a dictionary", obj.Type())
			}
			table.Trailer = d
			return table, nil
		}
		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("bad xref subsection header %s", tok)
		}
		first, _ := strconv.Atoi(string(tok.Value))
		count, err := p.expectInt("subsection count")
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			off, err1 := p.next()
			gen, err2 := p.expectInt("generation")
			flag, err3 := p.next()
			if err1 != nil || err2 != nil || err3 != nil || off.Type != TokenInteger {
				return nil, fmt.Errorf("xref entry %d truncated", first+i)
			}
			o, _ := strconv.ParseInt(string(off.Value), 10, 64)
			e := XRefEntry{Offset: o, Generation: gen}
			switch string(flag.Value) {
			case "n":
				e.Kind = EntryInUse
			case "f":
				e.Kind = EntryFree
			default:
				return nil, fmt.Errorf("xref entry %d has flag %q", first+i, flag.Value)
			}
			if _, dup := table.Entries[first+i]; !dup {
				table.Entries[first+i] = e
			}
		}
	}
}

func parseXRefStream(s *Stream) (*XRefTable, error) {
	w, ok := s.Dict.GetArray("W")
	if !ok || len(w) < 3 {
		return nil, fmt.Errorf("xref stream missing /W")
	}
	widths, ok := w.Numbers()
	if !ok {
		return nil, fmt.Errorf("xref stream /W is not numeric")
	}
	size, _ := s.Dict.GetInt("Size")

	index := []float64{0, float64(size)}
	if idx, ok := s.Dict.GetArray("Index"); ok {
		if index, ok = idx.Numbers(); !ok || len(index)%2 != 0 {
			return nil, fmt.Errorf("xref stream /Index malformed")
		}
	}

	data, err := s.Decode()
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}

	w0, w1, w2 := int(widths[0]), int(widths[1]), int(widths[2])
	rowLen := w0 + w1 + w2
	if rowLen == 0 {
		return nil, fmt.Errorf("xref stream row width is zero")
	}

	table := NewXRefTable()
	table.Trailer = s.Dict
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, count := int(index[i]), int(index[i+1])
		for k := 0; k < count; k++ {
			if pos+rowLen > len(data) {
				return table, nil
			}
			row := data[pos : pos+rowLen]
			pos += rowLen

			typ := int64(1)
			if w0 > 0 {
				typ = beUint(row[:w0])
			}
			f2 := beUint(row[w0 : w0+w1])
			f3 := beUint(row[w0+w1:])

			var e XRefEntry
			switch typ {
			case 0:
				e = XRefEntry{Kind: EntryFree, Generation: int(f3)}
			case 1:
				e = XRefEntry{Kind: EntryInUse, Offset: f2, Generation: int(f3)}
			case 2:
				e = XRefEntry{Kind: EntryCompressed, StreamNum: int(f2), Index: int(f3)}
			default:
				continue
			}
			table.Entries[first+k] = e
		}
	}
	return table, nil
}

func beUint(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

var objHeader = regexp.MustCompile(`(?m)(\d+)[ \t\r\n]+(\d+)[ \t\r\n]+obj\b`)

// ReconstructXRef scans the whole file for "n g obj" headers and trailer
// dictionaries. It is the recovery path for files whose xref is damaged.
func ReconstructXRef(data []byte) (*XRefTable, error) {
	table := NewXRefTable()
	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		if m[0] > 0 && !isWhitespace(data[m[0]-1]) && !isDelimiter(data[m[0]-1]) {
			continue
		}
		num, _ := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, _ := strconv.Atoi(string(data[m[4]:m[5]]))
		// Later definitions override earlier ones, as with incremental updates.
		table.Entries[num] = XRefEntry{Kind: EntryInUse, Offset: int64(m[0]), Generation: gen}
	}

	for off := 0; ; {
		i := bytes.Index(data[off:], []byte("trailer"))
		if i < 0 {
			break
		}
		p := NewParser(data)
		p.Seek(off + i + len("trailer"))
		if obj, err := p.ParseObject(); err == nil {
			if d, ok := obj.(Dict); ok {
				for k, v := range d {
					table.Trailer[k] = v
				}
			}
		}
		off += i + len("trailer")
	}

	if len(table.Entries) == 0 {
		return nil, fmt.Errorf("no objects found")
	}
	return table, nil
}
