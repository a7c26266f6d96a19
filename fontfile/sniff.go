package fontfile

import (
	"bytes"
	"encoding/binary"
)

// Container is the outer format of an embedded font program.
type Container int

const (
	Unknown Container = iota
	TrueType
	OpenTypeCFF
	Collection
	BareCFF
	Type1
)

func (c Container) String() string {
	switch c {
	case TrueType:
		return "truetype"
	case OpenTypeCFF:
		return "opentype-cff"
	case Collection:
		return "collection"
	case BareCFF:
		return "cff"
	case Type1:
		return "type1"
	default:
		return "unknown"
	}
}

// IsSFNT reports whether c is a table-based container.
func (c Container) IsSFNT() bool {
	return c == TrueType || c == OpenTypeCFF || c == Collection
}

// Sniff identifies the container from the first bytes of data.
func Sniff(data []byte) Container {
	switch {
	case len(data) < 4:
		return Unknown
	case bytes.HasPrefix(data, []byte{0, 1, 0, 0}), bytes.HasPrefix(data, []byte("true")):
		return TrueType
	case bytes.HasPrefix(data, []byte("OTTO")):
		return OpenTypeCFF
	case bytes.HasPrefix(data, []byte("ttcf")):
		return Collection
	case data[0] == 1 && data[1] == 0 && data[2] == 4:
		return BareCFF
	case bytes.HasPrefix(data, []byte("%!PS")), bytes.HasPrefix(data, []byte("%!FontType1")):
		return Type1
	case data[0] == 0x80 && data[1] == 0x01:
		return Type1
	}
	return Unknown
}

var sfntMagics = [][]byte{{0, 1, 0, 0}, []byte("OTTO"), []byte("true")}

// Locate finds an sfnt embedded at a non-zero offset, as some producers
// wrap TrueType data inside a CID blob. It returns -1 when there is none.
func Locate(data []byte) int {
	best := -1
	for _, magic := range sfntMagics {
		for from := 1; from < len(data); {
			i := bytes.Index(data[from:], magic)
			if i < 0 {
				break
			}
			at := from + i
			if plausibleDirectory(data[at:]) && (best < 0 || at < best) {
				best = at
				break
			}
			from = at + 1
		}
	}
	return best
}

// plausibleDirectory checks that the table count is sane and the first
// record has a printable tag.
func plausibleDirectory(b []byte) bool {
	if len(b) < 28 {
		return false
	}
	n := binary.BigEndian.Uint16(b[4:])
	if n == 0 || n > 64 || len(b) < 12+16*int(n) {
		return false
	}
	for _, c := range b[12:16] {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}
