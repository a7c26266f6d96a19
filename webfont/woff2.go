package webfont

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

const woff2HeaderSize = 48

// woff2Tags are the known table tags, by their directory flag index.
var woff2Tags = [...]string{
	"cmap", "head", "hhea", "hmtx", "maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca", "prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern", "LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS", "GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL", "SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar", "fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar", "mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat", "Gloc", "Feat", "Sill",
}

const arbitraryTag = 63

func tagIndex(tag string) int {
	for i, t := range woff2Tags {
		if t == tag {
			return i
		}
	}
	return arbitraryTag
}

// nullTransform is the transform version that leaves a table as is: 3 for
// glyf and loca, 0 for everything else.
func nullTransform(tag string) byte {
	if tag == "glyf" || tag == "loca" {
		return 3
	}
	return 0
}

func appendBase128(b []byte, v uint32) []byte {
	var tmp [5]byte
	n := 0
	for {
		tmp[4-n] = byte(v & 0x7F)
		v >>= 7
		n++
		if v == 0 {
			break
		}
	}
	for i := 5 - n; i < 4; i++ {
		tmp[i] |= 0x80
	}
	return append(b, tmp[5-n:]...)
}

func readBase128(r *bytes.Reader) (uint32, error) {
	var v uint32
	for i := 0; i < 5; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if i == 0 && c == 0x80 {
			return 0, fmt.Errorf("base128 leading zero: %w", ErrMalformed)
		}
		if v&0xFE000000 != 0 {
			return 0, fmt.Errorf("base128 overflow: %w", ErrMalformed)
		}
		v = v<<7 | uint32(c&0x7F)
		if c&0x80 == 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("base128 too long: %w", ErrMalformed)
}

// EncodeWOFF2 wraps an sfnt as WOFF2 with every table null-transformed and
// the table data in a single Brotli stream.
func EncodeWOFF2(font []byte) ([]byte, error) {
	flavor, tables, err := readSFNT(font)
	if err != nil {
		return nil, err
	}

	var dir []byte
	var stream bytes.Buffer
	sfntSize := 12 + 16*len(tables)
	for _, t := range tables {
		idx := tagIndex(t.tag)
		dir = append(dir, nullTransform(t.tag)<<6|byte(idx))
		if idx == arbitraryTag {
			dir = append(dir, t.tag...)
		}
		dir = appendBase128(dir, uint32(len(t.data)))
		stream.Write(t.data)
		sfntSize += pad4(len(t.data))
	}

	var compressed bytes.Buffer
	bw := brotli.NewWriterLevel(&compressed, brotli.BestCompression)
	if _, err := bw.Write(stream.Bytes()); err != nil {
		return nil, fmt.Errorf("brotli: %w", err)
	}
	if err := bw.Close(); err != nil {
		return nil, fmt.Errorf("brotli: %w", err)
	}

	total := woff2HeaderSize + len(dir) + pad4(compressed.Len())
	var out bytes.Buffer
	out.Grow(total)
	binary.Write(&out, binary.BigEndian, struct {
		Signature, Flavor, Length        uint32
		NumTables, Reserved              uint16
		TotalSfntSize, CompressedSize    uint32
		Major, Minor                     uint16
		MetaOffset, MetaLength, MetaOrig uint32
		PrivOffset, PrivLength           uint32
	}{
		Signature:      woff2Signature,
		Flavor:         flavor,
		Length:         uint32(total),
		NumTables:      uint16(len(tables)),
		TotalSfntSize:  uint32(sfntSize),
		CompressedSize: uint32(compressed.Len()),
		Major:          1,
	})
	out.Write(dir)
	out.Write(compressed.Bytes())
	for out.Len()%4 != 0 {
		out.WriteByte(0)
	}
	return out.Bytes(), nil
}

// DecodeWOFF2 unpacks a WOFF2 file whose tables are all null-transformed.
func DecodeWOFF2(data []byte) ([]byte, error) {
	if len(data) < woff2HeaderSize || binary.BigEndian.Uint32(data) != woff2Signature {
		return nil, fmt.Errorf("woff2 header: %w", ErrMalformed)
	}
	flavor := binary.BigEndian.Uint32(data[4:])
	n := int(binary.BigEndian.Uint16(data[12:]))
	compressedSize := int(binary.BigEndian.Uint32(data[20:]))

	type record struct {
		tag    string
		length uint32
	}
	r := bytes.NewReader(data[woff2HeaderSize:])
	records := make([]record, 0, n)
	for i := 0; i < n; i++ {
		flags, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("woff2 directory: %w", ErrMalformed)
		}
		var rec record
		if idx := int(flags & 0x3F); idx == arbitraryTag {
			var tag [4]byte
			if _, err := io.ReadFull(r, tag[:]); err != nil {
				return nil, fmt.Errorf("woff2 directory: %w", ErrMalformed)
			}
			rec.tag = string(tag[:])
		} else {
			rec.tag = woff2Tags[idx]
		}
		if flags>>6 != nullTransform(rec.tag) {
			return nil, fmt.Errorf("woff2 table %q: transform %d not supported: %w", rec.tag, flags>>6, ErrMalformed)
		}
		if rec.length, err = readBase128(r); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	start := len(data) - r.Len()
	if start+compressedSize > len(data) {
		return nil, fmt.Errorf("woff2 data: %w", ErrMalformed)
	}
	stream, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data[start : start+compressedSize])))
	if err != nil {
		return nil, fmt.Errorf("brotli: %w", err)
	}

	tables := make(map[string]sfntTable, n)
	off := 0
	for _, rec := range records {
		end := off + int(rec.length)
		if end > len(stream) {
			return nil, fmt.Errorf("woff2 table %q: %w", rec.tag, ErrMalformed)
		}
		t := sfntTable{tag: rec.tag, data: stream[off:end]}
		t.checksum = checksum(t.tag, t.data)
		tables[rec.tag] = t
		off = end
	}
	return writeSFNT(flavor, tables), nil
}

func checksum(tag string, data []byte) uint32 {
	var sum uint32
	for i := 0; i < len(data); i += 4 {
		var word [4]byte
		copy(word[:], data[i:])
		if tag == "head" && i == 8 {
			continue
		}
		sum += binary.BigEndian.Uint32(word[:])
	}
	return sum
}
