package webfont

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ErrMalformed is returned when a font file's structure is inconsistent.
var ErrMalformed = errors.New("malformed font file")

const (
	woffSignature  = 0x774F4646 // wOFF
	woff2Signature = 0x774F4632 // wOF2
	woffHeaderSize = 44
	woffDirEntry   = 20
)

// sfntTable is one table read from an sfnt directory.
type sfntTable struct {
	tag      string
	checksum uint32
	data     []byte
}

// readSFNT reads the flavor and tables of an sfnt, sorted by tag.
func readSFNT(font []byte) (uint32, []sfntTable, error) {
	if len(font) < 12 {
		return 0, nil, fmt.Errorf("sfnt header: %w", ErrMalformed)
	}
	flavor := binary.BigEndian.Uint32(font)
	n := int(binary.BigEndian.Uint16(font[4:]))
	if len(font) < 12+16*n {
		return 0, nil, fmt.Errorf("sfnt directory: %w", ErrMalformed)
	}
	tables := make([]sfntTable, 0, n)
	for i := 0; i < n; i++ {
		rec := font[12+16*i:]
		off := int(binary.BigEndian.Uint32(rec[8:]))
		length := int(binary.BigEndian.Uint32(rec[12:]))
		if off < 0 || length < 0 || off+length > len(font) {
			return 0, nil, fmt.Errorf("table %q out of range: %w", rec[:4], ErrMalformed)
		}
		tables = append(tables, sfntTable{
			tag:      string(rec[:4]),
			checksum: binary.BigEndian.Uint32(rec[4:]),
			data:     font[off : off+length],
		})
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].tag < tables[j].tag })
	return flavor, tables, nil
}

func pad4(n int) int { return (n + 3) &^ 3 }

// EncodeWOFF wraps an sfnt as WOFF 1.0. Each table is zlib-compressed when
// that makes it smaller; checksums are carried over from the sfnt.
func EncodeWOFF(font []byte) ([]byte, error) {
	flavor, tables, err := readSFNT(font)
	if err != nil {
		return nil, err
	}

	type entry struct {
		sfntTable
		stored []byte
	}
	entries := make([]entry, len(tables))
	sfntSize := 12 + 16*len(tables)
	for i, t := range tables {
		entries[i] = entry{sfntTable: t, stored: t.data}
		var buf bytes.Buffer
		zw, _ := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		zw.Write(t.data)
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compress %s: %w", t.tag, err)
		}
		if buf.Len() < len(t.data) {
			entries[i].stored = buf.Bytes()
		}
		sfntSize += pad4(len(t.data))
	}

	offset := woffHeaderSize + woffDirEntry*len(entries)
	var dir, body bytes.Buffer
	for _, e := range entries {
		dir.WriteString(e.tag)
		binary.Write(&dir, binary.BigEndian, []uint32{
			uint32(offset + body.Len()),
			uint32(len(e.stored)),
			uint32(len(e.data)),
			e.checksum,
		})
		body.Write(e.stored)
		for body.Len()%4 != 0 {
			body.WriteByte(0)
		}
	}

	total := offset + body.Len()
	var out bytes.Buffer
	out.Grow(total)
	binary.Write(&out, binary.BigEndian, struct {
		Signature, Flavor, Length        uint32
		NumTables, Reserved              uint16
		TotalSfntSize                    uint32
		Major, Minor                     uint16
		MetaOffset, MetaLength, MetaOrig uint32
		PrivOffset, PrivLength           uint32
	}{
		Signature:     woffSignature,
		Flavor:        flavor,
		Length:        uint32(total),
		NumTables:     uint16(len(entries)),
		TotalSfntSize: uint32(sfntSize),
		Major:         1,
	})
	out.Write(dir.Bytes())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// DecodeWOFF unpacks a WOFF 1.0 file back into an sfnt.
func DecodeWOFF(data []byte) ([]byte, error) {
	if len(data) < woffHeaderSize || binary.BigEndian.Uint32(data) != woffSignature {
		return nil, fmt.Errorf("woff header: %w", ErrMalformed)
	}
	flavor := binary.BigEndian.Uint32(data[4:])
	n := int(binary.BigEndian.Uint16(data[12:]))
	if len(data) < woffHeaderSize+woffDirEntry*n {
		return nil, fmt.Errorf("woff directory: %w", ErrMalformed)
	}

	tables := make(map[string]sfntTable, n)
	for i := 0; i < n; i++ {
		rec := data[woffHeaderSize+woffDirEntry*i:]
		tag := string(rec[:4])
		off := int(binary.BigEndian.Uint32(rec[4:]))
		compLen := int(binary.BigEndian.Uint32(rec[8:]))
		origLen := int(binary.BigEndian.Uint32(rec[12:]))
		if off+compLen > len(data) || compLen > origLen {
			return nil, fmt.Errorf("woff table %q: %w", tag, ErrMalformed)
		}
		raw := data[off : off+compLen]
		if compLen < origLen {
			zr, err := zlib.NewReader(bytes.NewReader(raw))
			if err != nil {
				return nil, fmt.Errorf("woff table %q: %w", tag, err)
			}
			raw, err = io.ReadAll(io.LimitReader(zr, int64(origLen)+1))
			if err != nil {
				return nil, fmt.Errorf("woff table %q: %w", tag, err)
			}
		}
		if len(raw) != origLen {
			return nil, fmt.Errorf("woff table %q has %d bytes, want %d: %w", tag, len(raw), origLen, ErrMalformed)
		}
		tables[tag] = sfntTable{tag: tag, checksum: binary.BigEndian.Uint32(rec[16:]), data: raw}
	}
	return writeSFNT(flavor, tables), nil
}

// writeSFNT lays tables out in tag order, keeping the given checksums.
func writeSFNT(flavor uint32, tables map[string]sfntTable) []byte {
	tags := make([]string, 0, len(tables))
	for tag := range tables {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	n := len(tags)
	searchRange, selector := 16, 0
	for searchRange*2 <= 16*n {
		searchRange *= 2
		selector++
	}

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, []uint32{flavor})
	binary.Write(&out, binary.BigEndian, []uint16{uint16(n), uint16(searchRange), uint16(selector), uint16(16*n - searchRange)})
	offset := 12 + 16*n
	for _, tag := range tags {
		t := tables[tag]
		out.WriteString(tag)
		binary.Write(&out, binary.BigEndian, []uint32{t.checksum, uint32(offset), uint32(len(t.data))})
		offset += pad4(len(t.data))
	}
	for _, tag := range tags {
		out.Write(tables[tag].data)
		for out.Len()%4 != 0 {
			out.WriteByte(0)
		}
	}
	return out.Bytes()
}
