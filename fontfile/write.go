package fontfile

import (
	"encoding/binary"
	"sort"

	"golang.org/x/text/encoding/unicode"
)

type writer struct{ buf []byte }

func (w *writer) u16(v uint16)   { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *writer) u32(v uint32)   { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }
func (w *writer) pad4() {
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
}

// checkSumMagic is the value the whole font must sum to once
// head.checkSumAdjustment is set.
const checkSumMagic = 0xB1B0AFBA

// Assemble writes an sfnt with the given version tag (0x00010000 or "OTTO")
// and tables. Tables are laid out in tag order on 4-byte boundaries, each
// record gets a fresh checksum, and head.checkSumAdjustment is recomputed.
func Assemble(version uint32, tables map[string][]byte) []byte {
	tags := make([]string, 0, len(tables))
	for tag := range tables {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	n := len(tags)
	searchRange, entrySelector := 16, 0
	for searchRange*2 <= 16*n {
		searchRange *= 2
		entrySelector++
	}

	var w writer
	w.u32(version)
	w.u16(uint16(n))
	w.u16(uint16(searchRange))
	w.u16(uint16(entrySelector))
	w.u16(uint16(16*n - searchRange))

	offset := 12 + 16*n
	headAt := -1
	body := make(map[string][]byte, n)
	for _, tag := range tags {
		data := tables[tag]
		if tag == "head" && len(data) >= 12 {
			data = append([]byte(nil), data...)
			binary.BigEndian.PutUint32(data[8:], 0)
			headAt = offset
		}
		body[tag] = data
		w.bytes([]byte(tag))
		w.u32(tableChecksum(tag, data))
		w.u32(uint32(offset))
		w.u32(uint32(len(data)))
		offset += (len(data) + 3) &^ 3
	}
	for _, tag := range tags {
		w.bytes(body[tag])
		w.pad4()
	}

	if headAt >= 0 {
		sum := tableChecksum("", w.buf)
		binary.BigEndian.PutUint32(w.buf[headAt+8:], checkSumMagic-sum)
	}
	return w.buf
}

// FileChecksum sums the whole font as big-endian words. A font with a correct
// head.checkSumAdjustment sums to 0xB1B0AFBA.
func FileChecksum(font []byte) uint32 {
	return tableChecksum("", font)
}

// BuildName writes a name table with Windows Unicode records for the family,
// subfamily, full name and PostScript name.
func BuildName(family, postScript string) []byte {
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	records := []struct {
		id   uint16
		text string
	}{{1, family}, {2, "Regular"}, {4, family}, {6, postScript}}

	var strs writer
	var w writer
	w.u16(0)
	w.u16(uint16(len(records)))
	w.u16(uint16(6 + 12*len(records)))
	for _, r := range records {
		b, err := enc.Bytes([]byte(r.text))
		if err != nil {
			b = nil
		}
		w.u16(3)
		w.u16(1)
		w.u16(0x409)
		w.u16(r.id)
		w.u16(uint16(len(b)))
		w.u16(uint16(len(strs.buf)))
		strs.bytes(b)
	}
	w.bytes(strs.buf)
	return w.buf
}

// BuildPost3 writes a format 3 post table (no glyph names). The italic angle,
// underline and fixed-pitch fields are copied from orig when it is long
// enough.
func BuildPost3(orig []byte) []byte {
	out := make([]byte, 32)
	if len(orig) >= 32 {
		copy(out, orig[:32])
	}
	binary.BigEndian.PutUint32(out, 0x00030000)
	return out
}

// Hhea holds the fields BuildHhea writes.
type Hhea struct {
	Ascent, Descent, LineGap int16
	AdvanceMax               uint16
	NumHMetrics              uint16
}

// BuildHhea writes a 36-byte hhea table. When orig is a valid hhea, its
// other fields are kept.
func BuildHhea(orig []byte, h Hhea) []byte {
	out := make([]byte, 36)
	if len(orig) >= 36 {
		copy(out, orig[:36])
	} else {
		binary.BigEndian.PutUint32(out, 0x00010000)
		binary.BigEndian.PutUint16(out[18:], 1) // caretSlopeRise
	}
	binary.BigEndian.PutUint16(out[4:], uint16(h.Ascent))
	binary.BigEndian.PutUint16(out[6:], uint16(h.Descent))
	binary.BigEndian.PutUint16(out[8:], uint16(h.LineGap))
	binary.BigEndian.PutUint16(out[10:], h.AdvanceMax)
	binary.BigEndian.PutUint16(out[34:], h.NumHMetrics)
	return out
}

// BuildHmtx writes one full longHorMetric per entry.
func BuildHmtx(metrics []HMetric) []byte {
	var w writer
	for _, m := range metrics {
		w.u16(m.Advance)
		w.u16(uint16(m.LSB))
	}
	return w.buf
}

// BuildLoca writes a long-format loca table from glyph end offsets.
func BuildLoca(offsets []uint32) []byte {
	var w writer
	for _, o := range offsets {
		w.u32(o)
	}
	return w.buf
}

// SetLongLoca returns a copy of head with indexToLocFormat set to 1.
func SetLongLoca(head []byte) []byte {
	out := append([]byte(nil), head...)
	if len(out) >= 52 {
		binary.BigEndian.PutUint16(out[50:], 1)
	}
	return out
}
