package fontfile

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/tsawler/pdfhtml/model"
)

// Cmap is one decoded cmap subtable.
type Cmap struct {
	Platform uint16
	Encoding uint16
	Format   uint16
	Map      map[uint32]model.GID
}

// Lookup returns the glyph for a character code.
func (c *Cmap) Lookup(code uint32) (model.GID, bool) {
	if c == nil {
		return 0, false
	}
	gid, ok := c.Map[code]
	return gid, ok
}

// Codes returns the mapped codes in ascending order.
func (c *Cmap) Codes() []uint32 {
	out := make([]uint32, 0, len(c.Map))
	for code := range c.Map {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reverse maps each glyph to its lowest code.
func (c *Cmap) Reverse() map[model.GID]uint32 {
	out := make(map[model.GID]uint32, len(c.Map))
	for _, code := range c.Codes() {
		gid := c.Map[code]
		if _, ok := out[gid]; !ok {
			out[gid] = code
		}
	}
	return out
}

// parseCmapTable decodes subtables of formats 0, 4, 6 and 12. Subtables of
// other formats are skipped; records pointing outside the table are errors.
func parseCmapTable(b []byte) ([]*Cmap, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("cmap header: %w", ErrTruncated)
	}
	n := int(binary.BigEndian.Uint16(b[2:]))
	if len(b) < 4+8*n {
		return nil, fmt.Errorf("cmap with %d records: %w", n, ErrTruncated)
	}
	var out []*Cmap
	for i := 0; i < n; i++ {
		rec := b[4+8*i:]
		platform := binary.BigEndian.Uint16(rec)
		encoding := binary.BigEndian.Uint16(rec[2:])
		off := int(binary.BigEndian.Uint32(rec[4:]))
		if off+2 > len(b) {
			return nil, fmt.Errorf("cmap subtable (%d,%d) at %d: %w", platform, encoding, off, ErrBadOffsets)
		}
		sub := b[off:]
		format := binary.BigEndian.Uint16(sub)
		var (
			m   map[uint32]model.GID
			err error
		)
		switch format {
		case 0:
			m, err = cmapFormat0(sub)
		case 4:
			m, err = cmapFormat4(sub)
		case 6:
			m, err = cmapFormat6(sub)
		case 12:
			m, err = cmapFormat12(sub)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cmap (%d,%d) format %d: %w", platform, encoding, format, err)
		}
		out = append(out, &Cmap{Platform: platform, Encoding: encoding, Format: format, Map: m})
	}
	return out, nil
}

func cmapFormat0(b []byte) (map[uint32]model.GID, error) {
	if len(b) < 6+256 {
		return nil, ErrTruncated
	}
	m := map[uint32]model.GID{}
	for code, gid := range b[6 : 6+256] {
		if gid != 0 {
			m[uint32(code)] = model.GID(gid)
		}
	}
	return m, nil
}

func cmapFormat4(b []byte) (map[uint32]model.GID, error) {
	if len(b) < 14 {
		return nil, ErrTruncated
	}
	segs := int(binary.BigEndian.Uint16(b[6:])) / 2
	ends := 14
	starts := ends + 2*segs + 2
	deltas := starts + 2*segs
	ranges := deltas + 2*segs
	if len(b) < ranges+2*segs {
		return nil, ErrTruncated
	}
	u16 := func(at int) uint16 { return binary.BigEndian.Uint16(b[at:]) }

	m := map[uint32]model.GID{}
	for s := 0; s < segs; s++ {
		end, start := u16(ends+2*s), u16(starts+2*s)
		delta, ro := u16(deltas+2*s), u16(ranges+2*s)
		if start > end {
			return nil, ErrBadOffsets
		}
		for c := uint32(start); c <= uint32(end); c++ {
			if c == 0xFFFF {
				break
			}
			var gid uint16
			if ro == 0 {
				gid = uint16(c) + delta
			} else {
				at := ranges + 2*s + int(ro) + 2*int(c-uint32(start))
				if at+2 > len(b) {
					return nil, ErrBadOffsets
				}
				if gid = u16(at); gid != 0 {
					gid += delta
				}
			}
			if gid != 0 {
				m[c] = model.GID(gid)
			}
		}
	}
	return m, nil
}

func cmapFormat6(b []byte) (map[uint32]model.GID, error) {
	if len(b) < 10 {
		return nil, ErrTruncated
	}
	first := uint32(binary.BigEndian.Uint16(b[6:]))
	count := int(binary.BigEndian.Uint16(b[8:]))
	if len(b) < 10+2*count {
		return nil, ErrTruncated
	}
	m := map[uint32]model.GID{}
	for i := 0; i < count; i++ {
		if gid := binary.BigEndian.Uint16(b[10+2*i:]); gid != 0 {
			m[first+uint32(i)] = model.GID(gid)
		}
	}
	return m, nil
}

func cmapFormat12(b []byte) (map[uint32]model.GID, error) {
	if len(b) < 16 {
		return nil, ErrTruncated
	}
	groups := int(binary.BigEndian.Uint32(b[12:]))
	if groups < 0 || len(b) < 16+12*groups {
		return nil, ErrTruncated
	}
	m := map[uint32]model.GID{}
	for i := 0; i < groups; i++ {
		g := b[16+12*i:]
		start, end := binary.BigEndian.Uint32(g), binary.BigEndian.Uint32(g[4:])
		gid := binary.BigEndian.Uint32(g[8:])
		if start > end || end > 0x10FFFF {
			return nil, ErrBadOffsets
		}
		for c := start; c <= end; c++ {
			if g := gid + (c - start); g != 0 && g <= 0xFFFF {
				m[c] = model.GID(g)
			}
		}
	}
	return m, nil
}

// BuildCmap writes a cmap table mapping runes to glyphs: a format 4 (3,1)
// subtable, plus a format 12 (3,10) subtable when any rune is outside the
// BMP.
func BuildCmap(m map[rune]model.GID) []byte {
	runes := make([]rune, 0, len(m))
	wide := false
	for r := range m {
		if r < 0 || r > 0x10FFFF || r == 0xFFFF {
			continue
		}
		runes = append(runes, r)
		wide = wide || r > 0xFFFF
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })

	var bmp []rune
	for _, r := range runes {
		if r <= 0xFFFF {
			bmp = append(bmp, r)
		}
	}
	f4 := buildFormat4(bmp, m)

	var w writer
	n := uint16(1)
	if wide {
		n = 2
	}
	w.u16(0)
	w.u16(n)
	w.u16(3)
	w.u16(1)
	w.u32(uint32(4 + 8*n))
	if wide {
		w.u16(3)
		w.u16(10)
		w.u32(uint32(4+8*n) + uint32(len(f4)))
	}
	w.bytes(f4)
	if wide {
		w.bytes(buildFormat12(runes, m))
	}
	return w.buf
}

type segment struct {
	start, end rune
	gid        model.GID
}

// segments groups runes whose glyph ids advance in step with the code.
func segments(runes []rune, m map[rune]model.GID) []segment {
	var out []segment
	for _, r := range runes {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if r == last.end+1 && m[r] == last.gid+model.GID(r-last.start) {
				last.end = r
				continue
			}
		}
		out = append(out, segment{start: r, end: r, gid: m[r]})
	}
	return out
}

func buildFormat4(runes []rune, m map[rune]model.GID) []byte {
	segs := append(segments(runes, m), segment{start: 0xFFFF, end: 0xFFFF, gid: 0})
	n := len(segs)
	searchRange, entrySelector := 2, 0
	for searchRange*2 <= 2*n {
		searchRange *= 2
		entrySelector++
	}

	var w writer
	w.u16(4)
	w.u16(uint16(16 + 8*n))
	w.u16(0)
	w.u16(uint16(2 * n))
	w.u16(uint16(searchRange))
	w.u16(uint16(entrySelector))
	w.u16(uint16(2*n - searchRange))
	for _, s := range segs {
		w.u16(uint16(s.end))
	}
	w.u16(0)
	for _, s := range segs {
		w.u16(uint16(s.start))
	}
	for _, s := range segs {
		if s.start == 0xFFFF {
			w.u16(1)
			continue
		}
		w.u16(uint16(s.gid) - uint16(s.start))
	}
	for range segs {
		w.u16(0)
	}
	return w.buf
}

func buildFormat12(runes []rune, m map[rune]model.GID) []byte {
	groups := segments(runes, m)
	var w writer
	w.u16(12)
	w.u16(0)
	w.u32(uint32(16 + 12*len(groups)))
	w.u32(0)
	w.u32(uint32(len(groups)))
	for _, g := range groups {
		w.u32(uint32(g.start))
		w.u32(uint32(g.end))
		w.u32(uint32(g.gid))
	}
	return w.buf
}
