package fontfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-text/typesetting/font/cff"
	"github.com/go-text/typesetting/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/tsawler/pdfhtml/model"
)

// Errors returned by Parse. They are wrapped with detail; match with
// errors.Is.
var (
	ErrTruncated   = errors.New("font data truncated")
	ErrBadOffsets  = errors.New("inconsistent offset table")
	ErrUnsupported = errors.New("unsupported font container")
)

// Table is one sfnt table. Data aliases the program bytes.
type Table struct {
	Tag      string
	Checksum uint32
	Offset   int
	Data     []byte
}

// HMetric is one horizontal metric record.
type HMetric struct {
	Advance uint16
	LSB     int16
}

// GlyphData locates one glyph inside the glyf table.
type GlyphData struct {
	Offset     int
	Length     int
	Composite  bool
	Components []model.GID
	// Missing is set when the loca range points outside glyf.
	Missing bool
}

// Font holds the parsed tables of an embedded font program.
type Font struct {
	Container Container
	// Offset is where the program starts inside the bytes given to Parse.
	Offset int

	data   []byte
	Tables map[string]Table

	UnitsPerEm       uint16
	IndexToLocFormat int16
	BBox             [4]int16
	Ascent           int16
	Descent          int16
	LineGap          int16
	NumHMetrics      uint16
	NumGlyphs        int

	Metrics []HMetric   // one per glyph
	Glyphs  []GlyphData // glyf outlines; nil for CFF
	Cmaps   []*Cmap
	Names   []string // post format 2 or CFF charset names, by GID

	Family         string
	PostScriptName string
	HasOS2         bool

	CFF *cff.CFF

	// Warnings lists non-fatal problems such as checksum mismatches.
	Warnings []string

	once    sync.Once
	view    *sfnt.Font
	viewErr error

	nameOnce sync.Once
	byName   map[string]model.GID
}

// Parse reads a font program. Truncated data and inconsistent offsets are
// errors; bad checksums only add warnings. Type 1 programs are recognised
// but not parsed: the result has Container Type1 and no glyph data.
func Parse(data []byte) (*Font, error) {
	c := Sniff(data)
	offset := 0
	if c == Unknown {
		if at := Locate(data); at > 0 {
			offset, c = at, Sniff(data[at:])
		}
	}

	f := &Font{Container: c, Offset: offset}
	switch c {
	case TrueType, OpenTypeCFF:
		f.data = data[offset:]
		if err := f.parseSFNT(0); err != nil {
			return nil, err
		}
	case Collection:
		if len(data) < 16 {
			return nil, fmt.Errorf("collection header: %w", ErrTruncated)
		}
		if binary.BigEndian.Uint32(data[8:]) == 0 {
			return nil, fmt.Errorf("empty collection: %w", ErrBadOffsets)
		}
		f.data = data
		if err := f.parseSFNT(int(binary.BigEndian.Uint32(data[12:]))); err != nil {
			return nil, err
		}
	case BareCFF:
		f.data = data
		cf, err := cff.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("cff: %w: %v", ErrBadOffsets, err)
		}
		f.CFF = cf
		f.NumGlyphs = len(cf.Charstrings)
		f.UnitsPerEm = 1000
		f.cffNames()
	case Type1:
		f.data = data
	default:
		return nil, ErrUnsupported
	}
	return f, nil
}

// Data returns the program bytes, starting at the sfnt header for located
// fonts.
func (f *Font) Data() []byte { return f.data }

// Table returns the raw bytes of the table with the given tag.
func (f *Font) Table(tag string) ([]byte, bool) {
	t, ok := f.Tables[tag]
	return t.Data, ok
}

// Tags returns the table tags in sorted order.
func (f *Font) Tags() []string {
	tags := make([]string, 0, len(f.Tables))
	for tag := range f.Tables {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (f *Font) parseSFNT(dir int) error {
	data := f.data
	if dir < 0 || dir+12 > len(data) {
		return fmt.Errorf("table directory: %w", ErrTruncated)
	}
	n := int(binary.BigEndian.Uint16(data[dir+4:]))
	if dir+12+16*n > len(data) {
		return fmt.Errorf("table directory of %d records: %w", n, ErrTruncated)
	}

	f.Tables = make(map[string]Table, n)
	records := make([]Table, 0, n)
	for i := 0; i < n; i++ {
		rec := data[dir+12+16*i:]
		tag := string(rec[:4])
		off := int(binary.BigEndian.Uint32(rec[8:]))
		length := int(binary.BigEndian.Uint32(rec[12:]))
		if off < 0 || length < 0 || off > len(data) || length > len(data)-off {
			return fmt.Errorf("table %q at %d+%d exceeds %d bytes: %w", tag, off, length, len(data), ErrBadOffsets)
		}
		t := Table{Tag: tag, Checksum: binary.BigEndian.Uint32(rec[4:]), Offset: off, Data: data[off : off+length]}
		if _, dup := f.Tables[tag]; dup {
			return fmt.Errorf("duplicate table %q: %w", tag, ErrBadOffsets)
		}
		f.Tables[tag] = t
		records = append(records, t)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Offset < records[j].Offset })
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if len(prev.Data) > 0 && len(cur.Data) > 0 && prev.Offset+len(prev.Data) > cur.Offset {
			return fmt.Errorf("tables %q and %q overlap: %w", prev.Tag, cur.Tag, ErrBadOffsets)
		}
	}
	for _, t := range records {
		if sum := tableChecksum(t.Tag, t.Data); sum != t.Checksum {
			f.Warnings = append(f.Warnings, fmt.Sprintf("table %q checksum %08x, computed %08x", t.Tag, t.Checksum, sum))
		}
	}

	return f.parseTables()
}

func (f *Font) parseTables() error {
	head, ok := f.Table("head")
	if !ok {
		return fmt.Errorf("missing head table: %w", ErrBadOffsets)
	}
	if err := f.parseHead(head); err != nil {
		return err
	}
	maxp, ok := f.Table("maxp")
	if !ok || len(maxp) < 6 {
		return fmt.Errorf("maxp table: %w", ErrTruncated)
	}
	f.NumGlyphs = int(binary.BigEndian.Uint16(maxp[4:]))

	if hhea, ok := f.Table("hhea"); ok {
		if err := f.parseHhea(hhea); err != nil {
			return err
		}
	}
	if hmtx, ok := f.Table("hmtx"); ok {
		if err := f.parseHmtx(hmtx); err != nil {
			return err
		}
	}

	if raw, ok := f.Table("CFF "); ok {
		cf, err := cff.Parse(raw)
		if err != nil {
			return fmt.Errorf("CFF table: %w: %v", ErrBadOffsets, err)
		}
		f.CFF = cf
	} else {
		if err := f.parseGlyf(); err != nil {
			return err
		}
	}

	if raw, ok := f.Table("cmap"); ok {
		cmaps, err := parseCmapTable(raw)
		if err != nil {
			return err
		}
		f.Cmaps = cmaps
	}
	if raw, ok := f.Table("post"); ok {
		f.Names = parsePostNames(raw, f.NumGlyphs)
	}
	if f.Names == nil && f.CFF != nil {
		f.cffNames()
	}
	if raw, ok := f.Table("name"); ok {
		f.parseName(raw)
	}
	_, f.HasOS2 = f.Tables["OS/2"]
	return nil
}

func (f *Font) cffNames() {
	names := make([]string, f.NumGlyphs)
	found := false
	for gid := range names {
		names[gid] = f.CFF.GlyphName(opentype.GID(gid))
		found = found || names[gid] != ""
	}
	if found {
		f.Names = names
	}
}

// HasGlyph reports whether gid has outline data. A zero-length glyf range
// (for example a space) is present but empty.
func (f *Font) HasGlyph(gid model.GID) bool {
	if int(gid) >= f.NumGlyphs {
		return false
	}
	if f.CFF != nil {
		return int(gid) < len(f.CFF.Charstrings) && len(f.CFF.Charstrings[gid]) > 0
	}
	if int(gid) >= len(f.Glyphs) {
		return false
	}
	return !f.Glyphs[gid].Missing
}

// Glyph returns the glyf location of gid.
func (f *Font) Glyph(gid model.GID) (GlyphData, bool) {
	if int(gid) >= len(f.Glyphs) {
		return GlyphData{}, false
	}
	return f.Glyphs[gid], true
}

// Advance returns the advance width of gid in font units. Glyphs beyond the
// last long metric reuse its advance.
func (f *Font) Advance(gid model.GID) uint16 {
	switch {
	case int(gid) < len(f.Metrics):
		return f.Metrics[gid].Advance
	case len(f.Metrics) > 0:
		return f.Metrics[len(f.Metrics)-1].Advance
	}
	return 0
}

// GlyphName returns the post or CFF name of gid, or "".
func (f *Font) GlyphName(gid model.GID) string {
	if int(gid) < len(f.Names) {
		return f.Names[gid]
	}
	return ""
}

// GlyphByName finds a glyph by its post or CFF name.
func (f *Font) GlyphByName(name string) (model.GID, bool) {
	f.nameOnce.Do(func() {
		f.byName = make(map[string]model.GID, len(f.Names))
		for gid, n := range f.Names {
			if _, dup := f.byName[n]; n != "" && !dup {
				f.byName[n] = model.GID(gid)
			}
		}
	})
	gid, ok := f.byName[name]
	return gid, ok
}

// Cmap returns the subtable for a platform and encoding, or nil.
func (f *Font) Cmap(platform, encoding uint16) *Cmap {
	for _, c := range f.Cmaps {
		if c.Platform == platform && c.Encoding == encoding {
			return c
		}
	}
	return nil
}

// UnicodeCmap returns the best Unicode subtable: (3,10), (3,1), then any
// platform 0 subtable.
func (f *Font) UnicodeCmap() *Cmap {
	if c := f.Cmap(3, 10); c != nil {
		return c
	}
	if c := f.Cmap(3, 1); c != nil {
		return c
	}
	for _, c := range f.Cmaps {
		if c.Platform == 0 {
			return c
		}
	}
	return nil
}

func tableChecksum(tag string, data []byte) uint32 {
	var sum uint32
	for i := 0; i < len(data); i += 4 {
		var word [4]byte
		copy(word[:], data[i:])
		if tag == "head" && i == 8 {
			word = [4]byte{}
		}
		sum += binary.BigEndian.Uint32(word[:])
	}
	return sum
}
