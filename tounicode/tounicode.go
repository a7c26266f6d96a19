package tounicode

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/tsawler/pdfhtml/font"
	"github.com/tsawler/pdfhtml/model"
)

// Source identifies where an entry's text came from.
type Source int

const (
	SourceNone Source = iota
	SourceToUnicode
	SourceEncoding
	SourceCIDOrdering
	SourceNative
)

func (s Source) String() string {
	switch s {
	case SourceToUnicode:
		return "tounicode"
	case SourceEncoding:
		return "encoding"
	case SourceCIDOrdering:
		return "cid-ordering"
	case SourceNative:
		return "native"
	}
	return "none"
}

// Entry is the resolution of one character code.
type Entry struct {
	Code   uint32
	GID    model.GID
	HasGID bool
	Text   string
	Tier   model.Tier
	Source Source
}

// Table maps the character codes of one font to text.
type Table struct {
	entries []Entry // sorted by code
	byCode  map[uint32]int
	// Rejected lists sources dropped by a sanity check.
	Rejected []Source
}

// Lookup returns the entry for code. A code the table does not know is
// reported as unresolved with ok false.
func (t *Table) Lookup(code uint32) (Entry, bool) {
	if t != nil {
		if i, ok := t.byCode[code]; ok {
			return t.entries[i], true
		}
	}
	return Entry{Code: code, Tier: model.TierUnresolved}, false
}

// ByGID returns the resolved entry with the lowest code that selects gid.
func (t *Table) ByGID(gid model.GID) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	for _, e := range t.entries {
		if e.HasGID && e.GID == gid && e.Tier != model.TierUnresolved {
			return e, true
		}
	}
	return Entry{}, false
}

// ByText returns the resolved entry with the lowest GID whose text is s.
func (t *Table) ByText(s string) (Entry, bool) {
	var best Entry
	found := false
	if t == nil {
		return best, false
	}
	for _, e := range t.entries {
		if e.Text != s || !e.HasGID || e.Tier == model.TierUnresolved {
			continue
		}
		if !found || e.GID < best.GID {
			best, found = e, true
		}
	}
	return best, found
}

// Entries returns a copy of every entry, sorted by code.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Unresolved counts entries with no usable text.
func (t *Table) Unresolved() int {
	n := 0
	for _, e := range t.Entries() {
		if e.Tier == model.TierUnresolved {
			n++
		}
	}
	return n
}

// Digest is a hex sha256 over the sorted entries. Equal digests mean equal
// tables and tier assignments.
func (t *Table) Digest() string {
	h := sha256.New()
	for _, e := range t.Entries() {
		fmt.Fprintf(h, "%d\x00%d\x00%t\x00%q\x00%d\x00%d\n", e.Code, e.GID, e.HasGID, e.Text, e.Tier, e.Source)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func newTable(entries map[uint32]Entry) *Table {
	t := &Table{byCode: make(map[uint32]int, len(entries))}
	for _, e := range entries {
		t.entries = append(t.entries, e)
	}
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].Code < t.entries[j].Code })
	for i, e := range t.entries {
		t.byCode[e.Code] = i
	}
	return t
}

// Usable reports whether s can be placed in the text layer: non-empty, valid
// UTF-8, and free of control characters, U+FFFD and private use code points.
func Usable(s string) bool {
	if s == "" || !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if r == unicode.ReplacementChar || unicode.Is(unicode.Co, r) {
			return false
		}
		if unicode.IsControl(r) && r != '\t' {
			return false
		}
	}
	return true
}

// candidate is one source's proposal for one code.
type candidate struct {
	text string
	tier model.Tier
}

// sourceMap is everything one source proposes, by code.
type sourceMap struct {
	source Source
	codes  map[uint32]candidate
}

func (s *sourceMap) add(code uint32, text string, tier model.Tier) {
	if !Usable(text) {
		return
	}
	if s.codes == nil {
		s.codes = make(map[uint32]candidate)
	}
	s.codes[code] = candidate{text: text, tier: tier}
}

// gidFunc maps a code to its glyph.
type gidFunc func(code uint32) (model.GID, bool)

// collapsed reports whether too many lowercase and uppercase letter pairs of
// the source select the same glyph, which happens when a subsetter folded
// case or a producer wrote a bogus map.
func (s *sourceMap) collapsed(gid gidFunc) bool {
	byText := make(map[rune]model.GID)
	for code, c := range s.codes {
		r, size := utf8.DecodeRuneInString(c.text)
		if size != len(c.text) || !unicode.IsLetter(r) {
			continue
		}
		g, ok := gid(code)
		if !ok {
			continue
		}
		if prev, seen := byText[r]; !seen || g < prev {
			byText[r] = g
		}
	}
	pairs, same := 0, 0
	for r, g := range byText {
		if !unicode.IsLower(r) {
			continue
		}
		up, ok := byText[unicode.ToUpper(r)]
		if !ok || unicode.ToUpper(r) == r {
			continue
		}
		pairs++
		if up == g {
			same++
		}
	}
	if pairs == 0 {
		return false
	}
	return same >= max(3, pairs/2)
}

// Resolve builds the table for one font.
//
// Sources are tried per code in order: the ToUnicode CMap, the simple-font
// encoding, the CID ordering for composite fonts, and the program's own
// cmap and glyph names. The first source proposing usable text wins.
func Resolve(d *font.Descriptor) *Table {
	gid := gidFunc(d.GID)

	var sources []*sourceMap
	if s := fromToUnicode(d); s != nil {
		sources = append(sources, s)
	}
	if d.Kind == font.Simple {
		sources = append(sources, fromEncoding(d))
	} else {
		sources = append(sources, fromCIDOrdering(d))
	}
	if s := fromNative(d); s != nil {
		sources = append(sources, s)
	}

	var rejected []Source
	entries := make(map[uint32]Entry)
	for _, src := range sources {
		if src.collapsed(gid) {
			rejected = append(rejected, src.source)
			continue
		}
		for code, c := range src.codes {
			if _, done := entries[code]; done {
				continue
			}
			e := Entry{Code: code, Text: c.text, Tier: c.tier, Source: src.source}
			e.GID, e.HasGID = gid(code)
			entries[code] = e
		}
	}

	// Codes the font can show but nothing resolved.
	for _, code := range domain(d) {
		if _, ok := entries[code]; ok {
			continue
		}
		e := Entry{Code: code, Tier: model.TierUnresolved}
		e.GID, e.HasGID = gid(code)
		entries[code] = e
	}

	t := newTable(entries)
	t.Rejected = rejected
	return t
}

// fromToUnicode is source (a). A malformed CMap was already dropped by
// font.Load and its error kept in ToUnicodeErr.
func fromToUnicode(d *font.Descriptor) *sourceMap {
	if d.ToUnicode == nil || d.ToUnicodeErr != nil {
		return nil
	}
	s := &sourceMap{source: SourceToUnicode}
	for _, code := range d.ToUnicode.Codes() {
		text, _ := d.ToUnicode.Lookup(code)
		s.add(code, text, model.TierHigh)
	}
	return s
}

// fromEncoding is source (b).
func fromEncoding(d *font.Descriptor) *sourceMap {
	s := &sourceMap{source: SourceEncoding}
	if d.Encoding == nil {
		return s
	}
	for code := uint32(0); code < 256; code++ {
		text, how, explicit := d.Encoding.Text(code)
		switch {
		case how == font.NameUnknown:
		case how == font.NameListed && explicit:
			s.add(code, text, model.TierHigh)
		default:
			s.add(code, text, model.TierHeuristic)
		}
	}
	return s
}

// fromCIDOrdering is source (c). Identity orderings carry no meaning of their
// own; the glyph is looked up in the program's Unicode cmap when there is
// one. Without a cmap nothing is guessed.
func fromCIDOrdering(d *font.Descriptor) *sourceMap {
	s := &sourceMap{source: SourceCIDOrdering}
	if d.Font == nil || d.ProgramErr != nil {
		return s
	}
	cm := d.Font.UnicodeCmap()
	if cm == nil || !trusted(cm.Map, d.Font.NumGlyphs) {
		return s
	}
	rev := cm.Reverse()
	for _, code := range compositeCodes(d) {
		g, ok := d.GID(code)
		if !ok {
			continue
		}
		if r, ok := rev[g]; ok {
			s.add(code, string(rune(r)), model.TierHeuristic)
		}
	}
	return s
}

// fromNative is source (d): the program's cmap for simple fonts, then its
// glyph names.
func fromNative(d *font.Descriptor) *sourceMap {
	if d.Font == nil || d.ProgramErr != nil {
		return nil
	}
	s := &sourceMap{source: SourceNative}
	var rev map[model.GID]uint32
	if cm := d.Font.UnicodeCmap(); cm != nil && trusted(cm.Map, d.Font.NumGlyphs) && d.Kind == font.Simple {
		rev = cm.Reverse()
	}
	for _, code := range domain(d) {
		g, ok := d.GID(code)
		if !ok || g == 0 {
			continue
		}
		if r, ok := rev[g]; ok {
			s.add(code, string(rune(r)), model.TierHeuristic)
			continue
		}
		if name := d.Font.GlyphName(g); name != "" {
			if text, how := font.LookupGlyphName(name); how != font.NameUnknown {
				s.add(code, text, model.TierHeuristic)
			}
		}
	}
	return s
}

// trusted reports whether a native cmap has enough usable mappings to be
// believed.
func trusted(m map[uint32]model.GID, numGlyphs int) bool {
	usable := 0
	for code, g := range m {
		if g != 0 && Usable(string(rune(code))) {
			usable++
		}
	}
	return usable >= max(1, min(10, numGlyphs/4))
}

// domain lists the codes a font can show.
func domain(d *font.Descriptor) []uint32 {
	if d.Kind == font.Composite {
		return compositeCodes(d)
	}
	var codes []uint32
	for code := uint32(0); code < 256; code++ {
		if d.GlyphName(code) != "" || inWidths(d, code) {
			codes = append(codes, code)
		}
	}
	return codes
}

func inWidths(d *font.Descriptor, code uint32) bool {
	i := int(code) - d.FirstChar
	return i >= 0 && i < len(d.Widths) && d.Widths[i] > 0
}

// compositeCodes lists the codes of a composite font: those of the ToUnicode
// and encoding CMaps, then one code per glyph of the program.
func compositeCodes(d *font.Descriptor) []uint32 {
	seen := make(map[uint32]bool)
	var codes []uint32
	add := func(c uint32) {
		if !seen[c] {
			seen[c] = true
			codes = append(codes, c)
		}
	}
	if d.ToUnicode != nil && d.ToUnicodeErr == nil {
		for _, c := range d.ToUnicode.Codes() {
			add(c)
		}
	}
	if d.EncodingCMap != nil {
		for _, c := range d.EncodingCMap.CIDCodes() {
			add(c)
		}
	}
	if d.EncodingCMap == nil && d.Font != nil {
		// Identity encoding: code equals CID.
		if d.CIDToGID != nil {
			for cid, g := range d.CIDToGID {
				if g != 0 {
					add(uint32(cid))
				}
			}
		} else {
			for g := 1; g < d.Font.NumGlyphs; g++ {
				add(uint32(g))
			}
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
