package tounicode

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/font"
	"github.com/tsawler/pdfhtml/internal/fonttest"
	"github.com/tsawler/pdfhtml/model"
)

type objects map[int]core.Object

func (o objects) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	if obj, ok := o[ref.Number]; ok {
		return obj, nil
	}
	return nil, errors.New("no such object")
}

func ref(n int) core.IndirectRef { return core.IndirectRef{Number: n} }

// toUnicode builds a ToUnicode stream with one bfchar line per mapping.
func toUnicode(codeLen int, m map[uint32]string) *core.Stream {
	var sb strings.Builder
	sb.WriteString("/CIDInit /ProcSet findresource begin 12 dict begin begincmap\n")
	if codeLen == 1 {
		sb.WriteString("1 begincodespacerange <00> <FF> endcodespacerange\n")
	} else {
		sb.WriteString("1 begincodespacerange <0000> <FFFF> endcodespacerange\n")
	}
	fmt.Fprintf(&sb, "%d beginbfchar\n", len(m))
	for code, text := range m {
		var dst strings.Builder
		for _, r := range text {
			if r > 0xFFFF {
				r -= 0x10000
				fmt.Fprintf(&dst, "%04X%04X", 0xD800+(r>>10), 0xDC00+(r&0x3FF))
				continue
			}
			fmt.Fprintf(&dst, "%04X", r)
		}
		fmt.Fprintf(&sb, "<%0*X> <%s>\n", codeLen*2, code, dst.String())
	}
	sb.WriteString("endbfchar\nendcmap CMapName currentdict /CMap defineresource pop end end\n")
	return &core.Stream{Dict: core.Dict{}, Data: []byte(sb.String())}
}

func load(t *testing.T, dict core.Dict, objs objects) *font.Descriptor {
	t.Helper()
	d, err := font.Load(dict, model.FontRef{Number: 1}, objs)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

type resolved struct {
	Text   string
	Tier   model.Tier
	Source Source
}

func lookup(tab *Table, codes ...uint32) []resolved {
	var out []resolved
	for _, c := range codes {
		e, _ := tab.Lookup(c)
		out = append(out, resolved{e.Text, e.Tier, e.Source})
	}
	return out
}

func TestToUnicodeIsHighTier(t *testing.T) {
	dict := core.Dict{
		"Subtype":   core.Name("Type1"),
		"BaseFont":  core.Name("Helvetica"),
		"ToUnicode": toUnicode(1, map[uint32]string{0x41: "A", 0x42: "\u00df", 0x43: "fi", 0x44: "\U0001D400"}),
	}
	tab := Resolve(load(t, dict, nil))

	want := []resolved{
		{"A", model.TierHigh, SourceToUnicode},
		{"\u00df", model.TierHigh, SourceToUnicode},
		{"fi", model.TierHigh, SourceToUnicode},
		{"\U0001D400", model.TierHigh, SourceToUnicode},
		// Not in the CMap: the implicit StandardEncoding fallback.
		{"E", model.TierHeuristic, SourceEncoding},
	}
	if diff := cmp.Diff(want, lookup(tab, 0x41, 0x42, 0x43, 0x44, 0x45)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestResolutionIsDeterministic(t *testing.T) {
	ft := fonttest.New("Det", "The quick brown fox")
	build := func() *Table {
		objs := objects{
			2: core.Dict{"Flags": core.Int(32), "FontFile2": ref(3)},
			3: &core.Stream{Dict: core.Dict{}, Data: ft.Bytes()},
		}
		m := map[uint32]string{}
		for c := uint32('a'); c <= 'z'; c++ {
			m[c] = string(rune(c))
		}
		dict := core.Dict{
			"Subtype":        core.Name("TrueType"),
			"Encoding":       core.Name("WinAnsiEncoding"),
			"FontDescriptor": ref(2),
			"ToUnicode":      toUnicode(1, m),
		}
		return Resolve(load(t, dict, objs))
	}

	a, b := build(), build()
	if diff := cmp.Diff(a.Entries(), b.Entries()); diff != "" {
		t.Errorf("entries differ between runs:\n%s", diff)
	}
	if a.Digest() != b.Digest() {
		t.Errorf("digest %s != %s", a.Digest(), b.Digest())
	}
	e, ok := a.Lookup('q')
	if !ok || e.GID != ft.GID('q') || !e.HasGID {
		t.Errorf("Lookup('q') = %+v", e)
	}
}

func TestEncodingTiers(t *testing.T) {
	tests := []struct {
		name     string
		encoding core.Object
		code     uint32
		want     resolved
	}{
		{"explicit base", core.Name("WinAnsiEncoding"), 0xE9, resolved{"\u00e9", model.TierHigh, SourceEncoding}},
		{"implicit standard", nil, 'x', resolved{"x", model.TierHeuristic, SourceEncoding}},
		{
			"differences name",
			core.Dict{"Differences": core.Array{core.Int(1), core.Name("Euro")}},
			1, resolved{"\u20ac", model.TierHigh, SourceEncoding},
		},
		{
			"parsed uni name",
			core.Dict{"BaseEncoding": core.Name("WinAnsiEncoding"), "Differences": core.Array{core.Int(1), core.Name("uni0416")}},
			1, resolved{"\u0416", model.TierHeuristic, SourceEncoding},
		},
		{
			"unknown name",
			core.Dict{"Differences": core.Array{core.Int(1), core.Name("g17")}},
			1, resolved{"", model.TierUnresolved, SourceNone},
		},
		{
			"control character rejected",
			core.Dict{"Differences": core.Array{core.Int(1), core.Name("uni0007")}},
			1, resolved{"", model.TierUnresolved, SourceNone},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dict := core.Dict{"Subtype": core.Name("Type1"), "BaseFont": core.Name("Custom")}
			if tt.encoding != nil {
				dict["Encoding"] = tt.encoding
			}
			got := lookup(Resolve(load(t, dict, nil)), tt.code)
			if diff := cmp.Diff([]resolved{tt.want}, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrivateUseFallsThrough(t *testing.T) {
	dict := core.Dict{
		"Subtype":   core.Name("Type1"),
		"Encoding":  core.Name("WinAnsiEncoding"),
		"ToUnicode": toUnicode(1, map[uint32]string{0x41: "\uE000", 0x42: "\uFFFD"}),
	}
	got := lookup(Resolve(load(t, dict, nil)), 0x41, 0x42)
	want := []resolved{
		{"A", model.TierHigh, SourceEncoding},
		{"B", model.TierHigh, SourceEncoding},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCaseCollapseRejectsSource(t *testing.T) {
	ft := fonttest.New("Caps", "ABC")
	objs := objects{
		2: core.Dict{"Flags": core.Int(32), "FontFile2": ref(3)},
		3: &core.Stream{Dict: core.Dict{}, Data: ft.Bytes()},
	}
	// Codes 97 to 99 draw the capitals, but the ToUnicode claims lowercase.
	dict := core.Dict{
		"Subtype":        core.Name("TrueType"),
		"FontDescriptor": ref(2),
		"Encoding":       core.Dict{"Differences": core.Array{core.Int(97), core.Name("A"), core.Name("B"), core.Name("C")}},
		"ToUnicode": toUnicode(1, map[uint32]string{
			'A': "A", 'B': "B", 'C': "C",
			'a': "a", 'b': "b", 'c': "c",
		}),
	}
	tab := Resolve(load(t, dict, objs))
	if diff := cmp.Diff([]Source{SourceToUnicode}, tab.Rejected); diff != "" {
		t.Errorf("rejected sources (-want +got):\n%s", diff)
	}
	want := []resolved{
		{"A", model.TierHigh, SourceEncoding},
		{"A", model.TierHeuristic, SourceEncoding},
	}
	if diff := cmp.Diff(want, lookup(tab, 'a', 'A')); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func compositeFont(program []byte, toUni *core.Stream) (core.Dict, objects) {
	objs := objects{
		2: core.Dict{
			"Subtype":        core.Name("CIDFontType2"),
			"CIDSystemInfo":  core.Dict{"Registry": core.String("Adobe"), "Ordering": core.String("Identity")},
			"FontDescriptor": ref(3),
		},
		3: core.Dict{"Flags": core.Int(4), "FontFile2": ref(4)},
		4: &core.Stream{Dict: core.Dict{}, Data: program},
	}
	dict := core.Dict{
		"Subtype":         core.Name("Type0"),
		"Encoding":        core.Name("Identity-H"),
		"DescendantFonts": core.Array{ref(2)},
	}
	if toUni != nil {
		dict["ToUnicode"] = toUni
	}
	return dict, objs
}

func TestCompositeOrderingUsesProgramCmap(t *testing.T) {
	ft := fonttest.New("CID", "xyz")
	dict, objs := compositeFont(ft.Bytes(), nil)
	tab := Resolve(load(t, dict, objs))

	gid := uint32(ft.GID('y'))
	want := []resolved{{"y", model.TierHeuristic, SourceCIDOrdering}}
	if diff := cmp.Diff(want, lookup(tab, gid)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	e, ok := tab.ByGID(ft.GID('z'))
	if !ok || e.Text != "z" {
		t.Errorf("ByGID = %+v, %v", e, ok)
	}
	if e, ok := tab.ByText("x"); !ok || e.GID != ft.GID('x') {
		t.Errorf("ByText = %+v, %v", e, ok)
	}
}

func TestIdentityWithoutInformationIsUnresolved(t *testing.T) {
	ft := fonttest.New("Bare", "xyz")
	ft.NoCmap, ft.NoPost = true, true
	dict, objs := compositeFont(ft.Bytes(), nil)
	tab := Resolve(load(t, dict, objs))

	if tab.Len() == 0 {
		t.Fatal("no entries for the program's glyphs")
	}
	for _, e := range tab.Entries() {
		if e.Tier != model.TierUnresolved || e.Text != "" {
			t.Errorf("code %d resolved to %q (%v)", e.Code, e.Text, e.Tier)
		}
	}
	if tab.Unresolved() != tab.Len() {
		t.Errorf("Unresolved() = %d, want %d", tab.Unresolved(), tab.Len())
	}
}

func TestCompositeToUnicodeWins(t *testing.T) {
	ft := fonttest.New("CID", "xy")
	dict, objs := compositeFont(ft.Bytes(), toUnicode(2, map[uint32]string{uint32(ft.GID('x')): "X"}))
	got := lookup(Resolve(load(t, dict, objs)), uint32(ft.GID('x')), uint32(ft.GID('y')))
	want := []resolved{
		{"X", model.TierHigh, SourceToUnicode},
		{"y", model.TierHeuristic, SourceCIDOrdering},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUsable(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a", true},
		{"fi", true},
		{"", false},
		{"\x01", false},
		{"\uFFFD", false},
		{"\uE000", false},
		{"\U000F0000", false},
		{"\xff", false},
	}
	for _, tt := range tests {
		if got := Usable(tt.in); got != tt.want {
			t.Errorf("Usable(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
