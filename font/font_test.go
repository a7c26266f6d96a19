package font

import (
	"errors"
	"testing"

	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/diag"
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

func TestLoadSimpleWithDifferences(t *testing.T) {
	objs := objects{
		5: core.Dict{
			"BaseEncoding": core.Name("WinAnsiEncoding"),
			"Differences":  core.Array{core.Int(65), core.Name("Alpha"), core.Name("uni0416"), core.Int(200), core.Name("f_i")},
		},
		6: core.Array{core.Int(500), core.Int(600), core.Real(250.5)},
	}
	dict := core.Dict{
		"Type":      core.Name("Font"),
		"Subtype":   core.Name("Type1"),
		"BaseFont":  core.Name("ABCDEF+Custom"),
		"Encoding":  ref(5),
		"FirstChar": core.Int(65),
		"Widths":    ref(6),
	}
	d, err := Load(dict, model.FontRef{Number: 9}, objs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Kind != Simple || d.BaseFont != "ABCDEF+Custom" {
		t.Errorf("kind %v base %q", d.Kind, d.BaseFont)
	}

	tests := []struct {
		code     uint32
		text     string
		src      NameSource
		explicit bool
	}{
		{65, "\u0391", NameListed, true},
		{66, "\u0416", NameParsed, true},
		{67, "C", NameListed, true},
		{200, "fi", NameListed, true},
		{0x93, "\u201c", NameListed, true},
	}
	for _, tt := range tests {
		text, src, explicit := d.Encoding.Text(tt.code)
		if text != tt.text || src != tt.src || explicit != tt.explicit {
			t.Errorf("code %d: got (%q, %v, %v), want (%q, %v, %v)", tt.code, text, src, explicit, tt.text, tt.src, tt.explicit)
		}
	}

	if w := d.Width(66); w != 600 {
		t.Errorf("Width(66) = %v, want 600", w)
	}
	if w := d.Width(67); w != 250.5 {
		t.Errorf("Width(67) = %v, want 250.5", w)
	}
	if w := d.Width(10); w != 0 {
		t.Errorf("Width(10) = %v, want 0", w)
	}
	if d.Ascent != DefaultAscent || d.Descent != DefaultDescent {
		t.Errorf("metrics %v %v, want defaults", d.Ascent, d.Descent)
	}
}

func TestImplicitStandardEncodingIsNotExplicit(t *testing.T) {
	d, err := Load(core.Dict{"Subtype": core.Name("Type1"), "BaseFont": core.Name("Helvetica")}, model.FontRef{Number: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	text, src, explicit := d.Encoding.Text('A')
	if text != "A" || src != NameListed || explicit {
		t.Errorf("got (%q, %v, %v)", text, src, explicit)
	}
	if text, _, _ := d.Encoding.Text(0x27); text != "\u2019" {
		t.Errorf("standard 0x27 = %q, want right quote", text)
	}
	// Standard 14 widths apply when nothing is embedded.
	if w := d.Width('A'); w != helveticaWidths['A'] {
		t.Errorf("Width('A') = %v, want %v", w, helveticaWidths['A'])
	}
}

func TestLoadComposite(t *testing.T) {
	cidToGID := []byte{0, 0, 0, 7, 0, 9}
	objs := objects{
		10: core.Dict{
			"Subtype":        core.Name("CIDFontType2"),
			"BaseFont":       core.Name("Sub+Gothic"),
			"CIDSystemInfo":  core.Dict{"Registry": core.String("Adobe"), "Ordering": core.String("Identity"), "Supplement": core.Int(0)},
			"DW":             core.Int(900),
			"W":              core.Array{core.Int(1), core.Array{core.Int(500), core.Int(550)}, core.Int(10), core.Int(20), core.Int(333)},
			"CIDToGIDMap":    ref(11),
			"FontDescriptor": core.Dict{"Ascent": core.Int(880), "Descent": core.Int(120), "Flags": core.Int(4)},
		},
		11: &core.Stream{Dict: core.Dict{}, Data: cidToGID},
	}
	dict := core.Dict{
		"Subtype":         core.Name("Type0"),
		"BaseFont":        core.Name("Sub+Gothic-Identity-H"),
		"Encoding":        core.Name("Identity-H"),
		"DescendantFonts": core.Array{ref(10)},
	}
	d, err := Load(dict, model.FontRef{Number: 3}, objs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Kind != Composite || d.CMapName != "Identity-H" || d.Vertical {
		t.Errorf("kind %v cmap %q vertical %v", d.Kind, d.CMapName, d.Vertical)
	}
	if !d.CIDSystemInfo.IsIdentity() || d.CIDSystemInfo.IsCJK() {
		t.Errorf("CIDSystemInfo %+v", d.CIDSystemInfo)
	}
	if d.Ascent != 0.88 || d.Descent != -0.12 {
		t.Errorf("ascent %v descent %v", d.Ascent, d.Descent)
	}

	codes := d.Codes([]byte{0x00, 0x01, 0x00, 0x02, 0x00})
	want := []Code{{1, 2}, {2, 2}, {0, 1}}
	if len(codes) != len(want) {
		t.Fatalf("Codes = %v", codes)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("code %d = %v, want %v", i, codes[i], want[i])
		}
	}

	widths := map[uint32]float64{1: 500, 2: 550, 3: 900, 15: 333, 21: 900}
	for code, want := range widths {
		if got := d.Width(code); got != want {
			t.Errorf("Width(%d) = %v, want %v", code, got, want)
		}
	}

	// No program: the map still yields a GID, but it is not confirmed.
	if gid, ok := d.GID(1); gid != 7 || ok {
		t.Errorf("GID(1) = %d, %v", gid, ok)
	}
	if _, ok := d.GID(5); ok {
		t.Error("GID past the CIDToGIDMap should fail")
	}
}

func TestEmbeddedTrueTypeGID(t *testing.T) {
	ft := fonttest.New("Embedded", "AB")
	objs := objects{
		20: core.Dict{"Flags": core.Int(32), "FontFile2": ref(21)},
		21: &core.Stream{Dict: core.Dict{}, Data: ft.Bytes()},
	}
	dict := core.Dict{
		"Subtype":        core.Name("TrueType"),
		"BaseFont":       core.Name("Embedded"),
		"Encoding":       core.Name("WinAnsiEncoding"),
		"FontDescriptor": ref(20),
	}
	d, err := Load(dict, model.FontRef{Number: 4}, objs)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Usable() || d.ProgramKind != TrueTypeProgram {
		t.Fatalf("program %v err %v", d.ProgramKind, d.ProgramErr)
	}
	if gid, ok := d.GID('B'); !ok || gid != ft.GID('B') {
		t.Errorf("GID('B') = %d, %v; want %d", gid, ok, ft.GID('B'))
	}
	if _, ok := d.GID('Z'); ok {
		t.Error("unmapped code resolved")
	}
	// No /Widths: the program's advances are used.
	if w := d.Width('A'); w != 600 {
		t.Errorf("Width('A') = %v, want 600", w)
	}
}

func TestBrokenProgramIsExtractionError(t *testing.T) {
	objs := objects{
		20: core.Dict{"FontFile2": &core.Stream{Dict: core.Dict{}, Data: []byte{0, 1, 0, 0, 0, 9}}},
	}
	d, err := Load(core.Dict{"Subtype": core.Name("TrueType"), "FontDescriptor": ref(20)}, model.FontRef{Number: 8}, objs)
	if err != nil {
		t.Fatal(err)
	}
	var fe *diag.FontExtractionError
	if !errors.As(d.ProgramErr, &fe) || fe.Font.Number != 8 {
		t.Fatalf("ProgramErr = %v", d.ProgramErr)
	}
	if d.Usable() {
		t.Error("broken program reported usable")
	}
}

func TestMalformedToUnicodeIsKept(t *testing.T) {
	dict := core.Dict{
		"Subtype":   core.Name("Type1"),
		"ToUnicode": &core.Stream{Dict: core.Dict{}, Data: []byte("1 beginbfchar <01> <0041>")},
	}
	d, err := Load(dict, model.FontRef{Number: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d.ToUnicode != nil || !errors.Is(d.ToUnicodeErr, ErrMalformedCMap) {
		t.Errorf("ToUnicode %v err %v", d.ToUnicode, d.ToUnicodeErr)
	}
}

func TestLoadRejectsNonFonts(t *testing.T) {
	if _, err := Load(nil, model.FontRef{}, nil); err == nil {
		t.Error("nil dict accepted")
	}
	if _, err := Load(core.Dict{"Subtype": core.Name("Type0")}, model.FontRef{Number: 1}, nil); err == nil {
		t.Error("Type0 without descendants accepted")
	}
}

func TestLookupGlyphName(t *testing.T) {
	tests := []struct {
		name string
		want string
		src  NameSource
	}{
		{"a", "a", NameListed},
		{"a.sc", "a", NameListed},
		{"quotedblleft", "\u201c", NameListed},
		{"uni00410042", "AB", NameParsed},
		{"u1F600", "\U0001F600", NameParsed},
		{"uniD800", "", NameUnknown},
		{"f_f_i", "ffi", NameListed},
		{"g123", "", NameUnknown},
		{"", "", NameUnknown},
	}
	for _, tt := range tests {
		got, src := LookupGlyphName(tt.name)
		if got != tt.want || src != tt.src {
			t.Errorf("LookupGlyphName(%q) = %q, %v; want %q, %v", tt.name, got, src, tt.want, tt.src)
		}
	}
	if RuneName(0x416) != "uni0416" || RuneName('A') != "A" || RuneName(0x2019) != "quoteright" {
		t.Error("RuneName mismatch")
	}
}
