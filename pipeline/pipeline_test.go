package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"

	"github.com/tsawler/pdfhtml/background"
	"github.com/tsawler/pdfhtml/classify"
	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/htmldoc"
	"github.com/tsawler/pdfhtml/internal/fonttest"
	"github.com/tsawler/pdfhtml/internal/pdftest"
	"github.com/tsawler/pdfhtml/model"
	"github.com/tsawler/pdfhtml/render"
)

// trueType adds an embedded simple TrueType font and returns the font
// dictionary's object number.
func trueType(b *pdftest.Builder, ft *fonttest.Font) int {
	prog := b.AddStream("", ft.Bytes())
	fd := b.Add(fmt.Sprintf("<< /Type /FontDescriptor /FontName /%s /Flags 32 /FontBBox [0 -200 1000 800] /Ascent 800 /Descent -200 /ItalicAngle 0 /StemV 80 /FontFile2 %d 0 R >>", ft.Family, prog))
	return b.Add(fmt.Sprintf("<< /Type /Font /Subtype /TrueType /BaseFont /%s /Encoding /WinAnsiEncoding /FontDescriptor %d 0 R >>", ft.Family, fd))
}

// brokenTrueType adds a font whose program does not parse.
func brokenTrueType(b *pdftest.Builder) int {
	prog := b.AddStream("", []byte{0, 1, 0, 0, 0, 9})
	fd := b.Add(fmt.Sprintf("<< /Type /FontDescriptor /FontName /Broken /Flags 32 /FontBBox [0 -200 1000 800] /Ascent 800 /Descent -200 /FontFile2 %d 0 R >>", prog))
	widths := strings.TrimSpace(strings.Repeat("600 ", 95))
	return b.Add(fmt.Sprintf("<< /Type /Font /Subtype /TrueType /BaseFont /Broken /FirstChar 32 /LastChar 126 /Widths [%s] /Encoding /WinAnsiEncoding /FontDescriptor %d 0 R >>", widths, fd))
}

// identityCID adds a composite font over ft with no ToUnicode.
func identityCID(b *pdftest.Builder, ft *fonttest.Font) int {
	prog := b.AddStream("", ft.Bytes())
	fd := b.Add(fmt.Sprintf("<< /Type /FontDescriptor /FontName /%s /Flags 4 /FontBBox [0 -200 1000 800] /Ascent 800 /Descent -200 /FontFile2 %d 0 R >>", ft.Family, prog))
	cid := b.Add(fmt.Sprintf("<< /Type /Font /Subtype /CIDFontType2 /BaseFont /%s /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> /FontDescriptor %d 0 R /DW 1000 >>", ft.Family, fd))
	return b.Add(fmt.Sprintf("<< /Type /Font /Subtype /Type0 /BaseFont /%s /Encoding /Identity-H /DescendantFonts [%d 0 R] >>", ft.Family, cid))
}

func testConfig() Config {
	return Config{Renderer: render.Outline{}, Workers: 4}
}

func convert(t *testing.T, cfg Config, data []byte) *Result {
	t.Helper()
	res, err := New(cfg).RunBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("RunBytes() failed: %v", err)
	}
	return res
}

func ref(n int) model.FontRef { return model.FontRef{Number: n} }

func hasDiag(res *Result, kind diag.Kind, page int) bool {
	for _, d := range res.Diagnostics {
		if d.Kind == kind && d.Page == page {
			return true
		}
	}
	return false
}

// checkLayers asserts that every glyph is in exactly one layer.
func checkLayers(t *testing.T, p *PageResult) {
	t.Helper()
	inText := map[int]bool{}
	for _, n := range p.Nodes {
		for _, s := range n.Seqs {
			inText[s] = true
		}
	}
	erased := map[int]bool{}
	for _, s := range p.Erased {
		erased[s] = true
	}
	for _, g := range p.Glyphs {
		if g.Extractable != inText[g.Seq] {
			t.Errorf("page %d glyph %d %q: extractable=%v but in text layer=%v", p.Number, g.Seq, g.Text, g.Extractable, inText[g.Seq])
		}
		if !g.Extractable && erased[g.Seq] {
			t.Errorf("page %d glyph %d: background glyph was erased", p.Number, g.Seq)
		}
	}
}

func TestScenarioSimpleTrueType(t *testing.T) {
	b := pdftest.New()
	f := trueType(b, fonttest.New("Simple", "Helo"))
	b.Pages(pdftest.Page{Content: "BT /F1 24 Tf 72 700 Td (Hello) Tj ET", Fonts: map[string]int{"F1": f}})

	res := convert(t, testConfig(), b.Bytes())
	if len(res.Pages) != 1 {
		t.Fatalf("got %d pages", len(res.Pages))
	}
	p := res.Pages[0]
	if len(p.Nodes) != 1 || p.Nodes[0].Text != "Hello" {
		t.Fatalf("nodes = %+v", p.Nodes)
	}
	checkLayers(t, p)

	l := p.Layout
	first := p.Glyphs[0]
	box := l.Box(first.BBox)
	n := p.Nodes[0]
	if n.Left < box.Left()-1 || n.Left > box.Left()+1 {
		t.Errorf("node left %v, glyph box left %v", n.Left, box.Left())
	}
	if n.Top < box.Bottom()-1 || n.Top > box.Top() {
		t.Errorf("node top %v outside glyph box [%v, %v]", n.Top, box.Bottom(), box.Top())
	}

	ras := background.NewRaster(p.Background)
	for _, g := range p.Glyphs {
		if ink := ras.ResidualInk(l.Rect(g.BBox, 0), 16); ink > 0 {
			t.Errorf("glyph %q left %.3f residual ink", g.Text, ink)
		}
	}

	fr := res.Fonts[ref(f)]
	if fr == nil || fr.Face == nil {
		t.Fatalf("font result = %+v", fr)
	}
	if n.Family != fr.Family || fr.Face.Format != "woff2" {
		t.Errorf("node family %q, face %q/%s", n.Family, fr.Family, fr.Face.Format)
	}
	for _, g := range p.Glyphs {
		if !fr.Subset.Has(g.GID) {
			t.Errorf("subset lacks gid %d used by %q", g.GID, g.Text)
		}
	}
	if n.LetterSpacing != 0 {
		t.Errorf("letter-spacing = %v, want 0 when metrics agree", n.LetterSpacing)
	}
}

func TestScenarioCIDWithoutToUnicode(t *testing.T) {
	ft := fonttest.New("Bare", "xy")
	ft.NoCmap, ft.NoPost = true, true
	b := pdftest.New()
	f := identityCID(b, ft)
	content := fmt.Sprintf("BT /C1 24 Tf 72 600 Td <%04X%04X> Tj ET", ft.GID('x'), ft.GID('y'))
	b.Pages(pdftest.Page{Content: content, Fonts: map[string]int{"C1": f}})

	res := convert(t, testConfig(), b.Bytes())
	p := res.Pages[0]
	if len(p.Glyphs) != 2 {
		t.Fatalf("got %d glyphs", len(p.Glyphs))
	}
	if len(p.Nodes) != 0 {
		t.Errorf("text layer = %+v, want empty", p.Nodes)
	}
	ras := background.NewRaster(p.Background)
	for _, g := range p.Glyphs {
		if g.Tier != model.TierUnresolved || g.Extractable {
			t.Errorf("glyph %d tier %v extractable %v", g.Seq, g.Tier, g.Extractable)
		}
		if ink := ras.ResidualInk(p.Layout.Rect(g.BBox, 0), 16); ink < 0.2 {
			t.Errorf("glyph %d ink %.3f, want the original ink kept", g.Seq, ink)
		}
	}
	if !hasDiag(res, diag.KindToUnicode, 0) {
		t.Error("unresolved glyphs not recorded")
	}
	checkLayers(t, p)
}

func TestScenarioSharedFont(t *testing.T) {
	b := pdftest.New()
	f := trueType(b, fonttest.New("Shared", "Pageonetw"))
	fonts := map[string]int{"F1": f}
	b.Pages(
		pdftest.Page{Content: "BT /F1 12 Tf 72 700 Td (Page one) Tj ET", Fonts: fonts},
		pdftest.Page{Content: "BT /F1 12 Tf 72 700 Td (Page two) Tj ET", Fonts: fonts},
	)

	cfg := testConfig()
	p := New(cfg)
	res, err := p.RunBytes(context.Background(), b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if runs := p.Cache().Runs(ref(f)); runs != 1 {
		t.Errorf("font processed %d times, want 1", runs)
	}
	if faces := res.Faces(); len(faces) != 1 {
		t.Fatalf("got %d faces, want 1", len(faces))
	}
	fam1, fam2 := res.Pages[0].Nodes[0].Family, res.Pages[1].Nodes[0].Family
	if fam1 == "" || fam1 != fam2 {
		t.Errorf("families %q and %q", fam1, fam2)
	}

	// A second conversion of the same bytes produces the same font.
	again := convert(t, cfg, b.Bytes())
	if !bytes.Equal(again.Faces()[0].Data, res.Faces()[0].Data) {
		t.Error("font bytes differ between runs")
	}
}

func TestScenarioBrokenFontProgram(t *testing.T) {
	b := pdftest.New()
	bad := brokenTrueType(b)
	good := trueType(b, fonttest.New("Good", "ok"))
	b.Pages(pdftest.Page{
		Content: "BT /B1 12 Tf 72 700 Td (bad) Tj /G1 12 Tf 0 -100 Td (ok) Tj ET",
		Fonts:   map[string]int{"B1": bad, "G1": good},
	})

	res := convert(t, testConfig(), b.Bytes())
	p := res.Pages[0]
	for _, g := range p.Glyphs {
		if g.Font == ref(bad) && g.Extractable {
			t.Errorf("glyph %q of the broken font is extractable", g.Text)
		}
	}
	if len(p.Nodes) != 1 || p.Nodes[0].Text != "ok" {
		t.Errorf("nodes = %+v", p.Nodes)
	}
	if !hasDiag(res, diag.KindExtraction, 0) {
		t.Errorf("no extraction diagnostic in %v", res.Diagnostics)
	}
	if !res.Fonts[ref(bad)].Unavailable {
		t.Error("broken font not marked unavailable")
	}
	checkLayers(t, p)
}

func TestEncryptedDocument(t *testing.T) {
	b := pdftest.New()
	b.Pages(pdftest.Page{Content: ""})
	enc := b.Add("<< /Filter /Standard /V 2 /R 3 >>")
	b.SetTrailerExtra(fmt.Sprintf("/Encrypt %d 0 R ", enc))

	_, err := New(testConfig()).RunBytes(context.Background(), b.Bytes())
	var le *diag.DocumentLoadError
	if !errors.As(err, &le) || !errors.Is(err, diag.ErrEncrypted) {
		t.Errorf("err = %v, want an encrypted DocumentLoadError", err)
	}
}

type failPage struct {
	page int
	next render.Renderer
}

func (f failPage) Render(ctx context.Context, req render.Request) (*image.RGBA, error) {
	if f.page == 0 || req.Page == f.page {
		return nil, errors.New("engine crashed")
	}
	return f.next.Render(ctx, req)
}

func TestRenderFailureSkipsPage(t *testing.T) {
	b := pdftest.New()
	f := trueType(b, fonttest.New("F", "abc"))
	fonts := map[string]int{"F1": f}
	b.Pages(
		pdftest.Page{Content: "BT /F1 12 Tf 72 700 Td (a) Tj ET", Fonts: fonts},
		pdftest.Page{Content: "BT /F1 12 Tf 72 700 Td (b) Tj ET", Fonts: fonts},
		pdftest.Page{Content: "BT /F1 12 Tf 72 700 Td (c) Tj ET", Fonts: fonts},
	)
	cfg := testConfig()
	cfg.Renderer = failPage{page: 2, next: render.Outline{}}
	res := convert(t, cfg, b.Bytes())

	if !res.Pages[1].Skipped || res.Pages[1].Background != nil {
		t.Errorf("page 2 = %+v, want skipped", res.Pages[1])
	}
	for _, i := range []int{0, 2} {
		if res.Pages[i].Skipped || len(res.Pages[i].Nodes) != 1 {
			t.Errorf("page %d = %+v", i+1, res.Pages[i])
		}
	}
	var found bool
	for _, d := range res.Diagnostics {
		var re *diag.RenderError
		if d.Severity == diag.PageFailed && errors.As(d.Err, &re) && re.Page == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("no RenderError for page 2 in %v", res.Diagnostics)
	}

	var out bytes.Buffer
	if err := res.WriteHTML(&out); err != nil {
		t.Fatal(err)
	}
	sum, err := htmldoc.Parse(&out)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Pages) != 3 || !sum.Pages[1].Skipped || sum.Pages[2].Text() != "c" {
		t.Errorf("summary = %+v", sum.Pages)
	}
}

func TestAllPagesFailed(t *testing.T) {
	b := pdftest.New()
	b.Pages(pdftest.Page{Content: ""}, pdftest.Page{Content: ""})
	cfg := testConfig()
	cfg.Renderer = failPage{next: render.Outline{}}
	res, err := New(cfg).RunBytes(context.Background(), b.Bytes())
	if !errors.Is(err, diag.ErrAllPagesFailed) {
		t.Errorf("err = %v, want ErrAllPagesFailed", err)
	}
	if res == nil || len(res.Pages) != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestMissingOutlineReclassifies(t *testing.T) {
	ft := fonttest.New("Holey", "xy")
	ft.Missing = []model.GID{ft.GID('y')}
	b := pdftest.New()
	f := trueType(b, ft)
	b.Pages(pdftest.Page{Content: "BT /F1 12 Tf 72 700 Td (xy) Tj ET", Fonts: map[string]int{"F1": f}})

	res := convert(t, testConfig(), b.Bytes())
	p := res.Pages[0]
	if len(p.Nodes) != 1 || p.Nodes[0].Text != "x" {
		t.Errorf("nodes = %+v", p.Nodes)
	}
	if p.Tally[classify.MissingOutline] != 1 {
		t.Errorf("tally = %v", p.Tally)
	}
	if !res.Fonts[ref(f)].MissingCodes['y'] {
		t.Error("code 'y' not recorded missing")
	}
	checkLayers(t, p)
}

func TestCancelPageKeepsCache(t *testing.T) {
	b := pdftest.New()
	f := trueType(b, fonttest.New("F", "ab"))
	fonts := map[string]int{"F1": f}
	b.Pages(
		pdftest.Page{Content: "BT /F1 12 Tf 72 700 Td (a) Tj ET", Fonts: fonts},
		pdftest.Page{Content: "BT /F1 12 Tf 72 700 Td (b) Tj ET", Fonts: fonts},
	)
	var seen []int
	cfg := testConfig()
	cfg.Workers = 1
	cfg.OnPage = func(p *PageResult) { seen = append(seen, p.Number) }
	p := New(cfg)
	p.CancelPage(1)

	res, err := p.RunBytes(context.Background(), b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Pages[0].Skipped || !hasDiag(res, diag.KindCancelled, 1) {
		t.Errorf("page 1 = %+v", res.Pages[0])
	}
	if res.Pages[1].Skipped || len(res.Pages[1].Nodes) != 1 {
		t.Errorf("page 2 = %+v", res.Pages[1])
	}
	fr, ok := p.Cache().Lookup(ref(f))
	if !ok || fr.Face == nil || fr.Unavailable {
		t.Errorf("cached font = %+v, %v", fr, ok)
	}
	if len(seen) != 2 {
		t.Errorf("OnPage saw %v", seen)
	}
}

func TestWorkersFor(t *testing.T) {
	tests := []struct {
		workers int
		budget  int64
		raster  int64
		want    int
	}{
		{8, 0, 100, 8},
		{8, 1000, 100, 8},
		{8, 300, 100, 3},
		{8, 50, 100, 1},
	}
	for _, tt := range tests {
		c := Config{Workers: tt.workers, MemoryBudget: tt.budget}
		if got := c.workersFor(tt.raster); got != tt.want {
			t.Errorf("workersFor(%d) with budget %d = %d, want %d", tt.raster, tt.budget, got, tt.want)
		}
	}
}

func TestFamilyName(t *testing.T) {
	if got := familyName(model.FontRef{Number: 7}); got != "pdf-f7-0" {
		t.Errorf("familyName = %q", got)
	}
	if got := familyName(model.FontRef{Name: "T1 x"}); got != "pdf-inline-T1-x" {
		t.Errorf("familyName = %q", got)
	}
}
