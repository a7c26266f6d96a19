package layout

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tsawler/pdfhtml/model"
	"github.com/tsawler/pdfhtml/text"
)

func TestPageLayout(t *testing.T) {
	tests := []struct {
		name   string
		crop   model.BBox
		rotate int
		dpi    float64
		in     model.Point
		want   model.Point
		w, h   int
	}{
		{"letter at 144", model.NewBBox(0, 0, 612, 792), 0, 144, model.Point{X: 0, Y: 792}, model.Point{X: 0, Y: 0}, 1224, 1584},
		{"bottom right", model.NewBBox(0, 0, 612, 792), 0, 144, model.Point{X: 612, Y: 0}, model.Point{X: 1224, Y: 1584}, 1224, 1584},
		{"crop origin", model.NewBBox(10, 20, 100, 100), 0, 72, model.Point{X: 10, Y: 120}, model.Point{X: 0, Y: 0}, 100, 100},
		{"rotate 90", model.NewBBox(0, 0, 200, 100), 90, 72, model.Point{X: 0, Y: 100}, model.Point{X: 100, Y: 0}, 100, 200},
		{"rotate 180", model.NewBBox(0, 0, 200, 100), 180, 72, model.Point{X: 0, Y: 100}, model.Point{X: 200, Y: 100}, 200, 100},
		{"rotate 270", model.NewBBox(0, 0, 200, 100), 270, 72, model.Point{X: 0, Y: 100}, model.Point{X: 0, Y: 200}, 100, 200},
		{"negative rotate", model.NewBBox(0, 0, 200, 100), -90, 72, model.Point{X: 0, Y: 100}, model.Point{X: 0, Y: 200}, 100, 200},
		{"fractional size", model.NewBBox(0, 0, 100.2, 50), 0, 72, model.Point{X: 0, Y: 0}, model.Point{X: 0, Y: 50}, 101, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewPageLayout(tt.crop, tt.rotate, tt.dpi)
			if diff := cmp.Diff(tt.want, l.Point(tt.in)); diff != "" {
				t.Errorf("Point mismatch (-want +got):\n%s", diff)
			}
			if l.Width != tt.w || l.Height != tt.h {
				t.Errorf("size %dx%d, want %dx%d", l.Width, l.Height, tt.w, tt.h)
			}
		})
	}
}

func TestPageLayoutRect(t *testing.T) {
	l := NewPageLayout(model.NewBBox(0, 0, 100, 100), 0, 72)
	got := l.Rect(model.NewBBox(10.5, 20, 5, 10), 2)
	if want := image.Rect(8, 68, 18, 82); got != want {
		t.Errorf("Rect = %v, want %v", got, want)
	}
	if got := l.Rect(model.NewBBox(-10, -10, 15, 15), 2); got != image.Rect(0, 93, 7, 100) {
		t.Errorf("clipped Rect = %v", got)
	}
}

func TestPageLayoutDefaultDPI(t *testing.T) {
	l := NewPageLayout(model.NewBBox(0, 0, 72, 72), 0, 0)
	if l.DPI != DefaultDPI || l.Width != DefaultDPI {
		t.Errorf("DPI %v width %d", l.DPI, l.Width)
	}
}

var testFont = model.FontRef{Number: 1}

// glyph is a 10pt glyph at (x, y) with a 5pt advance.
func glyph(seq int, x, y float64, s string) model.Glyph {
	return model.Glyph{
		Seq:         seq,
		Font:        testFont,
		Text:        s,
		Transform:   model.Matrix{10, 0, 0, 10, x, y},
		BBox:        model.NewBBox(x, y-2, 5, 10),
		Advance:     5,
		FontSize:    10,
		Extractable: true,
		Tier:        model.TierHigh,
	}
}

func TestCompose(t *testing.T) {
	l := NewPageLayout(model.NewBBox(0, 0, 100, 100), 0, 72)
	fonts := map[model.FontRef]FontInfo{testFont: {Family: "pdf-f1"}}
	node := func(text string, left, width float64, seqs ...int) Node {
		return Node{
			Font: testFont, Family: "pdf-f1", Text: text,
			Left: left, Top: 42, Baseline: 50, Size: 10, Width: width,
			Seqs: seqs,
		}
	}

	other := glyph(2, 10, 50, "x")
	other.Font = model.FontRef{Number: 2}
	otherNode := Node{Font: other.Font, Text: "x", Left: 10, Top: 42, Baseline: 50, Size: 10, Width: 5, Seqs: []int{2}}

	red := glyph(2, 10, 50, "x")
	red.Fill = model.Color{R: 255}
	hidden := glyph(1, 5, 50, "i")
	hidden.Extractable = false

	tests := []struct {
		name   string
		glyphs []model.Glyph
		want   []Node
	}{
		{
			name:   "one run",
			glyphs: []model.Glyph{glyph(0, 0, 50, "H"), glyph(1, 5, 50, "i")},
			want:   []Node{node("Hi", 0, 10, 0, 1)},
		},
		{
			name:   "content order not spatial order",
			glyphs: []model.Glyph{glyph(1, 5, 50, "i"), glyph(0, 0, 50, "H")},
			want:   []Node{node("Hi", 0, 10, 0, 1)},
		},
		{
			name:   "gap inserts a space",
			glyphs: []model.Glyph{glyph(0, 0, 50, "H"), glyph(1, 5, 50, "i"), glyph(2, 20, 50, "x")},
			want:   []Node{node("Hi ", 0, 10, 0, 1), node("x", 20, 5, 2)},
		},
		{
			name:   "small gap stays in the run",
			glyphs: []model.Glyph{glyph(0, 0, 50, "H"), glyph(1, 7, 50, "i")},
			want:   []Node{node("Hi", 0, 12, 0, 1)},
		},
		{
			name:   "space glyph present",
			glyphs: []model.Glyph{glyph(0, 0, 50, "H"), glyph(1, 5, 50, " "), glyph(2, 30, 50, "x")},
			want:   []Node{node("H ", 0, 10, 0, 1), node("x", 30, 5, 2)},
		},
		{
			name:   "font change",
			glyphs: []model.Glyph{glyph(0, 0, 50, "H"), glyph(1, 5, 50, "i"), other},
			want:   []Node{node("Hi", 0, 10, 0, 1), otherNode},
		},
		{
			name:   "colour change",
			glyphs: []model.Glyph{glyph(0, 0, 50, "H"), glyph(1, 5, 50, "i"), red},
			want: []Node{node("Hi", 0, 10, 0, 1), {
				Font: testFont, Family: "pdf-f1", Text: "x", Left: 10, Top: 42, Baseline: 50,
				Size: 10, Width: 5, Color: model.Color{R: 255}, Seqs: []int{2},
			}},
		},
		{
			name:   "baseline drift within tolerance",
			glyphs: []model.Glyph{glyph(0, 0, 50, "H"), glyph(1, 5, 50.25, "i")},
			want:   []Node{{Font: testFont, Family: "pdf-f1", Text: "Hi", Left: 0, Top: 41.75, Baseline: 50, Size: 10, Width: 10, Seqs: []int{0, 1}}},
		},
		{
			name:   "new baseline",
			glyphs: []model.Glyph{glyph(0, 0, 60, "H"), glyph(1, 0, 50, "i")},
			want: []Node{
				{Font: testFont, Family: "pdf-f1", Text: "H", Left: 0, Top: 32, Baseline: 40, Size: 10, Width: 5, Seqs: []int{0}},
				node("i", 0, 5, 1),
			},
		},
		{
			name:   "ligature echo",
			glyphs: []model.Glyph{glyph(0, 0, 50, "fi"), glyph(1, 0, 50, "fi")},
			want:   []Node{node("fi", 0, 5, 0, 1)},
		},
		{
			name:   "background glyphs skipped",
			glyphs: []model.Glyph{glyph(0, 0, 50, "H"), hidden},
			want:   []Node{node("H", 0, 5, 0)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.glyphs, l, fonts, DefaultRunConfig())
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Compose mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComposeLetterSpacing(t *testing.T) {
	l := NewPageLayout(model.NewBBox(0, 0, 100, 100), 0, 72)
	fonts := map[model.FontRef]FontInfo{testFont: {
		Family:  "pdf-f1",
		Advance: func(s string) (float64, bool) { return 0.4 * float64(len(s)), true },
	}}
	got := Compose([]model.Glyph{glyph(0, 0, 50, "H"), glyph(1, 5, 50, "i")}, l, fonts, DefaultRunConfig())
	if len(got) != 1 || got[0].LetterSpacing != 1 {
		t.Fatalf("nodes = %+v, want letter-spacing 1", got)
	}
}

func TestComposeZoomAndDirection(t *testing.T) {
	l := NewPageLayout(model.NewBBox(0, 0, 100, 100), 0, 144)
	got := Compose([]model.Glyph{glyph(0, 10, 50, "\u05e9")}, l, nil, DefaultRunConfig())
	want := []Node{{
		Font: testFont, Text: "\u05e9", Left: 20, Top: 84, Baseline: 100, Size: 20, Width: 10,
		Dir: text.RTL, Seqs: []int{0},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compose mismatch (-want +got):\n%s", diff)
	}
}
