package layout

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tsawler/pdfhtml/model"
	"github.com/tsawler/pdfhtml/text"
)

// FontInfo is what the composer knows about a web font.
type FontInfo struct {
	// Family is the @font-face family name.
	Family string
	// Advance measures s in em with the web font. Nil, or ok false, means
	// the metrics are unknown and no letter-spacing is applied.
	Advance func(s string) (em float64, ok bool)
}

// RunConfig holds the thresholds for splitting glyphs into runs.
type RunConfig struct {
	// BaselineTolerance is how far, in pixels, a glyph's baseline may drift
	// from the run's before it starts a new run (default: 0.5)
	BaselineTolerance float64

	// GapEm is the horizontal gap beyond the expected advance, in em, that
	// ends a run (default: 0.3)
	GapEm float64

	// MinLetterSpacing is the smallest adjustment in pixels worth writing
	// (default: 0.01)
	MinLetterSpacing float64
}

// DefaultRunConfig returns the default thresholds.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		BaselineTolerance: 0.5,
		GapEm:             0.3,
		MinLetterSpacing:  0.01,
	}
}

// Node is one positioned text element. Positions and sizes are pixels.
type Node struct {
	Font   model.FontRef
	Family string
	Text   string

	Left     float64
	Top      float64
	Baseline float64
	Size     float64
	// Width runs from the first glyph's origin to the end of the last
	// glyph's advance.
	Width         float64
	LetterSpacing float64
	Color         model.Color
	Dir           text.Direction

	// Seqs are the content-stream positions of the glyphs in the node.
	Seqs []int
}

type pixelGlyph struct {
	g      *model.Glyph
	origin model.Point
	top    float64
	size   float64
	adv    float64
	// echoes are glyphs drawn again at the same spot, folded into this one.
	echoes []int
}

// Compose groups a page's extractable glyphs into runs in content-stream
// order. Glyphs that are not extractable are ignored.
func Compose(glyphs []model.Glyph, l PageLayout, fonts map[model.FontRef]FontInfo, cfg RunConfig) []Node {
	var pg []pixelGlyph
	for i := range glyphs {
		g := &glyphs[i]
		if !g.Extractable || g.Text == "" {
			continue
		}
		pg = append(pg, pixelGlyph{
			g:      g,
			origin: l.Point(g.Origin()),
			top:    l.Box(g.BBox).Y,
			size:   g.FontSize * l.Zoom,
			adv:    g.Advance * l.Zoom,
		})
	}
	sort.SliceStable(pg, func(i, j int) bool { return pg[i].g.Seq < pg[j].g.Seq })

	var nodes []Node
	var run []pixelGlyph
	flush := func(space bool) {
		if len(run) > 0 {
			nodes = append(nodes, buildNode(run, fonts, cfg, space))
			run = nil
		}
	}
	for _, p := range pg {
		if len(run) > 0 {
			last := &run[len(run)-1]
			if isLigatureEcho(*last, p) {
				last.echoes = append(last.echoes, p.g.Seq)
				continue
			}
			if brk, gap := breaks(run[0], *last, p, cfg); brk {
				flush(gap && !endsWithSpace(*last) && !strings.HasPrefix(p.g.Text, " "))
			}
		}
		run = append(run, p)
	}
	flush(false)
	return nodes
}

func isLigatureEcho(a, b pixelGlyph) bool {
	return a.g.Text == b.g.Text && a.g.Font == b.g.Font &&
		math.Abs(a.origin.X-b.origin.X) < 0.01 && math.Abs(a.origin.Y-b.origin.Y) < 0.01
}

func endsWithSpace(p pixelGlyph) bool {
	return strings.HasSuffix(p.g.Text, " ")
}

// breaks reports whether p starts a new run after last, and whether the
// break is a horizontal gap on the same baseline.
func breaks(first, last, p pixelGlyph, cfg RunConfig) (brk, gap bool) {
	switch {
	case p.g.Font != first.g.Font,
		math.Abs(p.size-first.size) > 0.01,
		p.g.Fill != first.g.Fill,
		math.Abs(p.origin.Y-first.origin.Y) > cfg.BaselineTolerance:
		return true, false
	}
	expected := last.origin.X + last.adv
	d := p.origin.X - expected
	if d > cfg.GapEm*p.size {
		return true, true
	}
	if d < -cfg.GapEm*p.size && !rtlPair(last, p) {
		return true, false
	}
	return false, false
}

// rtlPair reports whether b follows a to its left, as right-to-left text
// shown in logical order does.
func rtlPair(a, b pixelGlyph) bool {
	return text.DetectDirection(a.g.Text) == text.RTL && text.DetectDirection(b.g.Text) == text.RTL &&
		math.Abs(b.origin.X+b.adv-a.origin.X) <= 0.3*b.size
}

func buildNode(run []pixelGlyph, fonts map[model.FontRef]FontInfo, cfg RunConfig, trailingSpace bool) Node {
	first := run[0]
	info := fonts[first.g.Font]
	n := Node{
		Font:     first.g.Font,
		Family:   info.Family,
		Baseline: first.origin.Y,
		Size:     first.size,
		Color:    first.g.Fill,
		Top:      first.top,
	}

	left, right := first.origin.X, first.origin.X+first.adv
	var sb strings.Builder
	for _, p := range run {
		sb.WriteString(p.g.Text)
		n.Seqs = append(n.Seqs, p.g.Seq)
		n.Seqs = append(n.Seqs, p.echoes...)
		n.Top = math.Min(n.Top, p.top)
		left = math.Min(left, p.origin.X)
		right = math.Max(right, p.origin.X+p.adv)
	}
	sort.Ints(n.Seqs)
	n.Text = sb.String()
	n.Dir = text.DetectDirection(n.Text)
	n.Left = left
	n.Width = right - left

	if info.Advance != nil {
		if em, ok := info.Advance(n.Text); ok {
			if count := utf8.RuneCountInString(n.Text); count > 0 {
				ls := (n.Width - em*n.Size) / float64(count)
				if math.Abs(ls) >= cfg.MinLetterSpacing {
					n.LetterSpacing = math.Round(ls*1000) / 1000
				}
			}
		}
	}
	if trailingSpace {
		n.Text += " "
	}
	return n
}
