package classify

import (
	"math"
	"sort"

	"github.com/tsawler/pdfhtml/model"
	"github.com/tsawler/pdfhtml/tounicode"
)

// Reason explains a classification decision.
type Reason int

const (
	Extractable Reason = iota
	Unresolved
	FontUnavailable
	ClipOnly
	Invisible
	Rotated
	Skewed
	Degenerate
	MissingOutline
	ComplexBackground
)

var reasonNames = [...]string{
	Extractable:       "extractable",
	Unresolved:        "unresolved text",
	FontUnavailable:   "font unavailable",
	ClipOnly:          "clip-only render mode",
	Invisible:         "invisible render mode",
	Rotated:           "rotation beyond tolerance",
	Skewed:            "skew beyond tolerance",
	Degenerate:        "degenerate glyph box",
	MissingOutline:    "outline missing from subset",
	ComplexBackground: "large glyph over busy background",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Policy holds the extractability thresholds.
type Policy struct {
	// MaxRotation is the largest rotation, in degrees from upright, a glyph
	// may have and still be placed as HTML text.
	MaxRotation float64
	// MaxSkew is the largest shear, in degrees.
	MaxSkew float64
	// AllowInvisible lets render mode 3 text into the text layer.
	AllowInvisible bool
}

// DefaultPolicy returns the thresholds used when none are configured.
func DefaultPolicy() Policy {
	return Policy{MaxRotation: 0.5, MaxSkew: 0.5}
}

// Font is what the classifier knows about a glyph's font.
type Font struct {
	Table *tounicode.Table
	// Unavailable is set when the program failed extraction or subsetting.
	Unavailable bool
}

// Classify decides whether g goes to the text layer. It sets g.Tier, g.Text
// and g.Extractable and returns the reason. view maps page space to device
// space; rotation and skew are measured after it.
func Classify(g *model.Glyph, f Font, p Policy, view model.Matrix) Reason {
	e, _ := f.Table.Lookup(g.Code)
	g.Tier = e.Tier
	g.Text = ""
	if e.Tier != model.TierUnresolved {
		g.Text = e.Text
	}

	r := decide(g, f, p, view)
	g.Extractable = r == Extractable
	return r
}

func decide(g *model.Glyph, f Font, p Policy, view model.Matrix) Reason {
	switch {
	case f.Unavailable:
		return FontUnavailable
	case g.Tier == model.TierUnresolved:
		return Unresolved
	case g.Mode == model.RenderClip:
		return ClipOnly
	case g.Mode == model.RenderInvisible && !p.AllowInvisible:
		return Invisible
	case g.BBox.IsEmpty():
		return Degenerate
	}
	m := g.Transform.Multiply(view)
	if math.Abs(m.Rotation()) > p.MaxRotation {
		return Rotated
	}
	if m.Skew() > p.MaxSkew {
		return Skewed
	}
	return Extractable
}

// Demote moves an extractable glyph to the background.
func Demote(g *model.Glyph) {
	g.Extractable = false
}

// Tally counts classification reasons.
type Tally map[Reason]int

// Add records r.
func (t Tally) Add(r Reason) { t[r]++ }

// Demoted returns the number of non-extractable decisions.
func (t Tally) Demoted() int {
	n := 0
	for r, c := range t {
		if r != Extractable {
			n += c
		}
	}
	return n
}

// Reasons returns the recorded reasons in order.
func (t Tally) Reasons() []Reason {
	out := make([]Reason, 0, len(t))
	for r := range t {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
