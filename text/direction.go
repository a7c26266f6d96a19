package text

import "golang.org/x/text/unicode/bidi"

// Direction is the writing direction of a run of text.
type Direction int

const (
	// LTR is text whose strong characters are left-to-right.
	LTR Direction = iota
	// RTL is text dominated by right-to-left letters (Hebrew, Arabic,
	// Syriac, Thaana, N'Ko and the like).
	RTL
	// Neutral text has no strong characters: digits, punctuation, space.
	Neutral
)

func (d Direction) String() string {
	switch d {
	case LTR:
		return "LTR"
	case RTL:
		return "RTL"
	case Neutral:
		return "Neutral"
	default:
		return "Unknown"
	}
}

// Attr returns the HTML dir attribute value for d, empty unless RTL.
func (d Direction) Attr() string {
	if d == RTL {
		return "rtl"
	}
	return ""
}

// DetectDirection returns the direction with more strong characters in s,
// or Neutral when s has none. Ties go to LTR.
func DetectDirection(s string) Direction {
	ltr, rtl := 0, 0
	for _, r := range s {
		switch GetCharDirection(r) {
		case LTR:
			ltr++
		case RTL:
			rtl++
		}
	}
	switch {
	case ltr == 0 && rtl == 0:
		return Neutral
	case rtl > ltr:
		return RTL
	default:
		return LTR
	}
}

// GetCharDirection maps r's Unicode bidi class onto a Direction. Only
// strong classes (L, R, AL) count; Arabic-Indic digits are Neutral.
func GetCharDirection(r rune) Direction {
	p, _ := bidi.LookupRune(r)
	switch p.Class() {
	case bidi.L:
		return LTR
	case bidi.R, bidi.AL:
		return RTL
	default:
		return Neutral
	}
}
