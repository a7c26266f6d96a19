package graphicsstate

import (
	"fmt"
	"math"

	"github.com/tsawler/pdfhtml/model"
)

// GraphicsState represents the PDF graphics state
type GraphicsState struct {
	// Current Transformation Matrix
	CTM model.Matrix

	// Text state
	Text TextState

	// Graphics state stack (for q/Q operators)
	stack []GraphicsState

	LineWidth float64

	// Colours reduced to RGB; pattern and separation spaces fall back to
	// their component count.
	StrokeColor model.Color
	FillColor   model.Color
}

// TextState represents text-specific state
type TextState struct {
	// FontName is the resource name from Tf. Font is an opaque handle the
	// interpreter attaches so a form XObject can keep using the font selected
	// outside it.
	FontName string
	Font     any
	FontSize float64

	CharSpacing float64
	WordSpacing float64

	// HorizontalScaling is the Tz operand as a percentage.
	HorizontalScaling float64

	Leading float64

	RenderingMode model.RenderMode

	Rise float64

	// Text matrices, valid between BT and ET
	TextMatrix     model.Matrix
	TextLineMatrix model.Matrix
}

// NewGraphicsState creates a new graphics state with default values
func NewGraphicsState() *GraphicsState {
	return &GraphicsState{
		CTM:       model.Identity(),
		LineWidth: 1.0,
		Text: TextState{
			FontSize:          12.0,
			HorizontalScaling: 100.0,
			TextMatrix:        model.Identity(),
			TextLineMatrix:    model.Identity(),
		},
	}
}

// NewGraphicsStateWithCTM starts from ctm instead of the identity.
func NewGraphicsStateWithCTM(ctm model.Matrix) *GraphicsState {
	gs := NewGraphicsState()
	gs.CTM = ctm
	return gs
}

// Save pushes the current state (q operator)
func (gs *GraphicsState) Save() {
	snapshot := *gs
	snapshot.stack = nil
	gs.stack = append(gs.stack, snapshot)
}

// Restore pops the last saved state (Q operator). Text matrices are not part
// of the saved state and survive the pop.
func (gs *GraphicsState) Restore() error {
	if len(gs.stack) == 0 {
		return fmt.Errorf("graphics state stack underflow")
	}
	top := gs.stack[len(gs.stack)-1]
	stack := gs.stack[:len(gs.stack)-1]
	tm, tlm := gs.Text.TextMatrix, gs.Text.TextLineMatrix

	*gs = top
	gs.stack = stack
	gs.Text.TextMatrix, gs.Text.TextLineMatrix = tm, tlm
	return nil
}

// Depth returns the number of saved states.
func (gs *GraphicsState) Depth() int { return len(gs.stack) }

// Transform concatenates m with the CTM (cm operator)
func (gs *GraphicsState) Transform(m model.Matrix) {
	gs.CTM = m.Multiply(gs.CTM)
}

// SetLineWidth sets the line width (w operator)
func (gs *GraphicsState) SetLineWidth(width float64) {
	gs.LineWidth = width
}

// SetFillColor sets the fill colour from operand components: one for gray,
// three for RGB and four for CMYK. Other arities leave the colour unchanged.
func (gs *GraphicsState) SetFillColor(comps ...float64) {
	if c, ok := ColorFromComponents(comps); ok {
		gs.FillColor = c
	}
}

// SetStrokeColor is SetFillColor for the stroking colour.
func (gs *GraphicsState) SetStrokeColor(comps ...float64) {
	if c, ok := ColorFromComponents(comps); ok {
		gs.StrokeColor = c
	}
}

// ColorFromComponents converts gray, RGB or CMYK components in [0,1].
func ColorFromComponents(comps []float64) (model.Color, bool) {
	switch len(comps) {
	case 1:
		g := unit(comps[0])
		return model.Color{R: g, G: g, B: g}, true
	case 3:
		return model.Color{R: unit(comps[0]), G: unit(comps[1]), B: unit(comps[2])}, true
	case 4:
		k := clamp01(comps[3])
		return model.Color{
			R: unit((1 - clamp01(comps[0])) * (1 - k)),
			G: unit((1 - clamp01(comps[1])) * (1 - k)),
			B: unit((1 - clamp01(comps[2])) * (1 - k)),
		}, true
	}
	return model.Color{}, false
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func unit(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}

// SetFont sets the font resource name and size (Tf operator). handle is
// stored in Text.Font.
func (gs *GraphicsState) SetFont(name string, size float64, handle any) {
	gs.Text.FontName = name
	gs.Text.FontSize = size
	gs.Text.Font = handle
}

// SetCharSpacing sets character spacing (Tc operator)
func (gs *GraphicsState) SetCharSpacing(spacing float64) {
	gs.Text.CharSpacing = spacing
}

// SetWordSpacing sets word spacing (Tw operator)
func (gs *GraphicsState) SetWordSpacing(spacing float64) {
	gs.Text.WordSpacing = spacing
}

// SetHorizontalScaling sets horizontal scaling (Tz operator)
func (gs *GraphicsState) SetHorizontalScaling(scale float64) {
	gs.Text.HorizontalScaling = scale
}

// SetLeading sets text leading (TL operator)
func (gs *GraphicsState) SetLeading(leading float64) {
	gs.Text.Leading = leading
}

// SetRenderingMode sets the text rendering mode (Tr operator). Values
// outside 0..7 are ignored.
func (gs *GraphicsState) SetRenderingMode(mode int) {
	if mode >= int(model.RenderFill) && mode <= int(model.RenderClip) {
		gs.Text.RenderingMode = model.RenderMode(mode)
	}
}

// SetTextRise sets text rise (Ts operator)
func (gs *GraphicsState) SetTextRise(rise float64) {
	gs.Text.Rise = rise
}

// BeginText resets the text matrices (BT operator)
func (gs *GraphicsState) BeginText() {
	gs.Text.TextMatrix = model.Identity()
	gs.Text.TextLineMatrix = model.Identity()
}

// SetTextMatrix sets both text matrices (Tm operator)
func (gs *GraphicsState) SetTextMatrix(m model.Matrix) {
	gs.Text.TextMatrix = m
	gs.Text.TextLineMatrix = m
}

// TranslateText starts a new line offset from the current one (Td operator)
func (gs *GraphicsState) TranslateText(tx, ty float64) {
	gs.Text.TextLineMatrix = model.Translate(tx, ty).Multiply(gs.Text.TextLineMatrix)
	gs.Text.TextMatrix = gs.Text.TextLineMatrix
}

// TranslateTextSetLeading is TD: it sets the leading to -ty, then moves.
func (gs *GraphicsState) TranslateTextSetLeading(tx, ty float64) {
	gs.Text.Leading = -ty
	gs.TranslateText(tx, ty)
}

// NextLine moves to the start of the next line (T* operator)
func (gs *GraphicsState) NextLine() {
	gs.TranslateText(0, -gs.Text.Leading)
}

// Th returns horizontal scaling as a fraction.
func (gs *GraphicsState) Th() float64 {
	return gs.Text.HorizontalScaling / 100
}

// TextRenderingMatrix returns [fs*Th 0 0 fs 0 rise] × Tm × CTM, mapping glyph
// space scaled to one em onto page space.
func (gs *GraphicsState) TextRenderingMatrix() model.Matrix {
	fs := gs.Text.FontSize
	params := model.Matrix{fs * gs.Th(), 0, 0, fs, 0, gs.Text.Rise}
	return params.Multiply(gs.Text.TextMatrix).Multiply(gs.CTM)
}

// GlyphAdvance returns the horizontal displacement in text space for a glyph
// of width w0 (thousandths of an em). wordSpace applies Tw, which PDF only
// does for the single-byte code 32.
func (gs *GraphicsState) GlyphAdvance(w0 float64, wordSpace bool) float64 {
	tx := w0/1000*gs.Text.FontSize + gs.Text.CharSpacing
	if wordSpace {
		tx += gs.Text.WordSpacing
	}
	return tx * gs.Th()
}

// AdvanceText moves the text matrix by tx in text space.
func (gs *GraphicsState) AdvanceText(tx float64) {
	gs.Text.TextMatrix = model.Translate(tx, 0).Multiply(gs.Text.TextMatrix)
}

// Kern applies a TJ array number, which is in thousandths of an em and
// moves the pen backwards for positive values.
func (gs *GraphicsState) Kern(adj float64) {
	gs.AdvanceText(-adj / 1000 * gs.Text.FontSize * gs.Th())
}

// GetEffectiveFontSize returns the font size after the text matrix and CTM,
// measured along the glyph's vertical axis.
func (gs *GraphicsState) GetEffectiveFontSize() float64 {
	m := gs.Text.TextMatrix.Multiply(gs.CTM)
	return gs.Text.FontSize * math.Hypot(m[2], m[3])
}
