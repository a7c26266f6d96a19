package text

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/tsawler/pdfhtml/contentstream"
	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/font"
	"github.com/tsawler/pdfhtml/graphicsstate"
	"github.com/tsawler/pdfhtml/internal/logging"
	"github.com/tsawler/pdfhtml/model"
	"github.com/tsawler/pdfhtml/pages"
)

// DefaultMaxFormDepth bounds Form XObject nesting.
const DefaultMaxFormDepth = 12

// ErrFormDepth is recorded when Form XObjects nest deeper than the limit or
// refer to themselves.
var ErrFormDepth = errors.New("form xobject nesting too deep")

// FontSource supplies descriptors for font dictionaries. A pipeline passes
// one shared source to every page's extractor so each font is read once.
type FontSource interface {
	Descriptor(dict core.Dict, ref model.FontRef) (*font.Descriptor, error)
}

// Image is one placed image: an image XObject or an inline image.
type Image struct {
	Seq int
	// CTM maps the unit square onto the page.
	CTM    model.Matrix
	Stream *core.Stream
	Ref    core.IndirectRef // zero for inline images
	Inline bool
}

// Bounds returns the page-space extent of the image.
func (im Image) Bounds() model.BBox {
	return im.CTM.TransformBBox(model.BBox{Width: 1, Height: 1})
}

// Content is what one page's content stream shows.
type Content struct {
	Glyphs []model.Glyph
	Paths  []graphicsstate.PaintedPath
	Images []Image
	// Fonts holds every font selected by Tf, keyed by reference.
	Fonts map[model.FontRef]*font.Descriptor
	// Problems lists non-fatal failures: fonts that did not load, forms
	// that could not be read.
	Problems []error
}

// Extractor interprets content streams into glyphs, painted paths and image
// placements.
type Extractor struct {
	resolver     core.ReferenceResolver
	fonts        FontSource
	maxFormDepth int
	logger       *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFontSource shares a font source between extractors.
func WithFontSource(src FontSource) Option {
	return func(e *Extractor) { e.fonts = src }
}

// WithMaxFormDepth sets the Form XObject nesting limit.
func WithMaxFormDepth(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxFormDepth = n
		}
	}
}

// WithLogger sets the logger for operator-level warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates a new extractor resolving objects through r.
func NewExtractor(r core.ReferenceResolver, opts ...Option) *Extractor {
	e := &Extractor{resolver: r, maxFormDepth: DefaultMaxFormDepth}
	for _, opt := range opts {
		opt(e)
	}
	if e.fonts == nil {
		e.fonts = NewFontCache(r)
	}
	e.logger = logging.Or(e.logger)
	return e
}

// ExtractPage interprets the page's content streams.
func (e *Extractor) ExtractPage(page *pages.Page) (*Content, error) {
	data, err := page.Contents()
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page.Number, err)
	}
	return e.Extract(data, page.Resources)
}

// Extract interprets one content stream with the given resources.
func (e *Extractor) Extract(data []byte, resources core.Dict) (*Content, error) {
	ops, err := contentstream.NewParser(data).Parse()
	if err != nil && len(ops) == 0 {
		return nil, fmt.Errorf("parse content stream: %w", err)
	}
	gs := graphicsstate.NewGraphicsState()
	w := &walker{
		e:       e,
		gs:      gs,
		paths:   graphicsstate.NewPathExtractor(gs),
		content: &Content{Fonts: make(map[model.FontRef]*font.Descriptor)},
		active:  make(map[core.IndirectRef]bool),
	}
	if err != nil {
		w.problem(fmt.Errorf("content stream truncated: %w", err))
	}
	w.run(ops, resources, 0)
	w.content.Paths = w.paths.Paths
	return w.content, nil
}

// walker is the per-call interpreter state.
type walker struct {
	e       *Extractor
	gs      *graphicsstate.GraphicsState
	paths   *graphicsstate.PathExtractor
	content *Content
	seq     int
	// active holds the forms on the current Do chain.
	active map[core.IndirectRef]bool
}

func (w *walker) problem(err error) {
	w.content.Problems = append(w.content.Problems, err)
	w.e.logger.Debug("content stream", "error", err)
}

func (w *walker) run(ops []contentstream.Operation, resources core.Dict, depth int) {
	for _, op := range ops {
		w.seq++
		if w.paths.Apply(op) {
			continue
		}
		w.apply(op, resources, depth)
	}
}

// apply processes a single content stream operation
func (w *walker) apply(op contentstream.Operation, resources core.Dict, depth int) {
	gs := w.gs
	switch op.Operator {
	// Graphics state
	case "q":
		gs.Save()
	case "Q":
		if err := gs.Restore(); err != nil {
			w.problem(err)
		}
	case "cm":
		if m, ok := matrix(op); ok {
			gs.Transform(m)
		}
	case "w":
		gs.SetLineWidth(op.Float(0))
	case "gs":
		if name, ok := op.Name(0); ok {
			w.extGState(resources, string(name))
		}

	// Colour
	case "g", "rg", "k", "sc", "scn":
		if vals, ok := op.Floats(); ok {
			gs.SetFillColor(vals...)
		}
	case "G", "RG", "K", "SC", "SCN":
		if vals, ok := op.Floats(); ok {
			gs.SetStrokeColor(vals...)
		}
	case "cs":
		gs.SetFillColor(0)
	case "CS":
		gs.SetStrokeColor(0)

	// Text state
	case "BT":
		gs.BeginText()
	case "Tf":
		name, _ := op.Name(0)
		gs.SetFont(string(name), op.Float(1), w.selectFont(resources, string(name)))
	case "Tc":
		gs.SetCharSpacing(op.Float(0))
	case "Tw":
		gs.SetWordSpacing(op.Float(0))
	case "Tz":
		gs.SetHorizontalScaling(op.Float(0))
	case "TL":
		gs.SetLeading(op.Float(0))
	case "Tr":
		gs.SetRenderingMode(int(op.Float(0)))
	case "Ts":
		gs.SetTextRise(op.Float(0))

	// Text positioning
	case "Td":
		gs.TranslateText(op.Float(0), op.Float(1))
	case "TD":
		gs.TranslateTextSetLeading(op.Float(0), op.Float(1))
	case "Tm":
		if m, ok := matrix(op); ok {
			gs.SetTextMatrix(m)
		}
	case "T*":
		gs.NextLine()

	// Text showing
	case "Tj":
		w.show(op, 0)
	case "'":
		gs.NextLine()
		w.show(op, 0)
	case "\"":
		gs.SetWordSpacing(op.Float(0))
		gs.SetCharSpacing(op.Float(1))
		gs.NextLine()
		w.show(op, 2)
	case "TJ":
		arr, _ := operand(op, 0).(core.Array)
		for _, item := range arr {
			switch v := item.(type) {
			case core.String:
				w.showString([]byte(v))
			case core.Int, core.Real:
				adj, _ := core.Number(v)
				gs.Kern(adj)
			}
		}

	// XObjects
	case "Do":
		if name, ok := op.Name(0); ok {
			w.do(resources, string(name), depth)
		}
	case "BI":
		if s, ok := operand(op, 0).(*core.Stream); ok {
			w.content.Images = append(w.content.Images, Image{Seq: w.seq, CTM: gs.CTM, Stream: s, Inline: true})
		}
	}
}

func operand(op contentstream.Operation, i int) core.Object {
	if i < len(op.Operands) {
		return op.Operands[i]
	}
	return nil
}

func matrix(op contentstream.Operation) (model.Matrix, bool) {
	vals, ok := op.Floats()
	if !ok || len(vals) != 6 {
		return model.Matrix{}, false
	}
	return model.Matrix{vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]}, true
}

func (w *walker) show(op contentstream.Operation, i int) {
	if s, ok := operand(op, i).(core.String); ok {
		w.showString([]byte(s))
	}
}

// showString emits one glyph per code and advances the text matrix.
func (w *walker) showString(b []byte) {
	gs := w.gs
	desc, _ := gs.Text.Font.(*font.Descriptor)
	if desc == nil {
		// Nothing can be positioned without widths; the text stays in the
		// background.
		return
	}
	for _, code := range desc.Codes(b) {
		w0 := desc.Width(code.Value) / 1000
		trm := gs.TextRenderingMatrix()
		box := model.BBox{X: 0, Y: desc.Descent, Width: w0, Height: desc.Ascent - desc.Descent}
		gid, _ := desc.GID(code.Value)
		start := model.Point{X: trm[4], Y: trm[5]}

		gs.AdvanceText(gs.GlyphAdvance(w0, font.IsSpace(code)))
		end := gs.TextRenderingMatrix()

		w.content.Glyphs = append(w.content.Glyphs, model.Glyph{
			Seq:       w.seq,
			Code:      code.Value,
			CodeLen:   code.Len,
			Font:      desc.Ref,
			FontName:  gs.Text.FontName,
			GID:       gid,
			BBox:      trm.TransformBBox(box),
			Transform: trm,
			Advance:   math.Hypot(end[4]-start.X, end[5]-start.Y),
			FontSize:  gs.GetEffectiveFontSize(),
			Fill:      gs.FillColor,
			Mode:      gs.Text.RenderingMode,
		})
	}
}

// selectFont resolves a Tf name against resources. The returned handle is
// nil when the font cannot be read.
func (w *walker) selectFont(resources core.Dict, name string) any {
	fonts := resolveDict(resources.Get("Font"), w.e.resolver)
	obj := fonts.Get(name)
	if obj == nil {
		w.problem(fmt.Errorf("font %q not in resources", name))
		return nil
	}
	ref := model.FontRef{Name: name}
	if ir, ok := obj.(core.IndirectRef); ok {
		ref = model.FontRef{Number: ir.Number, Generation: ir.Generation}
	}
	dict := resolveDict(obj, w.e.resolver)
	desc, err := w.e.fonts.Descriptor(dict, ref)
	if err != nil {
		w.problem(err)
		return nil
	}
	w.content.Fonts[ref] = desc
	return desc
}

// extGState applies the line width and font entries of a graphics state
// parameter dictionary.
func (w *walker) extGState(resources core.Dict, name string) {
	dict := resolveDict(resolveDict(resources.Get("ExtGState"), w.e.resolver).Get(name), w.e.resolver)
	if dict == nil {
		return
	}
	if lw, ok := core.Number(resolve(dict.Get("LW"), w.e.resolver)); ok {
		w.gs.SetLineWidth(lw)
	}
	if arr, ok := resolve(dict.Get("Font"), w.e.resolver).(core.Array); ok && len(arr) == 2 {
		size, _ := core.Number(arr[1])
		ref, _ := arr[0].(core.IndirectRef)
		desc, err := w.e.fonts.Descriptor(resolveDict(arr[0], w.e.resolver), model.FontRef{Number: ref.Number, Generation: ref.Generation})
		if err != nil {
			w.problem(err)
			return
		}
		w.content.Fonts[desc.Ref] = desc
		w.gs.SetFont(name, size, desc)
	}
}

// do paints an XObject: forms are interpreted in place, images recorded.
func (w *walker) do(resources core.Dict, name string, depth int) {
	xobjs := resolveDict(resources.Get("XObject"), w.e.resolver)
	obj := xobjs.Get(name)
	ref, _ := obj.(core.IndirectRef)
	stream, ok := resolve(obj, w.e.resolver).(*core.Stream)
	if !ok {
		return
	}
	switch st, _ := stream.Dict.GetName("Subtype"); st {
	case "Image":
		w.content.Images = append(w.content.Images, Image{Seq: w.seq, CTM: w.gs.CTM, Stream: stream, Ref: ref})
	case "Form":
		if depth+1 > w.e.maxFormDepth || (ref != core.IndirectRef{} && w.active[ref]) {
			w.problem(fmt.Errorf("form %s: %w", name, ErrFormDepth))
			return
		}
		data, err := stream.Decode()
		if err != nil {
			w.problem(fmt.Errorf("form %s: %w", name, err))
			return
		}
		ops, err := contentstream.NewParser(data).Parse()
		if err != nil {
			w.problem(fmt.Errorf("form %s: %w", name, err))
		}

		formRes := resolveDict(stream.Dict.Get("Resources"), w.e.resolver)
		if formRes == nil {
			formRes = resources
		}
		if ref != (core.IndirectRef{}) {
			w.active[ref] = true
			defer delete(w.active, ref)
		}

		w.gs.Save()
		if arr, ok := resolve(stream.Dict.Get("Matrix"), w.e.resolver).(core.Array); ok {
			if vals, ok := arr.Numbers(); ok && len(vals) == 6 {
				w.gs.Transform(model.Matrix{vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]})
			}
		}
		w.run(ops, formRes, depth+1)
		if err := w.gs.Restore(); err != nil {
			w.problem(err)
		}
	}
}

func resolve(obj core.Object, r core.ReferenceResolver) core.Object {
	for i := 0; i < 8; i++ {
		ref, ok := obj.(core.IndirectRef)
		if !ok || r == nil {
			return obj
		}
		next, err := r.ResolveReference(ref)
		if err != nil {
			return nil
		}
		obj = next
	}
	return obj
}

func resolveDict(obj core.Object, r core.ReferenceResolver) core.Dict {
	switch v := resolve(obj, r).(type) {
	case core.Dict:
		return v
	case *core.Stream:
		return v.Dict
	}
	return nil
}

// FontCache is a FontSource that loads each font once. Safe for concurrent
// use.
type FontCache struct {
	resolver core.ReferenceResolver

	mu    sync.Mutex
	fonts map[model.FontRef]*fontResult
}

type fontResult struct {
	desc *font.Descriptor
	err  error
}

// NewFontCache returns an empty cache resolving through r.
func NewFontCache(r core.ReferenceResolver) *FontCache {
	return &FontCache{resolver: r, fonts: make(map[model.FontRef]*fontResult)}
}

// Descriptor implements FontSource.
func (c *FontCache) Descriptor(dict core.Dict, ref model.FontRef) (*font.Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if res, ok := c.fonts[ref]; ok {
		return res.desc, res.err
	}
	desc, err := font.Load(dict, ref, c.resolver)
	c.fonts[ref] = &fontResult{desc: desc, err: err}
	return desc, err
}

// Fonts returns every loaded descriptor.
func (c *FontCache) Fonts() map[model.FontRef]*font.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[model.FontRef]*font.Descriptor, len(c.fonts))
	for ref, res := range c.fonts {
		if res.desc != nil {
			out[ref] = res.desc
		}
	}
	return out
}
