package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/font"
	"github.com/tsawler/pdfhtml/fontfile"
	"github.com/tsawler/pdfhtml/layout"
	"github.com/tsawler/pdfhtml/model"
	"github.com/tsawler/pdfhtml/subset"
	"github.com/tsawler/pdfhtml/tounicode"
	"github.com/tsawler/pdfhtml/webfont"
)

// FontResult is the processed form of one font. It is shared read-only by
// every page.
type FontResult struct {
	Ref model.FontRef
	// Family is the @font-face family. Empty means the browser substitutes
	// a system font.
	Family string
	Face   *webfont.Face
	// Unavailable fonts put all their glyphs in the background.
	Unavailable bool
	// MissingCodes are character codes whose glyph did not survive the
	// subset. Those glyph instances go to the background.
	MissingCodes map[uint32]bool
	// Subset is nil when no subset was built.
	Subset *subset.Result
	// Errs are the degradations met on the way, in order.
	Errs []error

	program *fontfile.Font
}

// Info is what the layout composer needs from r.
func (r *FontResult) Info() layout.FontInfo {
	info := layout.FontInfo{Family: r.Family}
	if r.Face == nil || r.Subset == nil || r.program == nil || r.program.UnitsPerEm == 0 {
		return info
	}
	cmap, prog := r.Subset.Cmap, r.program
	upem := float64(prog.UnitsPerEm)
	info.Advance = func(s string) (float64, bool) {
		var sum float64
		for _, ch := range s {
			gid, ok := cmap[ch]
			if !ok {
				return 0, false
			}
			sum += float64(prog.Advance(gid))
		}
		return sum / upem, true
	}
	return info
}

// use is one character code of a font shown as text somewhere in the
// document.
type use struct {
	gid  model.GID
	text string
}

// fontEntry is the document's view of one font: the descriptor, the
// resolved unicode table and, after the barrier, the codes the text layer
// uses.
type fontEntry struct {
	ref  model.FontRef
	desc *font.Descriptor

	once  sync.Once
	table *tounicode.Table

	uses       map[uint32]use
	unresolved int
}

func (e *fontEntry) resolve() *tounicode.Table {
	e.once.Do(func() {
		if e.desc != nil {
			e.table = tounicode.Resolve(e.desc)
		}
	})
	return e.table
}

// unavailable reports whether the program failed extraction.
func (e *fontEntry) unavailable() bool {
	return e.desc == nil || e.desc.ProgramErr != nil
}

type fontSet struct {
	mu sync.Mutex
	m  map[model.FontRef]*fontEntry
}

func newFontSet() *fontSet {
	return &fontSet{m: make(map[model.FontRef]*fontEntry)}
}

// entry returns the entry for ref with its table resolved. The first
// descriptor seen for ref is kept.
func (s *fontSet) entry(ref model.FontRef, desc *font.Descriptor) *fontEntry {
	s.mu.Lock()
	e, ok := s.m[ref]
	if !ok {
		e = &fontEntry{ref: ref, desc: desc, uses: make(map[uint32]use)}
		s.m[ref] = e
	}
	s.mu.Unlock()
	e.resolve()
	return e
}

// sorted returns the entries in reference order.
func (s *fontSet) sorted() []*fontEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*fontEntry, 0, len(s.m))
	for _, e := range s.m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ref.Less(out[j].ref) })
	return out
}

// familyName is the CSS family and name-table family for a font.
func familyName(ref model.FontRef) string {
	if ref.Name != "" && ref.Number == 0 {
		return "pdf-inline-" + strings.Map(func(r rune) rune {
			if r < 0x80 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return r
			}
			return '-'
		}, ref.Name)
	}
	return fmt.Sprintf("pdf-f%d-%d", ref.Number, ref.Generation)
}

// processFont subsets and converts one font. It never fails: every problem
// is recorded in the result, which says how the font's glyphs degrade.
func (p *Pipeline) processFont(ctx context.Context, e *fontEntry) *FontResult {
	r := &FontResult{Ref: e.ref, Family: familyName(e.ref)}
	log := p.cfg.Logger.With("font", e.ref.String())
	d := e.desc

	switch {
	case e.unavailable():
		r.Unavailable = true
		if d != nil {
			r.Errs = append(r.Errs, d.ProgramErr)
		}
		log.Debug("font unavailable, glyphs stay in the background")
		return r
	case !d.Embedded():
		r.Family = ""
		log.Debug("font not embedded, using browser substitution", "base", d.BaseFont)
		return r
	case len(e.uses) == 0:
		r.Family = ""
		return r
	}

	prog := d.Font
	byName := false
	if webfont.NeedsTool(fontfile.Sniff(d.Program)) {
		data, err := p.conv.Prepare(ctx, e.ref, d.Program)
		if err != nil {
			r.Family = ""
			r.Errs = append(r.Errs, err)
			log.Warn("font needs an external converter, using browser substitution", "error", err)
			return r
		}
		f, err := fontfile.Parse(data)
		if err != nil {
			r.Family = ""
			r.Errs = append(r.Errs, &diag.FontConversionError{Font: e.ref, Format: "truetype", Err: err})
			return r
		}
		prog, byName = f, true
	}
	if prog == nil {
		r.Unavailable = true
		r.Errs = append(r.Errs, &diag.FontExtractionError{Font: e.ref, Err: fontfile.ErrUnsupported})
		return r
	}
	r.program = prog

	req, gidOf := p.request(e, prog, byName, r.Family)
	r.MissingCodes = make(map[uint32]bool)
	for code := range e.uses {
		if _, ok := gidOf[code]; !ok {
			r.MissingCodes[code] = true
		}
	}
	if len(req.GIDs) == 0 {
		r.Unavailable = true
		r.Errs = append(r.Errs, &diag.FontSubsetError{Font: e.ref, Err: diag.ErrEmptySubset})
		return r
	}

	res, err := subset.Subset(prog, req)
	if res == nil {
		r.Unavailable = true
		r.Errs = append(r.Errs, err)
		log.Warn("subset failed, glyphs stay in the background", "error", err)
		return r
	}
	if err != nil {
		r.Errs = append(r.Errs, err)
		for code, gid := range gidOf {
			if !res.Has(gid) {
				r.MissingCodes[code] = true
			}
		}
		log.Warn("subset dropped glyphs without outlines", "missing", len(res.Missing))
	}
	r.Subset = res

	face, err := p.conv.Convert(e.ref, r.Family, res.Program)
	if err != nil {
		r.Errs = append(r.Errs, err)
	}
	if face == nil {
		r.Family = ""
		return r
	}
	r.Face = face
	log.Debug("font ready", "format", string(face.Format), "glyphs", len(res.Kept), "bytes", len(face.Data))
	return r
}

// request builds the subset request for the codes e uses. gidOf maps each
// code that has a glyph in prog to it.
func (p *Pipeline) request(e *fontEntry, prog *fontfile.Font, byName bool, family string) (subset.Request, map[uint32]model.GID) {
	req := subset.Request{Font: e.ref, Family: family}
	gidOf := make(map[uint32]model.GID)
	seen := make(map[model.GID]bool)

	codes := make([]uint32, 0, len(e.uses))
	for code := range e.uses {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	addGID := func(gid model.GID) {
		if !seen[gid] {
			seen[gid] = true
			req.GIDs = append(req.GIDs, gid)
		}
	}
	for _, code := range codes {
		u := e.uses[code]
		gid := u.gid
		if byName {
			gid = 0
			if name := glyphName(e.desc, code, u.gid); name != "" {
				gid, _ = prog.GlyphByName(name)
			}
		}
		if gid == 0 || !prog.HasGlyph(gid) {
			continue
		}
		gidOf[code] = gid
		addGID(gid)

		if utf8.RuneCountInString(u.text) == 1 {
			r, _ := utf8.DecodeRuneInString(u.text)
			req.Chars = append(req.Chars, subset.Char{Rune: r, GID: gid})
			continue
		}
		// Ligatures show as their component characters; keep those glyphs
		// too when the font has them.
		if byName {
			continue
		}
		for _, r := range u.text {
			if ent, ok := e.table.ByText(string(r)); ok && prog.HasGlyph(ent.GID) {
				addGID(ent.GID)
				req.Chars = append(req.Chars, subset.Char{Rune: r, GID: ent.GID})
			}
		}
	}
	sort.Slice(req.GIDs, func(i, j int) bool { return req.GIDs[i] < req.GIDs[j] })
	return req, gidOf
}

func glyphName(d *font.Descriptor, code uint32, gid model.GID) string {
	if name := d.GlyphName(code); name != "" {
		return name
	}
	if d.Font != nil {
		return d.Font.GlyphName(gid)
	}
	return ""
}
