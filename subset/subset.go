package subset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/fontfile"
	"github.com/tsawler/pdfhtml/model"
)

// sfnt version tags.
const (
	versionTrueType = 0x00010000
	versionOTTO     = 0x4F54544F
)

// Tables copied verbatim from a TrueType program.
var verbatim = []string{"OS/2", "cvt ", "fpgm", "prep", "gasp"}

// Char maps a code point to the glyph the text layer uses for it.
type Char struct {
	Rune rune
	GID  model.GID
}

// Request describes one subset.
type Request struct {
	Font model.FontRef
	// GIDs are the glyphs the text layer references.
	GIDs []model.GID
	// Chars fill the new cmap. When several glyphs share a code point the
	// lowest kept GID wins.
	Chars []Char
	// Family is written to the name table.
	Family string
}

// Result is a subset program. GIDs are those of the original program.
type Result struct {
	Program []byte
	Kept    []model.GID
	Missing []model.GID
	Cmap    map[rune]model.GID
}

// Has reports whether gid survived the subset.
func (r *Result) Has(gid model.GID) bool {
	i := sort.Search(len(r.Kept), func(i int) bool { return r.Kept[i] >= gid })
	return i < len(r.Kept) && r.Kept[i] == gid
}

// Subset builds a program holding only the requested glyphs with their GIDs
// unchanged.
//
// An empty request fails with diag.ErrEmptySubset. Referenced glyphs without
// outline data are dropped; the result is still returned, together with a
// *diag.FontSubsetError listing them.
func Subset(f *fontfile.Font, req Request) (*Result, error) {
	if len(req.GIDs) == 0 {
		return nil, &diag.FontSubsetError{Font: req.Font, Err: diag.ErrEmptySubset}
	}
	var (
		res *Result
		err error
	)
	switch {
	case f.Container == fontfile.OpenTypeCFF && f.CFF != nil:
		res, err = subsetCFF(f, req)
	case f.Glyphs != nil:
		res, err = subsetGlyf(f, req)
	default:
		err = fmt.Errorf("%v program: %w", f.Container, fontfile.ErrUnsupported)
	}
	if err != nil {
		return nil, &diag.FontSubsetError{Font: req.Font, Err: err}
	}
	if len(res.Missing) > 0 {
		return res, &diag.FontSubsetError{Font: req.Font, Missing: res.Missing, Err: diag.ErrMissingOutline}
	}
	return res, nil
}

// closure returns the kept glyphs in ascending order and the referenced
// glyphs that had to be dropped. A composite whose component is missing is
// dropped with it.
func closure(f *fontfile.Font, gids []model.GID) (kept, missing []model.GID) {
	keep := map[model.GID]bool{0: f.HasGlyph(0)}
	bad := map[model.GID]bool{}

	var visit func(gid model.GID, depth int) bool
	visit = func(gid model.GID, depth int) bool {
		if depth > 16 || !f.HasGlyph(gid) {
			return false
		}
		if keep[gid] {
			return true
		}
		g, _ := f.Glyph(gid)
		for _, c := range g.Components {
			if !visit(c, depth+1) {
				return false
			}
		}
		keep[gid] = true
		return true
	}

	for _, gid := range gids {
		if !visit(gid, 0) && !bad[gid] {
			bad[gid] = true
			missing = append(missing, gid)
		}
	}
	for gid, ok := range keep {
		if ok {
			kept = append(kept, gid)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return kept, missing
}

func buildCmap(req Request, keep func(model.GID) bool) map[rune]model.GID {
	m := make(map[rune]model.GID)
	for _, c := range req.Chars {
		if !keep(c.GID) {
			continue
		}
		if prev, ok := m[c.Rune]; !ok || c.GID < prev {
			m[c.Rune] = c.GID
		}
	}
	return m
}

func subsetGlyf(f *fontfile.Font, req Request) (*Result, error) {
	head, ok := f.Table("head")
	if !ok || len(head) < 54 {
		return nil, fmt.Errorf("head: %w", fontfile.ErrTruncated)
	}
	maxp, _ := f.Table("maxp")
	glyf, _ := f.Table("glyf")

	kept, missing := closure(f, req.GIDs)
	res := &Result{Kept: kept, Missing: missing}
	isKept := res.Has

	var newGlyf []byte
	offsets := make([]uint32, 0, f.NumGlyphs+1)
	metrics := make([]fontfile.HMetric, f.NumGlyphs)
	var advMax uint16
	for gid := 0; gid < f.NumGlyphs; gid++ {
		offsets = append(offsets, uint32(len(newGlyf)))
		if !isKept(model.GID(gid)) {
			continue
		}
		g, _ := f.Glyph(model.GID(gid))
		newGlyf = append(newGlyf, glyf[g.Offset:g.Offset+g.Length]...)
		for len(newGlyf)%4 != 0 {
			newGlyf = append(newGlyf, 0)
		}
		if gid < len(f.Metrics) {
			metrics[gid] = f.Metrics[gid]
			advMax = max(advMax, metrics[gid].Advance)
		}
	}
	offsets = append(offsets, uint32(len(newGlyf)))

	res.Cmap = buildCmap(req, isKept)
	hhea, _ := f.Table("hhea")
	post, _ := f.Table("post")
	tables := map[string][]byte{
		"head": fontfile.SetLongLoca(head[:54]),
		"maxp": maxp,
		"glyf": newGlyf,
		"loca": fontfile.BuildLoca(offsets),
		"hmtx": fontfile.BuildHmtx(metrics),
		"hhea": fontfile.BuildHhea(hhea, fontfile.Hhea{
			Ascent: f.Ascent, Descent: f.Descent, LineGap: f.LineGap,
			AdvanceMax: advMax, NumHMetrics: uint16(f.NumGlyphs),
		}),
		"post": fontfile.BuildPost3(post),
		"name": fontfile.BuildName(req.Family, PostScriptName(req.Family)),
		"cmap": fontfile.BuildCmap(res.Cmap),
	}
	for _, tag := range verbatim {
		if data, ok := f.Table(tag); ok {
			tables[tag] = data
		}
	}
	res.Program = fontfile.Assemble(versionTrueType, tables)
	return res, nil
}

// subsetCFF keeps the charstrings whole and rebuilds cmap, name and post.
func subsetCFF(f *fontfile.Font, req Request) (*Result, error) {
	res := &Result{}
	seen := map[model.GID]bool{}
	for _, gid := range append([]model.GID{0}, req.GIDs...) {
		if seen[gid] {
			continue
		}
		seen[gid] = true
		if f.HasGlyph(gid) {
			res.Kept = append(res.Kept, gid)
		} else if gid != 0 {
			res.Missing = append(res.Missing, gid)
		}
	}
	sort.Slice(res.Kept, func(i, j int) bool { return res.Kept[i] < res.Kept[j] })
	sort.Slice(res.Missing, func(i, j int) bool { return res.Missing[i] < res.Missing[j] })

	res.Cmap = buildCmap(req, res.Has)
	tables := make(map[string][]byte, len(f.Tables))
	for _, tag := range f.Tags() {
		data, _ := f.Table(tag)
		tables[tag] = data
	}
	post, _ := f.Table("post")
	tables["post"] = fontfile.BuildPost3(post)
	tables["name"] = fontfile.BuildName(req.Family, PostScriptName(req.Family))
	tables["cmap"] = fontfile.BuildCmap(res.Cmap)
	delete(tables, "DSIG")
	res.Program = fontfile.Assemble(versionOTTO, tables)
	return res, nil
}

// PostScriptName derives a name-table PostScript name from a family: ASCII
// letters, digits and hyphens, at most 63 bytes.
func PostScriptName(family string) string {
	var sb strings.Builder
	for _, r := range family {
		if r < 128 && (r == '-' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			sb.WriteRune(r)
		}
		if sb.Len() == 63 {
			break
		}
	}
	if sb.Len() == 0 {
		return "Subset"
	}
	return sb.String()
}
