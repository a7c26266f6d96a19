package font

import (
	"fmt"

	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/fontfile"
	"github.com/tsawler/pdfhtml/model"
)

// loadProgram decodes and parses the embedded program named by fd. Failures
// are kept in ProgramErr; the descriptor stays usable for positioning.
func (d *Descriptor) loadProgram(fd core.Dict, r core.ReferenceResolver) {
	var stream *core.Stream
	for _, key := range []string{"FontFile2", "FontFile3", "FontFile"} {
		if s, ok := resolve(fd.Get(key), r).(*core.Stream); ok {
			stream = s
			switch key {
			case "FontFile":
				d.ProgramKind = Type1Program
			case "FontFile2":
				d.ProgramKind = TrueTypeProgram
			case "FontFile3":
				d.ProgramKind = CFFProgram
				if st, _ := s.Dict.GetName("Subtype"); st == "OpenType" {
					d.ProgramKind = OpenTypeProgram
				}
			}
			break
		}
	}
	if stream == nil {
		return
	}

	data, err := stream.Decode()
	if err != nil {
		d.ProgramErr = d.extractionError(fmt.Errorf("decode %s program: %w", d.ProgramKind, err))
		return
	}
	d.Program = data
	if d.ProgramKind == Type1Program {
		// Type 1 programs are handed to the converter as is.
		return
	}
	f, err := fontfile.Parse(data)
	if err != nil {
		d.ProgramErr = d.extractionError(err)
		return
	}
	d.Font = f
}

// GID maps a character code to a glyph in the embedded program. ok is false
// when the program is missing or unparsed, or the code selects no glyph.
//
// Composite fonts go through the CIDToGIDMap (identity when absent). Simple
// TrueType fonts try the (3,0) symbol cmap, then (1,0), then (3,1) through
// the encoding's glyph name. Simple CFF fonts look the glyph name up in the
// charset.
func (d *Descriptor) GID(code uint32) (model.GID, bool) {
	f := d.Font
	if d.Kind == Composite {
		cid := d.CID(code)
		gid := model.GID(cid)
		if d.CIDToGID != nil {
			if int(cid) >= len(d.CIDToGID) {
				return 0, false
			}
			gid = d.CIDToGID[cid]
		}
		if f == nil {
			return gid, false
		}
		return gid, f.HasGlyph(gid)
	}
	if f == nil {
		return 0, false
	}

	if f.CFF != nil {
		if name := d.Encoding.Name(code); name != "" {
			if gid, ok := f.GlyphByName(name); ok {
				return gid, true
			}
		}
		if gid := model.GID(code); f.HasGlyph(gid) && f.Names == nil {
			return gid, true
		}
		return 0, false
	}

	if cm := f.Cmap(3, 0); cm != nil {
		for _, c := range []uint32{code, 0xF000 | code, 0xF100 | code, 0xF200 | code} {
			if gid, ok := cm.Lookup(c); ok && gid != 0 {
				return gid, true
			}
		}
	}
	if cm := f.Cmap(1, 0); cm != nil && (d.Symbolic() || f.UnicodeCmap() == nil) {
		if gid, ok := cm.Lookup(code); ok && gid != 0 {
			return gid, true
		}
	}
	if cm := f.UnicodeCmap(); cm != nil {
		if s, _, _ := d.Encoding.Text(code); s != "" {
			if gid, ok := cm.Lookup(uint32([]rune(s)[0])); ok && gid != 0 {
				return gid, true
			}
		}
	}
	if name := d.Encoding.Name(code); name != "" {
		if gid, ok := f.GlyphByName(name); ok {
			return gid, true
		}
	}
	if gid := model.GID(code); f.Cmaps == nil && f.HasGlyph(gid) {
		return gid, true
	}
	return 0, false
}
