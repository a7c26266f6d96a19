package webfont

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/fontfile"
	"github.com/tsawler/pdfhtml/internal/logging"
	"github.com/tsawler/pdfhtml/model"
)

// Format is a CSS @font-face format name.
type Format string

const (
	FormatWOFF2    Format = "woff2"
	FormatWOFF     Format = "woff"
	FormatTrueType Format = "truetype"
	FormatOpenType Format = "opentype"
)

// MIME returns the media type used in data URIs.
func (f Format) MIME() string {
	switch f {
	case FormatWOFF2:
		return "font/woff2"
	case FormatWOFF:
		return "font/woff"
	case FormatOpenType:
		return "font/otf"
	default:
		return "font/ttf"
	}
}

// Face is a font ready for an @font-face rule.
type Face struct {
	Family string
	Format Format
	Data   []byte
	MIME   string
}

// DataURI encodes the face as a base64 data URI.
func (f *Face) DataURI() string {
	return "data:" + f.MIME + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// Converter packages subset programs for the browser.
type Converter struct {
	// WOFF2 enables the Brotli-compressed format. Without it, or when it
	// fails, faces are WOFF.
	WOFF2 bool
	// Tool handles bare CFF and Type 1 programs. Nil means those fonts are
	// dropped.
	Tool   Tool
	Logger *slog.Logger
}

// NeedsTool reports whether a program must go through the external tool
// before it can be subset.
func NeedsTool(c fontfile.Container) bool {
	return c == fontfile.BareCFF || c == fontfile.Type1
}

// Prepare returns an sfnt for program, running the external tool for
// containers that need it. Programs that are already sfnt pass through.
func (c *Converter) Prepare(ctx context.Context, ref model.FontRef, program []byte) ([]byte, error) {
	kind := fontfile.Sniff(program)
	if !NeedsTool(kind) {
		return program, nil
	}
	format := kind.String() + "-to-truetype"
	if c.Tool == nil {
		return nil, &diag.FontConversionError{Font: ref, Format: format, Err: diag.ErrToolUnavailable}
	}
	if err := c.Tool.Available(ctx); err != nil {
		return nil, &diag.FontConversionError{Font: ref, Format: format, Err: err}
	}
	out, err := c.Tool.Convert(ctx, program)
	if err != nil {
		return nil, &diag.FontConversionError{Font: ref, Format: format, Err: err}
	}
	logging.Or(c.Logger).Debug("converted font with external tool",
		"font", ref.String(), "from", kind.String(), "bytes", len(out))
	return out, nil
}

// Convert walks the format ladder woff2, woff, then the program's own
// format. A nil face means the font is dropped and the browser substitutes a
// system font.
//
// A face returned together with an error is a degraded result: the error
// names the format that could not be produced.
func (c *Converter) Convert(ref model.FontRef, family string, program []byte) (*Face, error) {
	log := logging.Or(c.Logger).With("font", ref.String(), "family", family)

	f, err := fontfile.Parse(program)
	if err != nil {
		return nil, &diag.FontConversionError{Font: ref, Format: string(FormatWOFF), Err: err}
	}
	var native Format
	switch f.Container {
	case fontfile.TrueType:
		native = FormatTrueType
	case fontfile.OpenTypeCFF:
		native = FormatOpenType
	default:
		return nil, &diag.FontConversionError{
			Font: ref, Format: string(FormatWOFF),
			Err: fmt.Errorf("%v program: %w", f.Container, fontfile.ErrUnsupported),
		}
	}
	program = f.Data()

	if _, err := Validate(program); err != nil {
		return nil, &diag.FontConversionError{Font: ref, Format: string(FormatWOFF), Err: err}
	}

	var degraded error
	if c.WOFF2 {
		data, err := EncodeWOFF2(program)
		if err == nil {
			return newFace(family, FormatWOFF2, data), nil
		}
		degraded = &diag.FontConversionError{Font: ref, Format: string(FormatWOFF2), Err: err}
		log.Warn("woff2 failed, falling back to woff", "error", err)
	}

	data, err := EncodeWOFF(program)
	if err == nil {
		return newFace(family, FormatWOFF, data), degraded
	}
	log.Warn("woff failed, embedding the program as is", "error", err, "format", string(native))
	return newFace(family, native, program), &diag.FontConversionError{Font: ref, Format: string(FormatWOFF), Err: err}
}

func newFace(family string, format Format, data []byte) *Face {
	return &Face{Family: family, Format: format, Data: data, MIME: format.MIME()}
}
