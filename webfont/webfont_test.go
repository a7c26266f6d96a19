package webfont

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/fontfile"
	"github.com/tsawler/pdfhtml/internal/fonttest"
	"github.com/tsawler/pdfhtml/model"
)

func sample(t *testing.T) []byte {
	t.Helper()
	return fonttest.New("Sample", "The quick brown fox").Bytes()
}

func TestWOFFRoundTrip(t *testing.T) {
	orig := sample(t)
	woff, err := EncodeWOFF(orig)
	require.NoError(t, err)

	assert.EqualValues(t, woffSignature, binary.BigEndian.Uint32(woff))
	assert.EqualValues(t, 0x00010000, binary.BigEndian.Uint32(woff[4:]))
	assert.EqualValues(t, len(woff), binary.BigEndian.Uint32(woff[8:]))
	assert.Zero(t, len(woff)%4)

	back, err := DecodeWOFF(woff)
	require.NoError(t, err)
	assert.Equal(t, orig, back)
}

func TestWOFFHeaderTotalSize(t *testing.T) {
	orig := sample(t)
	woff, err := EncodeWOFF(orig)
	require.NoError(t, err)
	// Assemble pads every table, so the declared sfnt size is the input size.
	assert.EqualValues(t, len(orig), binary.BigEndian.Uint32(woff[16:]))
	assert.EqualValues(t, 1, binary.BigEndian.Uint16(woff[20:]))
}

func TestWOFF2RoundTrip(t *testing.T) {
	orig := sample(t)
	woff2, err := EncodeWOFF2(orig)
	require.NoError(t, err)

	assert.EqualValues(t, woff2Signature, binary.BigEndian.Uint32(woff2))
	assert.EqualValues(t, len(woff2), binary.BigEndian.Uint32(woff2[8:]))
	assert.EqualValues(t, len(orig), binary.BigEndian.Uint32(woff2[16:]))

	back, err := DecodeWOFF2(woff2)
	require.NoError(t, err)
	f, err := fontfile.Parse(back)
	require.NoError(t, err)
	o, err := fontfile.Parse(orig)
	require.NoError(t, err)
	assert.Equal(t, o.Tags(), f.Tags())
	for _, tag := range o.Tags() {
		want, _ := o.Table(tag)
		got, _ := f.Table(tag)
		assert.Equal(t, want, got, "table %s", tag)
	}
}

func TestWOFF2GlyfUsesNullTransform(t *testing.T) {
	woff2, err := EncodeWOFF2(sample(t))
	require.NoError(t, err)
	r := bytes.NewReader(woff2[woff2HeaderSize:])
	n := int(binary.BigEndian.Uint16(woff2[12:]))
	seen := 0
	for i := 0; i < n; i++ {
		flags, err := r.ReadByte()
		require.NoError(t, err)
		tag := woff2Tags[flags&0x3F]
		if tag == "glyf" || tag == "loca" {
			assert.EqualValues(t, 3, flags>>6, tag)
			seen++
		}
		_, err = readBase128(r)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, seen)
}

func TestBase128(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 16383, 16384, 1 << 28, 0xFFFFFFFF} {
		b := appendBase128(nil, v)
		got, err := readBase128(bytes.NewReader(b))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := readBase128(bytes.NewReader([]byte{0x80, 0x01}))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeWOFF([]byte("not a font at all, really not"))
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = DecodeWOFF2(make([]byte, 60))
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = EncodeWOFF([]byte{0, 1, 0, 0, 0, 9})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestValidate(t *testing.T) {
	n, err := Validate(sample(t))
	require.NoError(t, err)
	assert.Positive(t, n)

	ft := fonttest.New("Bare", "abc")
	ft.NoCmap = true
	_, err = Validate(ft.Bytes())
	assert.Error(t, err)
}

func TestConvertLadder(t *testing.T) {
	ref := model.FontRef{Number: 7}
	tests := []struct {
		name  string
		woff2 bool
		want  Format
		mime  string
	}{
		{"woff2 on", true, FormatWOFF2, "font/woff2"},
		{"woff2 off", false, FormatWOFF, "font/woff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Converter{WOFF2: tt.woff2}
			face, err := c.Convert(ref, "pdf-f7", sample(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, face.Format)
			assert.Equal(t, tt.mime, face.MIME)
			assert.Equal(t, "pdf-f7", face.Family)
			assert.True(t, strings.HasPrefix(face.DataURI(), "data:"+tt.mime+";base64,"))
		})
	}
}

func TestConvertDropsFontWithoutCmap(t *testing.T) {
	ft := fonttest.New("Bare", "abc")
	ft.NoCmap = true
	ref := model.FontRef{Number: 9}
	face, err := (&Converter{}).Convert(ref, "pdf-f9", ft.Bytes())
	assert.Nil(t, face)
	var ce *diag.FontConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ref, ce.Font)
}

type stubTool struct {
	err   error
	out   []byte
	calls int
}

func (s *stubTool) Available(context.Context) error { return s.err }

func (s *stubTool) Convert(context.Context, []byte) ([]byte, error) {
	s.calls++
	return s.out, nil
}

func TestPrepare(t *testing.T) {
	ctx := context.Background()
	ref := model.FontRef{Number: 4}
	type1 := []byte("%!PS-AdobeFont-1.0: Test 001\n")
	ttf := sample(t)

	out, err := (&Converter{}).Prepare(ctx, ref, ttf)
	require.NoError(t, err)
	assert.Equal(t, ttf, out, "sfnt passes through")

	_, err = (&Converter{}).Prepare(ctx, ref, type1)
	assert.ErrorIs(t, err, diag.ErrToolUnavailable)

	down := &stubTool{err: diag.ErrToolUnavailable}
	_, err = (&Converter{Tool: down}).Prepare(ctx, ref, type1)
	assert.ErrorIs(t, err, diag.ErrToolUnavailable)
	assert.Zero(t, down.calls)

	up := &stubTool{out: ttf}
	out, err = (&Converter{Tool: up}).Prepare(ctx, ref, type1)
	require.NoError(t, err)
	assert.Equal(t, ttf, out)
	assert.Equal(t, 1, up.calls)
}

func TestFontForgeToolMissingBinary(t *testing.T) {
	tool := NewFontForgeTool("/nonexistent/fontforge")
	err := tool.Available(context.Background())
	assert.True(t, errors.Is(err, diag.ErrToolUnavailable))
	_, err = tool.Convert(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, diag.ErrToolUnavailable)
}
