package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"unicode"
)

// ErrOCRNotEnabled is returned when the module was built without the "ocr"
// tag.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Recognizer reads text from an encoded image. *Client implements it.
type Recognizer interface {
	RecognizeImage(imageData []byte) (string, error)
}

// Finding is text recognized in a region that should be blank.
type Finding struct {
	Region image.Rectangle
	Text   string
}

// Auditor checks erased regions for leftover text.
type Auditor struct {
	Rec Recognizer
	// Margin grows each region before cropping so OCR sees whole strokes
	// (default: 4)
	Margin int
	// MinChars is how many letters or digits a result needs to count as
	// residue (default: 2)
	MinChars int
}

// NewAuditor returns an auditor with the default margin and threshold.
func NewAuditor(rec Recognizer) *Auditor {
	return &Auditor{Rec: rec, Margin: 4, MinChars: 2}
}

// Audit runs OCR over each region of img and returns what it read. A
// recognizer failure stops the audit.
func (a *Auditor) Audit(img image.Image, regions []image.Rectangle) ([]Finding, error) {
	var out []Finding
	for _, r := range regions {
		crop := r.Inset(-a.Margin).Intersect(img.Bounds())
		if crop.Empty() {
			continue
		}
		data, err := encodeRegion(img, crop)
		if err != nil {
			return out, err
		}
		text, err := a.Rec.RecognizeImage(data)
		if err != nil {
			return out, fmt.Errorf("region %v: %w", r, err)
		}
		if countAlnum(text) >= a.MinChars {
			out = append(out, Finding{Region: r, Text: text})
		}
	}
	return out, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func encodeRegion(img image.Image, r image.Rectangle) ([]byte, error) {
	sub := img
	if s, ok := img.(subImager); ok {
		sub = s.SubImage(r)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, sub); err != nil {
		return nil, fmt.Errorf("encode region: %w", err)
	}
	return buf.Bytes(), nil
}

func countAlnum(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
