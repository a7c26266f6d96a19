//go:build ocr

package ocr

import (
	"image"
	"image/draw"
	"testing"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func newClient(t *testing.T) *Client {
	t.Helper()
	c, err := New()
	if err != nil {
		t.Skipf("tesseract not available: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// page returns a white page with s drawn at (x, y) and scaled up so the
// bitmap face reaches a size tesseract reads.
func page(s string, x, y int) *image.RGBA {
	small := image.NewRGBA(image.Rect(0, 0, 100, 40))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	if s != "" {
		d := font.Drawer{Dst: small, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(x, y)}
		d.DrawString(s)
	}
	big := image.NewRGBA(image.Rect(0, 0, 400, 160))
	xdraw.NearestNeighbor.Scale(big, big.Bounds(), small, small.Bounds(), draw.Src, nil)
	return big
}

func TestAuditCleanRegion(t *testing.T) {
	a := NewAuditor(newClient(t))
	got, err := a.Audit(page("", 0, 0), []image.Rectangle{image.Rect(20, 20, 380, 140)})
	if err != nil {
		t.Fatalf("Audit() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("blank region reported residue: %+v", got)
	}
}

func TestAuditLeftoverText(t *testing.T) {
	a := NewAuditor(newClient(t))
	img := page("ERASE ME", 10, 25)
	got, err := a.Audit(img, []image.Rectangle{img.Bounds()})
	if err != nil {
		t.Fatalf("Audit() failed: %v", err)
	}
	t.Logf("findings: %+v", got)
}

func TestSetLanguage(t *testing.T) {
	c := newClient(t)
	if err := c.SetLanguage("eng"); err != nil {
		t.Errorf("SetLanguage() failed: %v", err)
	}
}

func TestCloseTwice(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Skipf("tesseract not available: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	c.client = nil
	if err := c.Close(); err != nil {
		t.Errorf("Close() on released client failed: %v", err)
	}
}

func TestRecognizeBlankIsEmpty(t *testing.T) {
	c := newClient(t)
	data, err := encodeRegion(page("", 0, 0), image.Rect(0, 0, 400, 160))
	if err != nil {
		t.Fatal(err)
	}
	text, err := c.RecognizeImage(data)
	if err != nil {
		t.Fatalf("RecognizeImage() failed: %v", err)
	}
	if countAlnum(text) != 0 {
		t.Errorf("RecognizeImage(blank) = %q", text)
	}
}

