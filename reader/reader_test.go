package reader

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/internal/pdftest"
)

func TestOpenSimpleDocument(t *testing.T) {
	b := pdftest.New()
	b.Pages(pdftest.Page{Content: "BT ET"}, pdftest.Page{Content: "q Q", Rotate: 90})
	path := b.WriteFile(t, "simple.pdf")

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Version().String() != "1.7" {
		t.Errorf("version = %s", r.Version())
	}
	n, err := r.NumPages()
	if err != nil || n != 2 {
		t.Fatalf("NumPages = %d, %v", n, err)
	}
	p2, err := r.Page(2)
	if err != nil {
		t.Fatal(err)
	}
	if p2.Rotate != 90 || p2.Width() != 792 || p2.Height() != 612 {
		t.Errorf("page 2 rotate=%d size=%gx%g", p2.Rotate, p2.Width(), p2.Height())
	}
	content, err := p2.Contents()
	if err != nil || !bytes.Contains(content, []byte("q Q")) {
		t.Errorf("contents = %q, %v", content, err)
	}
	if _, err := r.Page(3); err == nil {
		t.Error("page 3 should be out of range")
	}
}

func TestOpenEncrypted(t *testing.T) {
	b := pdftest.New()
	b.Pages(pdftest.Page{Content: ""})
	enc := b.Add("<< /Filter /Standard /V 2 /R 3 >>")
	b.SetTrailerExtra(fmt.Sprintf("/Encrypt %d 0 R ", enc))

	_, err := FromBytes(b.Bytes())
	var loadErr *diag.DocumentLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected DocumentLoadError, got %v", err)
	}
	if !errors.Is(err, diag.ErrEncrypted) {
		t.Errorf("expected ErrEncrypted in chain, got %v", err)
	}
}

func TestOpenCorrupt(t *testing.T) {
	tests := map[string][]byte{
		"not a pdf":  []byte("hello world"),
		"no objects": []byte("%PDF-1.4\ngarbage\n%%EOF"),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromBytes(data)
			var loadErr *diag.DocumentLoadError
			if !errors.As(err, &loadErr) {
				t.Errorf("expected DocumentLoadError, got %v", err)
			}
		})
	}
}

func TestOpenRecoversBrokenXRef(t *testing.T) {
	b := pdftest.New()
	b.Pages(pdftest.Page{Content: "BT ET"})
	data := b.Bytes()
	// Point startxref somewhere useless.
	i := bytes.LastIndex(data, []byte("startxref"))
	broken := append(append([]byte{}, data[:i]...), []byte("startxref\n3\n%%EOF\n")...)

	r, err := FromBytes(broken)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if n, _ := r.NumPages(); n != 1 {
		t.Errorf("NumPages = %d, want 1", n)
	}
}

func TestInheritedAttributes(t *testing.T) {
	b := pdftest.New()
	content := b.AddStream("", []byte("BT ET"))
	font := b.Add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	leaf := b.Reserve()
	mid := b.Reserve()
	top := b.Reserve()
	b.Set(leaf, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Contents %d 0 R >>", mid, content))
	b.Set(mid, fmt.Sprintf("<< /Type /Pages /Parent %d 0 R /Kids [%d 0 R] /Count 1 /Rotate 180 >>", top, leaf))
	b.Set(top, fmt.Sprintf("<< /Type /Pages /Kids [%d 0 R] /Count 1 /MediaBox [0 0 200 100] /CropBox [10 10 190 90] /Resources << /Font << /F1 %d 0 R >> >> >>", mid, font))
	b.SetRoot(b.Add(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", top)))

	r, err := FromBytes(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	p, err := r.Page(1)
	if err != nil {
		t.Fatal(err)
	}
	if p.MediaBox.Width != 200 || p.CropBox.X != 10 || p.CropBox.Width != 180 {
		t.Errorf("boxes media=%+v crop=%+v", p.MediaBox, p.CropBox)
	}
	if p.Rotate != 180 {
		t.Errorf("Rotate = %d, want 180 from the direct parent", p.Rotate)
	}
	fonts := r.ResolveDict(p.Resources["Font"])
	if _, ok := fonts["F1"]; !ok {
		t.Error("Resources should be inherited from the grandparent")
	}
}

func TestObjectStreamsAndXRefStream(t *testing.T) {
	// Objects 1 (catalog) and 2 (pages) live in object stream 5; page 3 and
	// its content 4 are plain objects; 6 is the xref stream.
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	off := map[int]int{}

	off[3] = buf.Len()
	buf.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>\nendobj\n")
	off[4] = buf.Len()
	buf.WriteString("4 0 obj\n<< /Length 5 >>\nstream\nBT ET\nendstream\nendobj\n")

	objs := []string{"<< /Type /Catalog /Pages 2 0 R >>", "<< /Type /Pages /Kids [3 0 R] /Count 1 >>"}
	header := fmt.Sprintf("1 0 2 %d ", len(objs[0])+1)
	body := header + objs[0] + " " + objs[1]
	off[5] = buf.Len()
	fmt.Fprintf(&buf, "5 0 obj\n<< /Type /ObjStm /N 2 /First %d /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(header), len(body), body)

	off[6] = buf.Len()
	var rows []byte
	rows = append(rows, 0, 0, 0, 0)
	rows = append(rows, 2, 0, 5, 0)
	rows = append(rows, 2, 0, 5, 1)
	for _, n := range []int{3, 4, 5, 6} {
		rows = append(rows, 1, byte(off[n]>>8), byte(off[n]), 0)
	}
	z := pdftest.Deflate(rows)
	fmt.Fprintf(&buf, "6 0 obj\n<< /Type /XRef /Size 7 /W [1 2 1] /Root 1 0 R /Filter /FlateDecode /Length %d >>\nstream\n", len(z))
	buf.Write(z)
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", off[6])

	r, err := FromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	n, err := r.NumPages()
	if err != nil || n != 1 {
		t.Fatalf("NumPages = %d, %v", n, err)
	}
	p, _ := r.Page(1)
	content, err := p.Contents()
	if err != nil || !bytes.Contains(content, []byte("BT ET")) {
		t.Errorf("contents = %q, %v", content, err)
	}
}

func TestConcurrentResolve(t *testing.T) {
	b := pdftest.New()
	var refs []int
	for i := 0; i < 50; i++ {
		refs = append(refs, b.Add(fmt.Sprintf("<< /N %d >>", i)))
	}
	b.Pages(pdftest.Page{})
	r, err := FromBytes(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, n := range refs {
				d := r.ResolveDict(core.IndirectRef{Number: n})
				if v, _ := d.GetInt("N"); int(v) != i {
					t.Errorf("object %d has N=%d, want %d", n, v, i)
				}
			}
		}()
	}
	wg.Wait()
}

func TestDecodeImage(t *testing.T) {
	b := pdftest.New()
	b.Pages(pdftest.Page{})
	r, err := FromBytes(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		dict core.Dict
		data []byte
		want [3]uint8 // pixel (1,0)
	}{
		{"gray8", core.Dict{"ColorSpace": core.Name("DeviceGray")}, []byte{0, 200}, [3]uint8{200, 200, 200}},
		{"rgb8", core.Dict{"ColorSpace": core.Name("DeviceRGB")}, []byte{0, 0, 0, 10, 20, 30}, [3]uint8{10, 20, 30}},
		{"gray1", core.Dict{"ColorSpace": core.Name("DeviceGray"), "BitsPerComponent": core.Int(1)}, []byte{0x40}, [3]uint8{255, 255, 255}},
		{"indexed", core.Dict{"ColorSpace": core.Array{core.Name("Indexed"), core.Name("DeviceRGB"), core.Int(1), core.String("\x00\x00\x00\xff\x00\x00")}}, []byte{0, 1}, [3]uint8{255, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.dict["Width"] = core.Int(2)
			tt.dict["Height"] = core.Int(1)
			img, err := r.DecodeImage(&core.Stream{Dict: tt.dict, Data: tt.data})
			if err != nil {
				t.Fatalf("DecodeImage: %v", err)
			}
			cr, cg, cb, _ := img.At(1, 0).RGBA()
			got := [3]uint8{uint8(cr >> 8), uint8(cg >> 8), uint8(cb >> 8)}
			if got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	b := pdftest.New()
	info := b.Add("<< /Title <FEFF00480069> >>")
	b.SetTrailerExtra(fmt.Sprintf("/Info %d 0 R", info))
	b.Pages(pdftest.Page{Content: ""})
	r, err := FromBytes(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Title(); got != "Hi" {
		t.Errorf("Title() = %q, want Hi", got)
	}
}

func TestTextString(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("Plain"), "Plain"},
		{[]byte{0xFE, 0xFF, 0x05, 0xE9}, "ש"},
		{[]byte{'c', 0xE9}, "cé"},
	}
	for _, tt := range tests {
		if got := TextString(tt.in); got != tt.want {
			t.Errorf("TextString(% x) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
