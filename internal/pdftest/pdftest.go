// Package pdftest builds small PDF files in memory for tests. Offsets in the
// cross-reference table are computed, never hand-counted.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Builder accumulates numbered objects and serializes them as a PDF.
type Builder struct {
	objs    map[int][]byte
	next    int
	root    int
	trailer string
}

// New returns an empty builder. Object numbers start at 1.
func New() *Builder {
	return &Builder{objs: map[int][]byte{}, next: 1}
}

// Reserve allocates an object number to be filled in later with Set.
func (b *Builder) Reserve() int {
	n := b.next
	b.next++
	return n
}

// Set stores body as object n.
func (b *Builder) Set(n int, body string) {
	b.objs[n] = []byte(body)
}

// Add stores body as a new object and returns its number.
func (b *Builder) Add(body string) int {
	n := b.Reserve()
	b.Set(n, body)
	return n
}

// AddStream stores a stream with the given extra dictionary entries. The
// /Length entry is added automatically.
func (b *Builder) AddStream(dict string, data []byte) int {
	n := b.Reserve()
	b.SetStream(n, dict, data)
	return n
}

// SetStream stores a stream as object n.
func (b *Builder) SetStream(n int, dict string, data []byte) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< %s /Length %d >>\nstream\n", dict, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	b.objs[n] = buf.Bytes()
}

// AddFlateStream compresses data and stores it with /Filter /FlateDecode.
func (b *Builder) AddFlateStream(dict string, data []byte) int {
	return b.AddStream(dict+" /Filter /FlateDecode", Deflate(data))
}

// SetRoot sets the trailer /Root.
func (b *Builder) SetRoot(n int) { b.root = n }

// SetTrailerExtra appends raw entries to the trailer dictionary.
func (b *Builder) SetTrailerExtra(entries string) { b.trailer = entries }

// Page describes one page for Pages.
type Page struct {
	Content  string
	Fonts    map[string]int // resource name to font object
	XObjects map[string]int
	MediaBox [4]float64 // zero means US Letter
	Rotate   int
}

// Pages builds a catalog and a flat page tree and sets it as the root.
func (b *Builder) Pages(pages ...Page) {
	treeNum := b.Reserve()
	kids := make([]string, len(pages))
	for i, p := range pages {
		content := b.AddStream("", []byte(p.Content))
		box := p.MediaBox
		if box == [4]float64{} {
			box = [4]float64{0, 0, 612, 792}
		}
		res := "<< " + resourceDict("Font", p.Fonts) + resourceDict("XObject", p.XObjects) + ">>"
		body := fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [%g %g %g %g] /Resources %s /Contents %d 0 R",
			treeNum, box[0], box[1], box[2], box[3], res, content)
		if p.Rotate != 0 {
			body += fmt.Sprintf(" /Rotate %d", p.Rotate)
		}
		kids[i] = fmt.Sprintf("%d 0 R", b.Add(body+" >>"))
	}
	b.Set(treeNum, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	b.SetRoot(b.Add(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", treeNum)))
}

func resourceDict(kind string, m map[string]int) string {
	if len(m) == 0 {
		return ""
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	var sb strings.Builder
	fmt.Fprintf(&sb, "/%s << ", kind)
	for _, k := range names {
		fmt.Fprintf(&sb, "/%s %d 0 R ", k, m[k])
	}
	sb.WriteString(">> ")
	return sb.String()
}

// Bytes serializes the document with a classic xref table.
func (b *Builder) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	size := b.next
	offsets := make([]int, size)
	for n := 1; n < size; n++ {
		body, ok := b.objs[n]
		if !ok {
			continue
		}
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", n)
		buf.Write(body)
		buf.WriteString("\nendobj\n")
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", size)
	for n := 1; n < size; n++ {
		if offsets[n] == 0 {
			buf.WriteString("0000000000 65535 f \n")
			continue
		}
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R %s>>\nstartxref\n%d\n%%%%EOF\n", size, b.root, b.trailer, xref)
	return buf.Bytes()
}

// WriteFile writes the document into t's temp dir and returns the path.
func (b *Builder) WriteFile(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Deflate zlib-compresses data.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

// HexString formats data as a PDF hex string.
func HexString(data []byte) string {
	return fmt.Sprintf("<%X>", data)
}
