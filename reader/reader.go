package reader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/diag"
	"github.com/tsawler/pdfhtml/pages"
)

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Reader holds a whole PDF file in memory. All methods are safe for
// concurrent use; page workers share one Reader.
type Reader struct {
	path    string
	data    []byte
	xref    *core.XRefTable
	trailer core.Dict
	version PDFVersion

	mu      sync.Mutex
	cache   map[int]core.Object
	objStms map[int]*core.ObjectStream

	pagesOnce sync.Once
	pages     []*pages.Page
	pagesErr  error
}

var _ pages.ObjectResolver = (*Reader)(nil)

// Open reads the file at path. Every failure is a *diag.DocumentLoadError.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &diag.DocumentLoadError{Path: path, Err: err}
	}
	return load(path, data)
}

// NewReader reads the whole of r into memory.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, &diag.DocumentLoadError{Err: err}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &diag.DocumentLoadError{Err: err}
	}
	return load("", data)
}

// FromBytes wraps data, which must not be modified afterwards.
func FromBytes(data []byte) (*Reader, error) {
	return load("", data)
}

func load(path string, data []byte) (*Reader, error) {
	fail := func(err error) (*Reader, error) {
		return nil, &diag.DocumentLoadError{Path: path, Err: err}
	}

	r := &Reader{
		path:    path,
		data:    data,
		cache:   make(map[int]core.Object),
		objStms: make(map[int]*core.ObjectStream),
	}

	v, err := parseHeader(data)
	if err != nil {
		return fail(err)
	}
	r.version = v

	xref, err := core.LoadXRef(data)
	if err != nil || !xref.Trailer.Has("Root") {
		rebuilt, rerr := core.ReconstructXRef(data)
		if rerr != nil {
			if err == nil {
				err = rerr
			}
			return fail(fmt.Errorf("xref: %w", err))
		}
		xref = rebuilt
	}
	r.xref = xref
	r.trailer = xref.Trailer

	if r.trailer.Has("Encrypt") {
		return fail(diag.ErrEncrypted)
	}
	if !r.trailer.Has("Root") {
		if ref, ok := r.findCatalog(); ok {
			r.trailer["Root"] = ref
		}
	}
	if _, err := r.Catalog(); err != nil {
		return fail(err)
	}
	return r, nil
}

var headerRe = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// parseHeader accepts the header anywhere in the first kilobyte, as
// readers commonly do for files with leading junk.
func parseHeader(data []byte) (PDFVersion, error) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	m := headerRe.FindSubmatch(head)
	if m == nil {
		return PDFVersion{}, fmt.Errorf("missing %%PDF- header")
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

// findCatalog looks for a /Type /Catalog object when the trailer has no Root.
func (r *Reader) findCatalog() (core.IndirectRef, bool) {
	nums := make([]int, 0, len(r.xref.Entries))
	for num := range r.xref.Entries {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	for _, num := range nums {
		e := r.xref.Entries[num]
		if e.Kind == core.EntryFree {
			continue
		}
		obj, err := r.GetObject(num)
		if err != nil {
			continue
		}
		if d, ok := obj.(core.Dict); ok {
			if t, _ := d.GetName("Type"); t == "Catalog" {
				return core.IndirectRef{Number: num, Generation: e.Generation}, true
			}
		}
	}
	return core.IndirectRef{}, false
}

// Version returns the PDF version
func (r *Reader) Version() PDFVersion { return r.version }

// Trailer returns the trailer dictionary
func (r *Reader) Trailer() core.Dict { return r.trailer }

// Path returns the file path given to Open, if any.
func (r *Reader) Path() string { return r.path }

// Bytes returns the raw file contents. Callers must not modify them.
func (r *Reader) Bytes() []byte { return r.data }

// GetObject loads an object by number, consulting the cache first.
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	r.mu.Lock()
	if obj, ok := r.cache[objNum]; ok {
		r.mu.Unlock()
		return obj, nil
	}
	r.mu.Unlock()

	entry, ok := r.xref.Get(objNum)
	if !ok || entry.Kind == core.EntryFree {
		// A reference to a missing object is the null object.
		return core.Null{}, nil
	}

	var obj core.Object
	var err error
	switch entry.Kind {
	case core.EntryCompressed:
		obj, err = r.loadCompressed(objNum, entry)
	default:
		obj, err = r.loadAt(objNum, entry.Offset, lengthResolver{r})
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[objNum] = obj
	r.mu.Unlock()
	return obj, nil
}

func (r *Reader) loadAt(objNum int, offset int64, resolver core.ReferenceResolver) (core.Object, error) {
	if offset < 0 || offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("object %d offset %d outside file", objNum, offset)
	}
	p := core.NewParser(r.data)
	p.Seek(int(offset))
	if resolver != nil {
		p.SetReferenceResolver(resolver)
	}
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", objNum, err)
	}
	if ind.Ref.Number != objNum {
		return nil, fmt.Errorf("object %d: xref points at object %d", objNum, ind.Ref.Number)
	}
	return ind.Object, nil
}

func (r *Reader) loadCompressed(objNum int, entry core.XRefEntry) (core.Object, error) {
	r.mu.Lock()
	os, ok := r.objStms[entry.StreamNum]
	r.mu.Unlock()

	if !ok {
		obj, err := r.GetObject(entry.StreamNum)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.StreamNum, err)
		}
		s, isStream := obj.(*core.Stream)
		if !isStream {
			return nil, fmt.Errorf("object stream %d is %s", entry.StreamNum, obj.Type())
		}
		if os, err = core.NewObjectStream(s); err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.StreamNum, err)
		}
		r.mu.Lock()
		r.objStms[entry.StreamNum] = os
		r.mu.Unlock()
	}

	obj, num, err := os.GetObjectByIndex(entry.Index)
	if err != nil || num != objNum {
		// Some writers get the index wrong; fall back to a search.
		return os.GetObjectByNumber(objNum)
	}
	return obj, nil
}

// lengthResolver resolves indirect stream lengths. It parses the target
// without a resolver of its own, so a self-referencing length cannot recurse.
type lengthResolver struct{ r *Reader }

func (l lengthResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	e, ok := l.r.xref.Get(ref.Number)
	if !ok || e.Kind != core.EntryInUse {
		return nil, fmt.Errorf("stream length %s is not a plain object", ref)
	}
	return l.r.loadAt(ref.Number, e.Offset, nil)
}

// ResolveReference resolves an indirect reference
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve follows obj if it is an indirect reference, otherwise returns it
// as-is. Chains of references are followed.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	for i := 0; i < 32; i++ {
		ref, ok := obj.(core.IndirectRef)
		if !ok {
			return obj, nil
		}
		var err error
		if obj, err = r.ResolveReference(ref); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("reference chain too long")
}

// ResolveDict resolves obj and returns it as a dictionary, or nil.
func (r *Reader) ResolveDict(obj core.Object) core.Dict {
	v, err := r.Resolve(obj)
	if err != nil {
		return nil
	}
	d, _ := v.(core.Dict)
	return d
}

// Catalog returns the document catalog (root object).
func (r *Reader) Catalog() (core.Dict, error) {
	root, ok := r.trailer["Root"]
	if !ok {
		return nil, fmt.Errorf("trailer has no /Root")
	}
	d := r.ResolveDict(root)
	if d == nil {
		return nil, fmt.Errorf("catalog is missing or not a dictionary")
	}
	return d, nil
}

// Info returns the document info dictionary, or nil.
func (r *Reader) Info() core.Dict {
	return r.ResolveDict(r.trailer["Info"])
}

// Title returns the /Title from the info dictionary as UTF-8, or "".
func (r *Reader) Title() string {
	info := r.Info()
	if info == nil {
		return ""
	}
	s, ok := r.mustResolve(info["Title"]).(core.String)
	if !ok {
		return ""
	}
	return TextString([]byte(s))
}

// TextString decodes a PDF text string: UTF-16BE when it starts with a byte
// order mark, PDFDocEncoding otherwise (read as Latin-1, which agrees on
// the printable range).
func TextString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
		if err == nil {
			return string(out)
		}
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// Pages returns every page in document order. The tree is flattened once.
func (r *Reader) Pages() ([]*pages.Page, error) {
	r.pagesOnce.Do(func() {
		catalog, err := r.Catalog()
		if err != nil {
			r.pagesErr = err
			return
		}
		root := r.ResolveDict(catalog["Pages"])
		if root == nil {
			r.pagesErr = &diag.DocumentLoadError{Path: r.path, Err: fmt.Errorf("catalog has no page tree")}
			return
		}
		r.pages, r.pagesErr = pages.Flatten(root, r)
		if r.pagesErr != nil {
			r.pagesErr = &diag.DocumentLoadError{Path: r.path, Err: r.pagesErr}
		}
	})
	return r.pages, r.pagesErr
}

// NumPages returns the page count.
func (r *Reader) NumPages() (int, error) {
	p, err := r.Pages()
	return len(p), err
}

// Page returns the page with the given 1-based number.
func (r *Reader) Page(n int) (*pages.Page, error) {
	all, err := r.Pages()
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(all) {
		return nil, fmt.Errorf("page %d out of range [1,%d]", n, len(all))
	}
	return all[n-1], nil
}

// ContainsEOF reports whether the file ends with an %%EOF marker. Truncated
// downloads usually do not.
func (r *Reader) ContainsEOF() bool {
	tail := r.data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	return bytes.Contains(tail, []byte("%%EOF"))
}
