package pages

import (
	"bytes"
	"fmt"

	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/model"
)

// ObjectResolver resolves indirect references.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// inheritable lists the page attributes that may be set on any ancestor
// Pages node.
var inheritable = []string{"MediaBox", "CropBox", "Resources", "Rotate"}

// maxTreeDepth bounds page tree nesting; deeper trees are treated as cyclic.
const maxTreeDepth = 64

// US Letter, used when no ancestor supplies a MediaBox.
var defaultMediaBox = model.NewBBox(0, 0, 612, 792)

// Flatten walks the page tree rooted at root and returns its pages in
// document order. Each page carries the inheritable attributes of its
// nearest ancestor that sets them.
func Flatten(root core.Dict, resolver ObjectResolver) ([]*Page, error) {
	var out []*Page
	visited := map[core.IndirectRef]bool{}

	var walk func(node core.Dict, inherited core.Dict, depth int) error
	walk = func(node core.Dict, inherited core.Dict, depth int) error {
		if depth > maxTreeDepth {
			return fmt.Errorf("page tree deeper than %d levels", maxTreeDepth)
		}

		attrs := core.Dict{}
		for _, key := range inheritable {
			if v, ok := node[key]; ok {
				attrs[key] = v
			} else if v, ok := inherited[key]; ok {
				attrs[key] = v
			}
		}

		typ, _ := node.GetName("Type")
		_, hasKids := node["Kids"]
		if typ == "Page" || (typ != "Pages" && !hasKids) {
			p, err := newPage(len(out)+1, node, attrs, resolver)
			if err != nil {
				return fmt.Errorf("page %d: %w", len(out)+1, err)
			}
			out = append(out, p)
			return nil
		}

		kidsObj, err := resolver.Resolve(node["Kids"])
		if err != nil {
			return fmt.Errorf("resolve /Kids: %w", err)
		}
		kids, ok := kidsObj.(core.Array)
		if !ok {
			return fmt.Errorf("/Kids is %T, not an array", kidsObj)
		}
		for i, kid := range kids {
			if ref, isRef := kid.(core.IndirectRef); isRef {
				if visited[ref] {
					return fmt.Errorf("page tree cycle at %s", ref)
				}
				visited[ref] = true
			}
			obj, err := resolver.Resolve(kid)
			if err != nil {
				return fmt.Errorf("resolve kid %d: %w", i, err)
			}
			kidDict, ok := obj.(core.Dict)
			if !ok {
				continue
			}
			if err := walk(kidDict, attrs, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, nil, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// Page is a leaf of the page tree with its inherited attributes resolved.
type Page struct {
	Number    int // 1-based
	Dict      core.Dict
	MediaBox  model.BBox
	CropBox   model.BBox
	Rotate    int // normalised to 0, 90, 180 or 270
	Resources core.Dict

	resolver ObjectResolver
}

func newPage(number int, dict, attrs core.Dict, resolver ObjectResolver) (*Page, error) {
	p := &Page{Number: number, Dict: dict, resolver: resolver}

	p.MediaBox = defaultMediaBox
	if box, ok := resolveBox(attrs["MediaBox"], resolver); ok {
		p.MediaBox = box
	}
	p.CropBox = p.MediaBox
	if box, ok := resolveBox(attrs["CropBox"], resolver); ok {
		if clipped := box.Intersection(p.MediaBox); !clipped.IsEmpty() {
			p.CropBox = clipped
		}
	}

	if v, err := resolver.Resolve(attrs["Rotate"]); err == nil {
		if n, ok := core.Number(v); ok {
			r := int(n) % 360
			if r < 0 {
				r += 360
			}
			p.Rotate = r / 90 * 90
		}
	}

	if res, ok := attrs["Resources"]; ok {
		obj, err := resolver.Resolve(res)
		if err != nil {
			return nil, fmt.Errorf("resolve /Resources: %w", err)
		}
		p.Resources, _ = obj.(core.Dict)
	}
	if p.Resources == nil {
		p.Resources = core.Dict{}
	}
	return p, nil
}

func resolveBox(obj core.Object, resolver ObjectResolver) (model.BBox, bool) {
	if obj == nil {
		return model.BBox{}, false
	}
	v, err := resolver.Resolve(obj)
	if err != nil {
		return model.BBox{}, false
	}
	arr, ok := v.(core.Array)
	if !ok || len(arr) != 4 {
		return model.BBox{}, false
	}
	var n [4]float64
	for i, e := range arr {
		r, err := resolver.Resolve(e)
		if err != nil {
			return model.BBox{}, false
		}
		if n[i], ok = core.Number(r); !ok {
			return model.BBox{}, false
		}
	}
	box := model.NewBBoxFromPoints(model.Point{X: n[0], Y: n[1]}, model.Point{X: n[2], Y: n[3]})
	return box, !box.IsEmpty()
}

// Width returns the visible width in points, after rotation.
func (p *Page) Width() float64 {
	if p.Rotate == 90 || p.Rotate == 270 {
		return p.CropBox.Height
	}
	return p.CropBox.Width
}

// Height returns the visible height in points, after rotation.
func (p *Page) Height() float64 {
	if p.Rotate == 90 || p.Rotate == 270 {
		return p.CropBox.Width
	}
	return p.CropBox.Height
}

// Contents returns the decoded content streams joined by newlines. A page
// without /Contents yields nil.
func (p *Page) Contents() ([]byte, error) {
	obj, err := p.resolver.Resolve(p.Dict["Contents"])
	if err != nil {
		return nil, fmt.Errorf("resolve /Contents: %w", err)
	}

	var parts []core.Object
	switch v := obj.(type) {
	case nil, core.Null:
		return nil, nil
	case *core.Stream:
		parts = []core.Object{v}
	case core.Array:
		parts = v
	default:
		return nil, fmt.Errorf("/Contents is %T", obj)
	}

	var buf bytes.Buffer
	for i, part := range parts {
		o, err := p.resolver.Resolve(part)
		if err != nil {
			return nil, fmt.Errorf("resolve contents[%d]: %w", i, err)
		}
		s, ok := o.(*core.Stream)
		if !ok {
			continue
		}
		data, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode contents[%d]: %w", i, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
