package reader

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/tsawler/pdfhtml/core"
)

// DecodeImage turns an image XObject into an image.Image. Raw samples in
// gray, RGB and CMYK at 1, 4 or 8 bits are supported, as is DCT (JPEG) data.
// Indexed and ICC colour spaces fall back to their base or component count.
func (r *Reader) DecodeImage(stream *core.Stream) (image.Image, error) {
	dict := stream.Dict
	w, okW := dict.GetInt("Width")
	h, okH := dict.GetInt("Height")
	if !okW || !okH || w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image has no usable Width/Height")
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if lastFilter(dict) == "DCTDecode" || lastFilter(dict) == "DCT" {
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("jpeg: %w", err)
		}
		return img, nil
	}

	bpc := 8
	if v, ok := dict.GetInt("BitsPerComponent"); ok {
		bpc = int(v)
	}
	if im, _ := dict["ImageMask"].(core.Bool); im {
		bpc = 1
	}

	comps, palette := r.colorSpace(dict["ColorSpace"])
	s := samples{data: data, w: int(w), bpc: bpc, comps: comps}
	if palette != nil {
		s.comps = 1
	}
	if len(data) < s.rowBytes()*int(h) {
		return nil, fmt.Errorf("image data short: %d bytes for %dx%d", len(data), w, h)
	}

	out := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	max := float64(int(1)<<bpc - 1)
	for y := 0; y < int(h); y++ {
		for x := 0; x < int(w); x++ {
			var c color.RGBA
			switch {
			case palette != nil:
				c = palette.at(s.sample(x, y, 0))
			case s.comps == 3:
				c = color.RGBA{scale(s.sample(x, y, 0), max), scale(s.sample(x, y, 1), max), scale(s.sample(x, y, 2), max), 255}
			case s.comps == 4:
				cr, cg, cb := color.CMYKToRGB(scale(s.sample(x, y, 0), max), scale(s.sample(x, y, 1), max),
					scale(s.sample(x, y, 2), max), scale(s.sample(x, y, 3), max))
				c = color.RGBA{cr, cg, cb, 255}
			default:
				g := scale(s.sample(x, y, 0), max)
				c = color.RGBA{g, g, g, 255}
			}
			out.SetRGBA(x, y, c)
		}
	}
	return out, nil
}

type samples struct {
	data  []byte
	w     int
	bpc   int
	comps int
}

func (s samples) rowBytes() int { return (s.w*s.comps*s.bpc + 7) / 8 }

func (s samples) sample(x, y, comp int) int {
	bit := (x*s.comps + comp) * s.bpc
	row := s.data[y*s.rowBytes():]
	switch s.bpc {
	case 8:
		return int(row[bit/8])
	case 16:
		return int(row[bit/8])<<8 | int(row[bit/8+1])
	default:
		shift := 8 - s.bpc - bit%8
		return int(row[bit/8]>>shift) & (1<<s.bpc - 1)
	}
}

func scale(v int, max float64) uint8 {
	return uint8(float64(v)/max*255 + 0.5)
}

type indexed struct {
	comps  int
	lookup []byte
}

func (p *indexed) at(i int) color.RGBA {
	off := i * p.comps
	if off+p.comps > len(p.lookup) {
		return color.RGBA{0, 0, 0, 255}
	}
	v := p.lookup[off : off+p.comps]
	switch p.comps {
	case 3:
		return color.RGBA{v[0], v[1], v[2], 255}
	case 4:
		r, g, b := color.CMYKToRGB(v[0], v[1], v[2], v[3])
		return color.RGBA{r, g, b, 255}
	default:
		return color.RGBA{v[0], v[0], v[0], 255}
	}
}

// colorSpace returns the component count for obj and, for Indexed spaces,
// the palette.
func (r *Reader) colorSpace(obj core.Object) (int, *indexed) {
	v, err := r.Resolve(obj)
	if err != nil {
		return 1, nil
	}
	switch cs := v.(type) {
	case core.Name:
		return namedComponents(string(cs)), nil
	case core.Array:
		name, _ := cs.Get(0).(core.Name)
		switch name {
		case "Indexed", "I":
			base, _ := r.colorSpace(cs.Get(1))
			var lookup []byte
			switch l := r.mustResolve(cs.Get(3)).(type) {
			case core.String:
				lookup = []byte(l)
			case *core.Stream:
				lookup, _ = l.Decode()
			}
			return 1, &indexed{comps: base, lookup: lookup}
		case "ICCBased":
			if s, ok := r.mustResolve(cs.Get(1)).(*core.Stream); ok {
				if n, ok := s.Dict.GetInt("N"); ok {
					return int(n), nil
				}
			}
			return 3, nil
		case "CalRGB", "Lab":
			return 3, nil
		case "DeviceN":
			if names, ok := r.mustResolve(cs.Get(1)).(core.Array); ok {
				return len(names), nil
			}
		}
		return namedComponents(string(name)), nil
	}
	return 1, nil
}

func (r *Reader) mustResolve(obj core.Object) core.Object {
	v, err := r.Resolve(obj)
	if err != nil {
		return nil
	}
	return v
}

func namedComponents(name string) int {
	switch name {
	case "DeviceRGB", "RGB", "CalRGB":
		return 3
	case "DeviceCMYK", "CMYK":
		return 4
	default:
		return 1
	}
}

func lastFilter(d core.Dict) core.Name {
	switch f := d["Filter"].(type) {
	case core.Name:
		return f
	case core.Array:
		if n, ok := f.Get(len(f) - 1).(core.Name); ok {
			return n
		}
	}
	return ""
}
