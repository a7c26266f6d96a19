package font

import (
	"fmt"

	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/model"
)

// CIDSystemInfo identifies a character collection
type CIDSystemInfo struct {
	Registry   string // e.g., "Adobe"
	Ordering   string // e.g., "Japan1", "GB1", "CNS1", "Korea1", "Identity"
	Supplement int
}

// IsIdentity reports the Adobe-Identity collection, whose CIDs carry no
// character meaning.
func (c CIDSystemInfo) IsIdentity() bool {
	return c.Ordering == "Identity" || c.Ordering == ""
}

// IsCJK reports one of the Adobe CJK collections.
func (c CIDSystemInfo) IsCJK() bool {
	switch c.Ordering {
	case "Japan1", "GB1", "CNS1", "Korea1":
		return c.Registry == "Adobe"
	}
	return false
}

// WidthRange represents a width specification in the W array
type WidthRange struct {
	StartCID int
	EndCID   int
	Width    float64   // Single width for range
	Widths   []float64 // Individual widths (if Width == 0)
}

// loadComposite reads a Type0 font and its single descendant CIDFont.
func (d *Descriptor) loadComposite(dict core.Dict, r core.ReferenceResolver) error {
	switch enc := resolve(dict.Get("Encoding"), r).(type) {
	case core.Name:
		d.CMapName = string(enc)
	case *core.Stream:
		data, err := enc.Decode()
		if err != nil {
			return fmt.Errorf("encoding cmap: %w", err)
		}
		cm, err := ParseCMap(data)
		if err != nil {
			return fmt.Errorf("encoding cmap: %w", err)
		}
		d.EncodingCMap = cm
		d.CMapName = cm.Name
		if wm, ok := enc.Dict.GetInt("WMode"); ok && wm == 1 {
			d.Vertical = true
		}
	default:
		d.CMapName = "Identity-H"
	}
	if len(d.CMapName) > 2 && d.CMapName[len(d.CMapName)-2:] == "-V" {
		d.Vertical = true
	}

	arr, ok := resolve(dict.Get("DescendantFonts"), r).(core.Array)
	if !ok || len(arr) == 0 {
		return fmt.Errorf("no descendant font")
	}
	cid := resolveDict(arr[0], r)
	if cid == nil {
		return fmt.Errorf("descendant font is not a dictionary")
	}
	if d.BaseFont == "" {
		d.BaseFont = extractName(resolve(cid.Get("BaseFont"), r))
	}

	if info := resolveDict(cid.Get("CIDSystemInfo"), r); info != nil {
		d.CIDSystemInfo.Registry = extractName(resolve(info.Get("Registry"), r))
		d.CIDSystemInfo.Ordering = extractName(resolve(info.Get("Ordering"), r))
		d.CIDSystemInfo.Supplement = int(getNumber(resolve(info.Get("Supplement"), r)))
	}
	if dw, ok := core.Number(resolve(cid.Get("DW"), r)); ok {
		d.DW = dw
	}
	if err := d.parseWidthArray(cid, r); err != nil {
		return err
	}
	if stream, ok := resolve(cid.Get("CIDToGIDMap"), r).(*core.Stream); ok {
		data, err := stream.Decode()
		if err != nil {
			return fmt.Errorf("CIDToGIDMap: %w", err)
		}
		d.CIDToGID = make([]model.GID, len(data)/2)
		for i := range d.CIDToGID {
			d.CIDToGID[i] = model.GID(data[2*i])<<8 | model.GID(data[2*i+1])
		}
	}

	d.loadDescriptor(resolveDict(cid.Get("FontDescriptor"), r), r)
	return nil
}

// parseWidthArray parses the W array for CIDFont widths
// Format: [c [w1 w2 ... wn]] or [cfirst clast w]
func (d *Descriptor) parseWidthArray(cid core.Dict, r core.ReferenceResolver) error {
	wObj := cid.Get("W")
	if wObj == nil {
		return nil // W is optional
	}
	wArray, ok := resolve(wObj, r).(core.Array)
	if !ok {
		return fmt.Errorf("W is not an array: %T", resolve(wObj, r))
	}

	for i := 0; i < len(wArray); {
		startCID := int(getNumber(resolve(wArray[i], r)))
		i++
		if i >= len(wArray) {
			break
		}

		if widthsArray, ok := resolve(wArray[i], r).(core.Array); ok {
			// c [w1 w2 ... wn]
			widths := make([]float64, len(widthsArray))
			for j, w := range widthsArray {
				widths[j] = getNumber(resolve(w, r))
			}
			d.W = append(d.W, WidthRange{
				StartCID: startCID,
				EndCID:   startCID + len(widths) - 1,
				Widths:   widths,
			})
			i++
			continue
		}

		// cfirst clast w
		endCID := int(getNumber(resolve(wArray[i], r)))
		i++
		if i >= len(wArray) {
			break
		}
		d.W = append(d.W, WidthRange{
			StartCID: startCID,
			EndCID:   endCID,
			Width:    getNumber(resolve(wArray[i], r)),
		})
		i++
	}
	return nil
}

// cidWidth returns the width for a specific CID
func (d *Descriptor) cidWidth(cid uint32) float64 {
	c := int(cid)
	for _, wr := range d.W {
		if c < wr.StartCID || c > wr.EndCID {
			continue
		}
		if wr.Widths != nil {
			if idx := c - wr.StartCID; idx < len(wr.Widths) {
				return wr.Widths[idx]
			}
			continue
		}
		return wr.Width
	}
	return d.DW
}
