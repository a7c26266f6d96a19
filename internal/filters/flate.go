package filters

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// Params holds decode parameters from a stream's DecodeParms dictionary,
// already converted to Go values (int, float64, bool, string).
type Params map[string]interface{}

// FlateDecode inflates zlib data and undoes any TIFF or PNG predictor.
//
// Many producers write streams whose zlib trailer is damaged or missing.
// Whatever inflated cleanly before the damage is returned rather than
// discarded.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	out, err := inflate(data)
	if err != nil {
		return nil, fmt.Errorf("flate: %w", err)
	}

	predictor := getIntParam(params, "Predictor", 1)
	if predictor <= 1 {
		return out, nil
	}
	out, err = unpredict(out, predictor, params)
	if err != nil {
		return nil, fmt.Errorf("flate predictor %d: %w", predictor, err)
	}
	return out, nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var buf bytes.Buffer
	_, err = io.Copy(&buf, zr)
	if err != nil {
		if (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zlib.ErrChecksum)) && buf.Len() > 0 {
			return buf.Bytes(), nil
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

func unpredict(data []byte, predictor int, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)
	if columns <= 0 || colors <= 0 {
		return nil, fmt.Errorf("invalid Columns %d / Colors %d", columns, colors)
	}
	if bpc != 8 {
		return nil, fmt.Errorf("BitsPerComponent %d not supported", bpc)
	}

	switch {
	case predictor == 2:
		return tiffUnpredict(data, columns*colors, colors)
	case predictor >= 10 && predictor <= 15:
		return pngUnpredict(data, columns*colors, colors)
	default:
		return nil, fmt.Errorf("unsupported predictor")
	}
}

// tiffUnpredict reverses TIFF predictor 2: every sample is stored as the
// difference from the sample one pixel to its left.
func tiffUnpredict(data []byte, rowLen, bpp int) ([]byte, error) {
	if len(data)%rowLen != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowLen)
	}
	out := make([]byte, len(data))
	copy(out, data)
	for start := 0; start < len(out); start += rowLen {
		row := out[start : start+rowLen]
		for i := bpp; i < len(row); i++ {
			row[i] += row[i-bpp]
		}
	}
	return out, nil
}

// pngUnpredict reverses PNG row filters. Each encoded row is one filter-type
// byte followed by rowLen bytes; the output drops the filter bytes.
func pngUnpredict(data []byte, rowLen, bpp int) ([]byte, error) {
	stride := rowLen + 1
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), stride)
	}
	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)

	for r := 0; r < rows; r++ {
		filter := data[r*stride]
		src := data[r*stride+1 : (r+1)*stride]
		cur := out[r*rowLen : (r+1)*rowLen]

		for i := range src {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]

			switch filter {
			case 0:
				cur[i] = src[i]
			case 1:
				cur[i] = src[i] + left
			case 2:
				cur[i] = src[i] + up
			case 3:
				cur[i] = src[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = src[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("row %d: unknown PNG filter %d", r, filter)
			}
		}
		prev = cur
	}
	return out, nil
}

// paeth picks whichever of left, up and upLeft is closest to left+up-upLeft.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func getIntParam(params Params, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
