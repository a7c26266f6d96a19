package filters

import (
	"bytes"
	"compress/lzw"
	"fmt"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// LZWDecode expands LZW data and undoes any predictor. EarlyChange 1, the
// default, is the TIFF variant where the code width grows one code early.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	var rc io.ReadCloser
	if getIntParam(params, "EarlyChange", 1) == 0 {
		rc = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	} else {
		rc = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
	}
	defer rc.Close()

	out, err := io.ReadAll(rc)
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("lzw: %w", err)
	}

	predictor := getIntParam(params, "Predictor", 1)
	if predictor <= 1 {
		return out, nil
	}
	out, err = unpredict(out, predictor, params)
	if err != nil {
		return nil, fmt.Errorf("lzw predictor %d: %w", predictor, err)
	}
	return out, nil
}
