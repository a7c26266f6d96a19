package filters

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned for filters Decode cannot undo.
var ErrUnsupported = errors.New("unsupported stream filter")

// Decode undoes one stream filter. Abbreviated inline-image names are
// accepted. Image codecs (DCT, JPX, JBIG2) come back unchanged: only a
// renderer ever consumes them.
func Decode(name string, data []byte, params Params) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return FlateDecode(data, params)
	case "LZWDecode", "LZW":
		return LZWDecode(data, params)
	case "ASCIIHexDecode", "AHx":
		return ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return ASCII85Decode(data)
	case "RunLengthDecode", "RL":
		return RunLengthDecode(data)
	case "CCITTFaxDecode", "CCF":
		return CCITTFaxDecode(data, params)
	case "DCTDecode", "DCT", "JPXDecode", "JBIG2Decode":
		return data, nil
	case "Crypt":
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
	default:
		return nil, fmt.Errorf("%w: unknown filter %s", ErrUnsupported, name)
	}
}

func getBoolParam(params Params, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}
