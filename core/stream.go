package core

import (
	"fmt"

	"github.com/tsawler/pdfhtml/internal/filters"
)

// ErrUnsupportedFilter is returned for filters the decoder cannot undo.
var ErrUnsupportedFilter = filters.ErrUnsupported

// Decode runs the stream's Filter chain and returns the decoded bytes.
// Image codecs (DCT, JPX, JBIG2) are passed through undecoded; the caller
// only ever hands them to a renderer.
//
// Decode never caches: streams are shared between page workers.
func (s *Stream) Decode() ([]byte, error) {
	filterObj := s.Dict.Get("Filter")
	paramsObj := s.Dict.Get("DecodeParms")
	if paramsObj == nil {
		paramsObj = s.Dict.Get("DP")
	}

	var names []Name
	switch f := filterObj.(type) {
	case nil, Null:
		return s.Data, nil
	case Name:
		names = []Name{f}
	case Array:
		for i, o := range f {
			n, ok := o.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is %s, not a name", i, o.Type())
			}
			names = append(names, n)
		}
	default:
		return nil, fmt.Errorf("invalid Filter type %s", filterObj.Type())
	}

	data := s.Data
	for i, name := range names {
		var params Dict
		switch p := paramsObj.(type) {
		case Dict:
			params = p
		case Array:
			if d, ok := p.Get(i).(Dict); ok {
				params = d
			}
		}

		var err error
		data, err = filters.Decode(string(name), data, dictToParams(params))
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", name, err)
		}
	}
	return data, nil
}

// dictToParams converts DecodeParms entries to plain Go values.
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case String:
			params[k] = string(obj)
		case Name:
			params[k] = string(obj)
		default:
			params[k] = v
		}
	}
	return params
}
