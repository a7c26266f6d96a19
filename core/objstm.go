package core

import (
	"fmt"
)

// ObjectStream is a decoded /Type /ObjStm stream. Objects inside are parsed
// on demand from the decoded bytes, which are never mutated after
// construction.
type ObjectStream struct {
	n       int
	first   int
	offsets []objectStreamOffset
	decoded []byte
}

type objectStreamOffset struct {
	objNum int
	offset int // relative to first
}

// NewObjectStream decodes stream and parses its header of N
// object-number/offset pairs.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("object stream is nil")
	}
	if t, _ := stream.Dict.GetName("Type"); t != "ObjStm" {
		return nil, fmt.Errorf("stream type is %q, not ObjStm", t)
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First")
	}

	decoded, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode object stream: %w", err)
	}
	if int(first) > len(decoded) {
		return nil, fmt.Errorf("object stream /First %d beyond %d decoded bytes", first, len(decoded))
	}

	os := &ObjectStream{n: int(n), first: int(first), decoded: decoded}
	header := NewParser(decoded[:first])
	for i := 0; i < os.n; i++ {
		num, err1 := header.expectInt("object number")
		off, err2 := header.expectInt("object offset")
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("object stream header truncated at pair %d", i)
		}
		os.offsets = append(os.offsets, objectStreamOffset{objNum: num, offset: off})
	}
	return os, nil
}

// N returns the number of objects stored in the stream.
func (os *ObjectStream) N() int { return os.n }

// GetObjectByIndex parses the index'th object and returns it with its
// object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if index < 0 || index >= len(os.offsets) {
		return nil, 0, fmt.Errorf("object stream index %d out of range [0,%d)", index, len(os.offsets))
	}
	e := os.offsets[index]
	start := os.first + e.offset
	if start > len(os.decoded) {
		return nil, 0, fmt.Errorf("object %d offset beyond stream data", e.objNum)
	}
	p := NewParser(os.decoded)
	p.Seek(start)
	obj, err := p.ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("object %d in object stream: %w", e.objNum, err)
	}
	return obj, e.objNum, nil
}

// GetObjectByNumber finds the object with the given number.
func (os *ObjectStream) GetObjectByNumber(objNum int) (Object, error) {
	for i, e := range os.offsets {
		if e.objNum == objNum {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, err
		}
	}
	return nil, fmt.Errorf("object %d not in object stream", objNum)
}
