package filters

import (
	"bytes"
	"compress/lzw"
	"errors"
	"testing"
)

func TestDecodeDispatch(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		in      []byte
		want    []byte
		wantErr error
	}{
		{"hex", "ASCIIHexDecode", []byte("4869>"), []byte("Hi"), nil},
		{"hex abbreviated", "AHx", []byte("4869>"), []byte("Hi"), nil},
		{"runlength abbreviated", "RL", []byte{1, 'H', 'i', 128}, []byte("Hi"), nil},
		{"flate", "FlateDecode", zlibCompress([]byte("Hi")), []byte("Hi"), nil},
		{"dct passes through", "DCTDecode", []byte{0xff, 0xd8}, []byte{0xff, 0xd8}, nil},
		{"jbig2 passes through", "JBIG2Decode", []byte{1, 2}, []byte{1, 2}, nil},
		{"crypt", "Crypt", []byte("x"), nil, ErrUnsupported},
		{"unknown", "Bogus", []byte("x"), nil, ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.filter, tt.in, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLZWDecodeEarlyChange(t *testing.T) {
	// Example stream from the PDF reference.
	in := []byte{0x80, 0x0B, 0x60, 0x50, 0x22, 0x0C, 0x0C, 0x85, 0x01}
	got, err := LZWDecode(in, nil)
	if err != nil {
		t.Fatalf("LZWDecode() failed: %v", err)
	}
	if string(got) != "-----A---B" {
		t.Errorf("LZWDecode() = %q, want %q", got, "-----A---B")
	}
}

func TestLZWDecodeNoEarlyChange(t *testing.T) {
	want := bytes.Repeat([]byte("pdfhtml "), 64)
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.MSB, 8)
	w.Write(want)
	w.Close()

	got, err := Decode("LZWDecode", buf.Bytes(), Params{"EarlyChange": 0})
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("decoded %d bytes, want %d", len(got), len(want))
	}
}

func TestLZWDecodePredictor(t *testing.T) {
	// Two rows of three bytes under PNG Up prediction.
	raw := []byte{2, 1, 2, 3, 2, 1, 1, 1}
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.MSB, 8)
	w.Write(raw)
	w.Close()

	got, err := LZWDecode(buf.Bytes(), Params{"EarlyChange": 0, "Predictor": 12, "Columns": 3})
	if err != nil {
		t.Fatalf("LZWDecode() failed: %v", err)
	}
	want := []byte{1, 2, 3, 2, 3, 4}
	if !bytes.Equal(got, want) {
		t.Errorf("LZWDecode() = %v, want %v", got, want)
	}
}

func TestCCITTFaxDecodeInvalidSize(t *testing.T) {
	for _, p := range []Params{{"Columns": 0}, {"Columns": 8, "Rows": -1}} {
		if _, err := CCITTFaxDecode([]byte{0}, p); err == nil {
			t.Errorf("CCITTFaxDecode(%v) succeeded", p)
		}
	}
}

func TestGetBoolParam(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		def    bool
		want   bool
	}{
		{"nil params", nil, false, false},
		{"missing key", Params{"Columns": 1728}, true, true},
		{"true", Params{"BlackIs1": true}, false, true},
		{"false", Params{"BlackIs1": false}, true, false},
		{"wrong type", Params{"BlackIs1": "true"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getBoolParam(tt.params, "BlackIs1", tt.def); got != tt.want {
				t.Errorf("getBoolParam() = %v, want %v", got, tt.want)
			}
		})
	}
}
