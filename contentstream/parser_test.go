package contentstream

import (
	"testing"

	"github.com/tsawler/pdfhtml/core"
)

func TestParseOperators(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		operators []string
		operands  []int
	}{
		{"single", "q", []string{"q"}, []int{0}},
		{"matrix", "1 0 0 1 72 720 cm", []string{"cm"}, []int{6}},
		{"text block", "BT /F1 12 Tf 72 700 Td (Hi) Tj ET", []string{"BT", "Tf", "Td", "Tj", "ET"}, []int{0, 2, 2, 1, 0}},
		{"quotes", "(a) ' 1 2 (b) \"", []string{"'", "\""}, []int{1, 3}},
		{"star", "T* f* B*", []string{"T*", "f*", "B*"}, []int{0, 0, 0}},
		{"TJ array", "[(A) -120 (B)] TJ", []string{"TJ"}, []int{1}},
		{"marked content", "/Span << /ActualText (x) >> BDC EMC", []string{"BDC", "EMC"}, []int{2, 0}},
		{"comment", "q % save\nQ", []string{"q", "Q"}, []int{0, 0}},
		{"color ops", "0 0 1 RG 0.5 g", []string{"RG", "g"}, []int{3, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := NewParser([]byte(tt.input)).Parse()
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(ops) != len(tt.operators) {
				t.Fatalf("got %d ops, want %d: %v", len(ops), len(tt.operators), ops)
			}
			for i, op := range ops {
				if op.Operator != tt.operators[i] {
					t.Errorf("op %d = %q, want %q", i, op.Operator, tt.operators[i])
				}
				if len(op.Operands) != tt.operands[i] {
					t.Errorf("op %d has %d operands, want %d", i, len(op.Operands), tt.operands[i])
				}
			}
		})
	}
}

func TestParsersAreIndependent(t *testing.T) {
	a := NewParser([]byte("1 2"))
	b := NewParser([]byte("q"))
	if _, err := a.Parse(); err != nil {
		t.Fatal(err)
	}
	ops, err := b.Parse()
	if err != nil {
		t.Fatal(err)
	}
	if len(ops[0].Operands) != 0 {
		t.Errorf("operands leaked between parsers: %v", ops[0].Operands)
	}
}

func TestInlineImage(t *testing.T) {
	input := "q BI /W 2 /H 1 /CS /G /BPC 8 ID \x00EI\xff EI Q"
	ops, err := NewParser([]byte(input)).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ops) != 3 || ops[1].Operator != "BI" || ops[2].Operator != "Q" {
		t.Fatalf("ops = %v", ops)
	}
	img, ok := ops[1].Operands[0].(*core.Stream)
	if !ok {
		t.Fatalf("BI operand is %T", ops[1].Operands[0])
	}
	if img.Dict["Width"] != core.Int(2) || img.Dict["ColorSpace"] != core.Name("DeviceGray") {
		t.Errorf("dict = %v", img.Dict)
	}
	if string(img.Data) != "\x00EI\xff" {
		t.Errorf("data = %q", img.Data)
	}
}

func TestPartialOnError(t *testing.T) {
	ops, err := NewParser([]byte("q 1 0 0 1 0 0 cm ] Q")).Parse()
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ops) != 2 {
		t.Errorf("expected the two operations before the error, got %v", ops)
	}
}

func TestOperandHelpers(t *testing.T) {
	op := Operation{Operator: "Tf", Operands: []core.Object{core.Name("F1"), core.Real(9.5)}}
	if n, ok := op.Name(0); !ok || n != "F1" {
		t.Errorf("Name(0) = %v %v", n, ok)
	}
	if op.Float(1) != 9.5 || op.Float(5) != 0 {
		t.Errorf("Float = %v %v", op.Float(1), op.Float(5))
	}
	if _, ok := op.Floats(); ok {
		t.Error("Floats should fail with a name operand")
	}
}
