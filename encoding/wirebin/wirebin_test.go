package wirebin

import (
	"bytes"
	"testing"
)

type sample struct {
	A uint64
	B []byte
	C string
	D [32]byte
	unexported int
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := sample{A: 42, B: []byte("hello"), C: "world", unexported: 7}
	in.D[0] = 0xAB

	b, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out sample
	if err := Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if out.A != in.A || !bytes.Equal(out.B, in.B) || out.C != in.C || out.D != in.D {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
	if out.unexported != 0 {
		t.Fatalf("unexported field should not have been encoded, got %d", out.unexported)
	}
}

func TestMarshalAllConcatenates(t *testing.T) {
	b, err := MarshalAll(uint8(1), uint8(2), uint8(3))
	if err != nil {
		t.Fatalf("MarshalAll failed: %v", err)
	}
	if !bytes.Equal(b, []byte{1, 2, 3}) {
		t.Fatalf("unexpected encoding: %v", b)
	}
}

func TestTinySliceRoundTrip(t *testing.T) {
	buf := new(bytes.Buffer)
	in := []byte{1, 2, 3, 4, 5}
	if err := MarshalTinySlice(buf, in); err != nil {
		t.Fatalf("MarshalTinySlice failed: %v", err)
	}
	var out []byte
	if err := UnmarshalTinySlice(buf, &out); err != nil {
		t.Fatalf("UnmarshalTinySlice failed: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Fatalf("round trip mismatch: got %v, want %v", out, in)
	}
}

func TestObjectFraming(t *testing.T) {
	buf := new(bytes.Buffer)
	in := sample{A: 7, C: "x"}
	if err := WriteObject(buf, in); err != nil {
		t.Fatalf("WriteObject failed: %v", err)
	}
	var out sample
	if err := ReadObject(buf, &out, 1024); err != nil {
		t.Fatalf("ReadObject failed: %v", err)
	}
	if out.A != in.A || out.C != in.C {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}
