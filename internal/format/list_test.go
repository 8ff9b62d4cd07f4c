package format

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestDecodeSubkeyListLI(t *testing.T) {
	b := make([]byte, 4+2*4)
	copy(b, LISignature)
	binary.LittleEndian.PutUint16(b[2:], 2)
	binary.LittleEndian.PutUint32(b[4:], 0x100)
	binary.LittleEndian.PutUint32(b[8:], 0x200)
	out, kind, err := DecodeSubkeyList(b)
	if err != nil {
		t.Fatalf("DecodeSubkeyList: %v", err)
	}
	if kind != ListLI || len(out) != 2 || out[0] != 0x100 || out[1] != 0x200 {
		t.Fatalf("unexpected result: %v %v", kind, out)
	}
}

func TestDecodeSubkeyListLH(t *testing.T) {
	b := make([]byte, 4+2*8)
	copy(b, LHSignature)
	binary.LittleEndian.PutUint16(b[2:], 2)
	binary.LittleEndian.PutUint32(b[4:], 0x100)
	binary.LittleEndian.PutUint32(b[8:], 0xDEADBEEF) // hash
	binary.LittleEndian.PutUint32(b[12:], 0x300)
	out, kind, err := DecodeSubkeyList(b)
	if err != nil {
		t.Fatalf("DecodeSubkeyList: %v", err)
	}
	if kind != ListLH || len(out) != 2 || out[1] != 0x300 {
		t.Fatalf("unexpected result: %v %v", kind, out)
	}
}

func TestDecodeSubkeyListErrors(t *testing.T) {
	b := make([]byte, 4+4)
	copy(b, LFSignature)
	binary.LittleEndian.PutUint16(b[2:], 3)
	if _, _, err := DecodeSubkeyList(b); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncation, got %v", err)
	}
	copy(b, "zz")
	if _, _, err := DecodeSubkeyList(b); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}
}

func TestDecodeValueList(t *testing.T) {
	b := make([]byte, 3*4)
	binary.LittleEndian.PutUint32(b[0:], 0x10)
	binary.LittleEndian.PutUint32(b[4:], 0x20)
	binary.LittleEndian.PutUint32(b[8:], 0x30)
	vals, err := DecodeValueList(b, 3)
	if err != nil {
		t.Fatalf("DecodeValueList: %v", err)
	}
	if len(vals) != 3 || vals[2] != 0x30 {
		t.Fatalf("unexpected values: %v", vals)
	}
	if _, err := DecodeValueList(b, 4); err == nil {
		t.Fatalf("expected truncation error")
	}
}
