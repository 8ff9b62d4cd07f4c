package format

import (
	"encoding/binary"
	"testing"
)

func putHBIN(b []byte, off, size int) {
	copy(b[off:], HBINSignature)
	binary.LittleEndian.PutUint32(b[off+HBINFileOffsetField:], uint32(off))
	binary.LittleEndian.PutUint32(b[off+HBINSizeOffset:], uint32(size))
}

func TestNextHBIN(t *testing.T) {
	data := make([]byte, HBINAlignment*2)
	putHBIN(data, 0, HBINAlignment)
	putHBIN(data, HBINAlignment, HBINAlignment)

	h, next, err := NextHBIN(data, 0)
	if err != nil {
		t.Fatalf("NextHBIN: %v", err)
	}
	if h.FileOffset != 0 || h.Size != HBINAlignment {
		t.Fatalf("unexpected HBIN: %+v", h)
	}
	if next != HBINAlignment {
		t.Fatalf("next offset mismatch: %d", next)
	}
	if n := CountHBINs(data); n != 2 {
		t.Fatalf("CountHBINs = %d, want 2", n)
	}
}

func TestNextHBINErrors(t *testing.T) {
	data := make([]byte, HBINHeaderSize)
	if _, _, err := NextHBIN(data, 0); err == nil {
		t.Fatalf("expected signature error")
	}
	copy(data, HBINSignature)
	binary.LittleEndian.PutUint32(data[HBINSizeOffset:], 123) // not aligned
	if _, _, err := NextHBIN(data, 0); err == nil {
		t.Fatalf("expected size error")
	}
	binary.LittleEndian.PutUint32(data[HBINSizeOffset:], HBINAlignment) // past end
	if _, _, err := NextHBIN(data, 0); err == nil {
		t.Fatalf("expected truncation error")
	}
	if n := CountHBINs(data); n != 0 {
		t.Fatalf("CountHBINs = %d, want 0", n)
	}
}
