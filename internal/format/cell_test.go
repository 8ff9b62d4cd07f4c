package format

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestParseCellAllocated(t *testing.T) {
	data := make([]byte, HBINAlignment)
	putHBIN(data, 0, HBINAlignment)
	off := HBINHeaderSize
	size := 0x30
	binary.LittleEndian.PutUint32(data[off:], uint32(int32(-size)))
	data[off+4] = 'n'
	data[off+5] = 'k'

	cell, err := ParseCell(data, off)
	if err != nil {
		t.Fatalf("ParseCell: %v", err)
	}
	if cell.Free || cell.Size != size || cell.Tag() != "nk" {
		t.Fatalf("unexpected cell: %+v", cell)
	}
	if len(cell.Data) != size-CellHeaderSize {
		t.Fatalf("payload length %d", len(cell.Data))
	}

	payload, err := Payload(data, uint32(off))
	if err != nil || len(payload) != size-CellHeaderSize {
		t.Fatalf("Payload: %v (%d bytes)", err, len(payload))
	}
}

func TestParseCellFree(t *testing.T) {
	data := make([]byte, HBINAlignment)
	off := HBINHeaderSize
	binary.LittleEndian.PutUint32(data[off:], 0x20)

	cell, err := ParseCell(data, off)
	if err != nil {
		t.Fatalf("ParseCell: %v", err)
	}
	if !cell.Free {
		t.Fatalf("expected free cell")
	}
	if _, err := Payload(data, uint32(off)); !errors.Is(err, ErrFreeCell) {
		t.Fatalf("expected free cell error, got %v", err)
	}
}

func TestParseCellErrors(t *testing.T) {
	data := make([]byte, 0x40)
	if _, err := ParseCell(data, 0); err == nil {
		t.Fatalf("expected zero length error")
	}
	binary.LittleEndian.PutUint32(data, 0xFFFFFF00) // allocated, 256 bytes
	if _, err := ParseCell(data, 0); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncation, got %v", err)
	}
	if _, err := ParseCell(data, 0x3E); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncation at tail, got %v", err)
	}
	if _, err := Payload(data, InvalidOffset); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
